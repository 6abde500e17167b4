// Package config loads, validates, and normalizes the TOML configuration for
// the publish pipeline. A sample configuration is embedded for `parcel config
// init`.
package config
