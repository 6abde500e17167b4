// Package basic ships the built-in generic hooks: a file/session collector
// that types items by extension and groups frame sequences, a file publish
// plugin that copies into the publish root and records in the registry,
// and a post-phase report hook.
package basic
