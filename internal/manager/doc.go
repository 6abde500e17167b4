// Package manager orchestrates the publish pipeline: it owns the item
// tree, drives file and session collection through collector hooks,
// attaches publish tasks per item, and runs the validate, publish and
// finalize phases over a pluggable task generator.
package manager
