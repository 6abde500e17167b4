// Package settings implements typed plugin settings: schema declaration,
// value resolution from YAML environment documents, composite settings with
// live child accessors, and a per-context cache of resolved baselines.
package settings
