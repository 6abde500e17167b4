// Package registry is the project-tracking store: every successful publish
// is recorded here with its context, name, version and dependencies, backed
// by SQLite.
package registry
