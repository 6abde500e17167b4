// Package hook defines the collector and publish plugin contracts and the
// instance wrappers that funnel hook failures into logged, well-typed
// outcomes instead of crashes.
package hook
