// Package pipeline holds the cross-cutting error taxonomy and context
// annotations shared by the publish manager, the plugin wrappers, and the
// logging package.
//
// Errors raised while collecting or executing tasks are tagged with one of
// the exported sentinels so callers can classify failures without inspecting
// message text. Context helpers carry the executing phase, item, plugin, and
// run correlation ID so log lines emitted anywhere in a hook call chain can
// be traced back to the task that produced them.
package pipeline
