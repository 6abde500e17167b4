package hook

import (
	"context"

	"parcel/internal/publish"
	"parcel/internal/settings"
)

// Acceptance is a publish plugin's verdict on an item during task
// attachment.
type Acceptance struct {
	Accepted bool
	Enabled  bool
	Visible  bool
	Checked  bool
}

// Rejected is the safe default returned when an accept call fails.
func Rejected() Acceptance {
	return Acceptance{}
}

// Collector inspects a file or the live session and populates the publish
// tree with items.
type Collector interface {
	// SettingsSchema declares the collector's configuration surface.
	SettingsSchema() map[string]*settings.Schema

	// ProcessCurrentSession collects items from live session state under
	// the given parent.
	ProcessCurrentSession(ctx context.Context, values settings.Values, parent *publish.Item) error

	// ProcessFile collects items for one on-disk path under the given
	// parent.
	ProcessFile(ctx context.Context, values settings.Values, parent *publish.Item, path string) error

	// OnContextChanged re-derives context-dependent item properties. It is
	// called once right after an item is collected and again whenever the
	// item's context is reassigned.
	OnContextChanged(ctx context.Context, values settings.Values, item *publish.Item) error
}

// PublishPlugin is the four-phase publish contract plus task setup and
// best-effort rollback.
type PublishPlugin interface {
	// SettingsSchema declares the plugin's configuration surface.
	SettingsSchema() map[string]*settings.Schema

	// ItemFilters returns dotted-type patterns ("file.*") selecting which
	// items the plugin is offered during task attachment.
	ItemFilters() []string

	// InitTaskSettings customizes a task's private settings copy for the
	// item it was attached to.
	InitTaskSettings(ctx context.Context, values settings.Values, item *publish.Item) (settings.Values, error)

	// Accept decides whether the plugin takes on the item at all.
	Accept(ctx context.Context, values settings.Values, item *publish.Item) (Acceptance, error)

	// Validate checks the item ahead of publishing. Returning false flags
	// the task invalid without detail; returning an error carries detail.
	Validate(ctx context.Context, values settings.Values, item *publish.Item) (bool, error)

	// Publish performs the side effects: copy, register, record.
	Publish(ctx context.Context, values settings.Values, item *publish.Item) error

	// Finalize performs idempotent bookkeeping after a successful publish
	// sweep.
	Finalize(ctx context.Context, values settings.Values, item *publish.Item) error

	// Undo rolls back what Publish did, best effort.
	Undo(ctx context.Context, values settings.Values, item *publish.Item) error
}

// PostPhase is invoked once per completed phase sweep with the whole tree,
// for cross-item reporting.
type PostPhase interface {
	PostValidate(ctx context.Context, tree *publish.Tree) error
	PostPublish(ctx context.Context, tree *publish.Tree) error
	PostFinalize(ctx context.Context, tree *publish.Tree) error
}
