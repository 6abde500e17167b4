package hook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gobwas/glob"

	"parcel/internal/logging"
	"parcel/internal/pipeline"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

// PublishInstance wraps one configured publish plugin with its resolved
// baseline settings. It is the single error funnel between hooks and the
// orchestrator: accept and task-setup failures are logged and converted to
// safe defaults, while validate, publish and finalize failures are logged
// and then returned so the phase semantics upstream can act on them.
type PublishInstance struct {
	name    string
	hookID  string
	impl    PublishPlugin
	values  settings.Values
	filters []glob.Glob
	logger  *slog.Logger
}

// NewPublishInstance resolves settings and compiles the plugin's item
// filters. The instance name comes from the environment document and
// disambiguates multiple configured instances of the same hook.
func NewPublishInstance(name, hookID string, impl PublishPlugin, configured map[string]any, logger *slog.Logger) (*PublishInstance, error) {
	values, err := settings.Resolve(impl.SettingsSchema(), configured)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, name, "resolve settings", "", err)
	}
	var filters []glob.Glob
	for _, pattern := range impl.ItemFilters() {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, pipeline.Wrap(pipeline.ErrConfiguration, name, "compile item filter",
				fmt.Sprintf("bad pattern %q", pattern), err)
		}
		filters = append(filters, g)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PublishInstance{
		name:    name,
		hookID:  hookID,
		impl:    impl,
		values:  values,
		filters: filters,
		logger:  logger.With(logging.String(logging.FieldPlugin, name)),
	}, nil
}

// Name implements publish.Plugin.
func (p *PublishInstance) Name() string { return p.name }

// Hook implements publish.Plugin.
func (p *PublishInstance) Hook() string { return p.hookID }

// Settings returns the resolved baseline values for the instance.
func (p *PublishInstance) Settings() settings.Values { return p.values }

// Matches reports whether the item's type passes the plugin's filters. A
// plugin with no filters is offered every item.
func (p *PublishInstance) Matches(item *publish.Item) bool {
	if len(p.filters) == 0 {
		return true
	}
	for _, g := range p.filters {
		if g.Match(item.Type()) {
			return true
		}
	}
	return false
}

// RunAccept asks the plugin whether it takes on the item. A failing hook
// is logged and treated as a rejection.
func (p *PublishInstance) RunAccept(ctx context.Context, values settings.Values, item *publish.Item) Acceptance {
	var acceptance Acceptance
	err := capture(func() error {
		var hookErr error
		acceptance, hookErr = p.impl.Accept(ctx, values, item)
		return hookErr
	})
	if err != nil {
		p.logger.Error("accept failed; rejecting item",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err))
		return Rejected()
	}
	return acceptance
}

// RunInitTaskSettings gives the plugin a chance to customize a task's
// private settings copy. A failing hook is logged and the uncustomized
// copy is used.
func (p *PublishInstance) RunInitTaskSettings(ctx context.Context, values settings.Values, item *publish.Item) settings.Values {
	var customized settings.Values
	err := capture(func() error {
		var hookErr error
		customized, hookErr = p.impl.InitTaskSettings(ctx, values, item)
		return hookErr
	})
	if err != nil || customized == nil {
		if err != nil {
			p.logger.Error("task settings init failed; using plugin defaults",
				logging.String(logging.FieldItem, item.Name()),
				logging.Error(err))
		}
		return values
	}
	return customized
}

// RunValidate checks the task's item. The item's context must carry a task
// link; publishes are registered against a project task, so validation of
// an unlinked context fails before the hook runs. Hook errors are logged
// and returned so the phase sweep records them.
func (p *PublishInstance) RunValidate(ctx context.Context, task *publish.Task) (bool, error) {
	item := task.Item()
	if pctx := item.Context(); !pctx.HasTask() {
		err := pipeline.Wrap(pipeline.ErrConfiguration, p.name, "validate",
			fmt.Sprintf("context %q for item %q has no task link", pctx, item.Name()), nil)
		p.logger.Error("validation refused",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err))
		return false, err
	}
	var ok bool
	err := capture(func() error {
		var hookErr error
		ok, hookErr = p.impl.Validate(ctx, task.Settings(), item)
		return hookErr
	})
	if err != nil {
		wrapped := pipeline.Wrap(pipeline.ErrValidation, p.name, "validate", item.Name(), err)
		p.logger.Error("validation failed",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err),
			logging.Detail(wrapped.Error()))
		return false, wrapped
	}
	if !ok {
		p.logger.Warn("validation returned false",
			logging.String(logging.FieldItem, item.Name()))
	}
	return ok, nil
}

// RunPublish performs the task's side effects. Errors are logged and
// returned; the phase aborts on the first one.
func (p *PublishInstance) RunPublish(ctx context.Context, task *publish.Task) error {
	item := task.Item()
	err := capture(func() error {
		return p.impl.Publish(ctx, task.Settings(), item)
	})
	if err != nil {
		wrapped := pipeline.Wrap(pipeline.ErrHook, p.name, "publish", item.Name(), err)
		p.logger.Error("publish failed",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err),
			logging.Detail(wrapped.Error()))
		return wrapped
	}
	return nil
}

// RunFinalize performs post-publish bookkeeping, same abort semantics as
// RunPublish.
func (p *PublishInstance) RunFinalize(ctx context.Context, task *publish.Task) error {
	item := task.Item()
	err := capture(func() error {
		return p.impl.Finalize(ctx, task.Settings(), item)
	})
	if err != nil {
		wrapped := pipeline.Wrap(pipeline.ErrHook, p.name, "finalize", item.Name(), err)
		p.logger.Error("finalize failed",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err),
			logging.Detail(wrapped.Error()))
		return wrapped
	}
	return nil
}

// RunUndo rolls back a task's publish, best effort. Undo runs during
// already-failing cleanup, so its own errors are logged and never
// escalated.
func (p *PublishInstance) RunUndo(ctx context.Context, task *publish.Task) {
	item := task.Item()
	err := capture(func() error {
		return p.impl.Undo(ctx, task.Settings(), item)
	})
	if err != nil {
		p.logger.Error("undo failed",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err))
	}
}
