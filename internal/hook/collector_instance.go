package hook

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"parcel/internal/logging"
	"parcel/internal/pipeline"
	"parcel/internal/project"
	"parcel/internal/publish"
	"parcel/internal/settings"
)

// capture runs a hook method, converting a panic into an error so a broken
// hook cannot take the orchestrator down with it.
func capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pipeline.Wrap(pipeline.ErrHook, "", "",
				fmt.Sprintf("hook panicked: %v\n%s", r, debug.Stack()), nil)
		}
	}()
	return fn()
}

// CollectorInstance wraps one configured collector with its resolved
// settings. Collection errors are logged and absorbed: one bad collector
// call must not abort collecting other paths.
type CollectorInstance struct {
	hookID  string
	impl    Collector
	values  settings.Values
	context project.Context
	logger  *slog.Logger
}

// NewCollectorInstance resolves the collector's settings for its context.
func NewCollectorInstance(hookID string, impl Collector, configured map[string]any, pctx project.Context, logger *slog.Logger) (*CollectorInstance, error) {
	values, err := settings.Resolve(impl.SettingsSchema(), configured)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, hookID, "resolve settings", "", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CollectorInstance{
		hookID:  hookID,
		impl:    impl,
		values:  values,
		context: pctx,
		logger:  logger.With(logging.String(logging.FieldPlugin, hookID)),
	}, nil
}

func (c *CollectorInstance) Hook() string              { return c.hookID }
func (c *CollectorInstance) Settings() settings.Values { return c.values }

// RunProcessFile collects items for one path. Returns false when the hook
// failed; the failure is already logged.
func (c *CollectorInstance) RunProcessFile(ctx context.Context, parent *publish.Item, path string) bool {
	err := capture(func() error {
		return c.impl.ProcessFile(ctx, c.values, parent, path)
	})
	if err != nil {
		c.logger.Error("file collection failed",
			logging.String("path", path),
			logging.Error(err))
		return false
	}
	return true
}

// RunProcessCurrentSession collects items from live session state.
func (c *CollectorInstance) RunProcessCurrentSession(ctx context.Context, parent *publish.Item) bool {
	err := capture(func() error {
		return c.impl.ProcessCurrentSession(ctx, c.values, parent)
	})
	if err != nil {
		c.logger.Error("session collection failed", logging.Error(err))
		return false
	}
	return true
}

// RunOnContextChanged re-derives context-dependent properties on the item.
// Failures are advisory: logged, never propagated.
func (c *CollectorInstance) RunOnContextChanged(ctx context.Context, item *publish.Item) {
	err := capture(func() error {
		return c.impl.OnContextChanged(ctx, c.values, item)
	})
	if err != nil {
		c.logger.Error("context change hook failed",
			logging.String(logging.FieldItem, item.Name()),
			logging.Error(err))
	}
}
