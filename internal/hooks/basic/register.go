package basic

import (
	"log/slog"

	"parcel/internal/config"
	"parcel/internal/hook"
	"parcel/internal/registry"
)

// Hook identifiers for the built-in generic hooks.
const (
	CollectorHook = "basic.collector"
	PublishHook   = "basic.publish_file"
	ReportHook    = "basic.report"
)

// Register wires the built-in hooks into a registry. The publish hook
// needs the config for path derivation and the store for registration.
func Register(reg *hook.Registry, cfg *config.Config, store *registry.Store, logger *slog.Logger) {
	reg.RegisterCollector(CollectorHook, func() hook.Collector {
		return NewCollector(cfg, logger)
	})
	reg.RegisterPublishPlugin(PublishHook, func() hook.PublishPlugin {
		return NewFilePublisher(cfg, store, logger)
	})
	reg.RegisterPostPhase(ReportHook, func() hook.PostPhase {
		return NewReporter(logger)
	})
}
