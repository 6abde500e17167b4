package logging

import (
	"context"
	"log/slog"

	"parcel/internal/pipeline"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if phase, ok := pipeline.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if item, ok := pipeline.ItemNameFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItem, item))
	}
	if plugin, ok := pipeline.PluginFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPlugin, plugin))
	}
	if rid, ok := pipeline.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
