package pipeline

import "context"

type contextKey string

const (
	phaseKey    contextKey = "phase"
	itemNameKey contextKey = "item"
	pluginKey   contextKey = "plugin"
	runIDKey    contextKey = "run_id"
)

// WithPhase annotates context with the executing phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithItemName annotates context with the publish item display name.
func WithItemName(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, itemNameKey, name)
}

// ItemNameFromContext returns the item name if present.
func ItemNameFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemNameKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPlugin annotates context with the plugin instance name.
func WithPlugin(ctx context.Context, plugin string) context.Context {
	if plugin == "" {
		return ctx
	}
	return context.WithValue(ctx, pluginKey, plugin)
}

// PluginFromContext returns the plugin name if present.
func PluginFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pluginKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a correlation identifier for a phase run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
