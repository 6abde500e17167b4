package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing or ambiguous settings for a context.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks a hook that judged an item unfit to publish.
	ErrValidation = errors.New("validation error")
	// ErrHook marks an unexpected failure inside a hook implementation.
	ErrHook = errors.New("hook error")
	// ErrNotFound marks a missing plugin, environment, or registry record.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes plugin context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, plugin, operation, message string, err error) error {
	detail := buildDetail(plugin, operation, message)
	if marker == nil {
		marker = ErrHook
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsConfiguration reports whether the error is a configuration error. These
// are always fatal to the operation that triggered them and are never
// converted to safe defaults by the plugin wrappers.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(plugin, operation, message string) string {
	parts := make([]string, 0, 3)
	if plugin = strings.TrimSpace(plugin); plugin != "" {
		parts = append(parts, plugin)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "plugin failure"
	}
	return strings.Join(parts, ": ")
}
