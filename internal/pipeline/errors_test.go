package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"parcel/internal/pipeline"
)

func TestWrapClassification(t *testing.T) {
	cause := errors.New("disk full")
	err := pipeline.Wrap(pipeline.ErrHook, "File Publisher", "publish", "texture.jpg", cause)

	if !errors.Is(err, pipeline.ErrHook) {
		t.Fatal("wrapped error should match its marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should still match the cause")
	}
	if errors.Is(err, pipeline.ErrValidation) {
		t.Fatal("wrapped error should not match other markers")
	}
	for _, want := range []string{"File Publisher", "publish", "texture.jpg", "disk full"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestWrapDefaults(t *testing.T) {
	err := pipeline.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, pipeline.ErrHook) {
		t.Fatal("nil marker should default to ErrHook")
	}
	if !strings.Contains(err.Error(), "plugin failure") {
		t.Fatalf("empty detail should fall back: %q", err)
	}

	if !pipeline.IsConfiguration(pipeline.Wrap(pipeline.ErrConfiguration, "", "resolve", "ambiguous environments", nil)) {
		t.Fatal("IsConfiguration should classify configuration wraps")
	}
	if pipeline.IsConfiguration(pipeline.Wrap(pipeline.ErrValidation, "", "validate", "bad item", nil)) {
		t.Fatal("IsConfiguration should reject other markers")
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()
	ctx = pipeline.WithPhase(ctx, string(pipeline.PhasePublish))
	ctx = pipeline.WithItemName(ctx, "texture.jpg")
	ctx = pipeline.WithPlugin(ctx, "File Publisher")
	ctx = pipeline.WithRunID(ctx, "run-1")

	if v, ok := pipeline.PhaseFromContext(ctx); !ok || v != "publish" {
		t.Fatalf("phase = %q, %v", v, ok)
	}
	if v, ok := pipeline.ItemNameFromContext(ctx); !ok || v != "texture.jpg" {
		t.Fatalf("item = %q, %v", v, ok)
	}
	if v, ok := pipeline.PluginFromContext(ctx); !ok || v != "File Publisher" {
		t.Fatalf("plugin = %q, %v", v, ok)
	}
	if v, ok := pipeline.RunIDFromContext(ctx); !ok || v != "run-1" {
		t.Fatalf("run id = %q, %v", v, ok)
	}

	// Empty values are not stored.
	if _, ok := pipeline.PhaseFromContext(pipeline.WithPhase(context.Background(), "")); ok {
		t.Fatal("empty phase should not annotate")
	}
}
