package testsupport

import (
	"path/filepath"
	"testing"

	"parcel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.PublishRoot = filepath.Join(base, "publish")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.EnvironmentsDir = filepath.Join(base, "environments")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSessionDirs sets the directories scanned during session collection.
func WithSessionDirs(dirs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Dirs = dirs
	}
}

// WithSessionExtensions restricts session collection to the given extensions.
func WithSessionExtensions(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Extensions = exts
	}
}

// WithAllowInPlace permits publishing sources where they sit.
func WithAllowInPlace() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.AllowInPlace = true
	}
}

// WithVersionPadding overrides the publish version padding.
func WithVersionPadding(padding int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.VersionPadding = padding
	}
}

// BaseDir returns the temp directory backing the config's paths.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
