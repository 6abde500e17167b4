package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StagingDir holds intermediate files produced while publishing.
	StagingDir string `toml:"staging_dir"`
	// PublishRoot is the base directory publish path templates resolve under.
	PublishRoot string `toml:"publish_root"`
	// DataDir holds the publish registry database and saved trees.
	DataDir string `toml:"data_dir"`
	// LogDir receives the rolling pipeline log.
	LogDir string `toml:"log_dir"`
	// EnvironmentsDir contains the YAML environment documents consumed by
	// the settings resolver.
	EnvironmentsDir string `toml:"environments_dir"`
}

// Session describes where session collection looks for publishable files.
type Session struct {
	// Dirs are scanned by the session collector.
	Dirs []string `toml:"dirs"`
	// Extensions restricts session collection to the listed file
	// extensions (with leading dot). Empty means collect everything the
	// collector recognizes.
	Extensions []string `toml:"extensions"`
}

// Publish contains execution-phase configuration.
type Publish struct {
	// VersionPadding is the zero padding used when formatting version
	// numbers into publish paths.
	VersionPadding int `toml:"version_padding"`
	// AllowInPlace permits publishing a file at its source location when no
	// publish path template is configured.
	AllowInPlace bool `toml:"allow_in_place"`
}

// Watcher contains configuration for the source staleness watcher.
type Watcher struct {
	Enabled         bool `toml:"enabled"`
	DebounceSeconds int  `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the publish pipeline.
//
// Configuration sections by subsystem:
//   - Paths: staging, publish root, data, log, and environment directories
//   - Session: directories scanned during session collection
//   - Publish: version formatting and in-place publish policy
//   - Watcher: source file staleness monitoring
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Session Session `toml:"session"`
	Publish Publish `toml:"publish"`
	Watcher Watcher `toml:"watcher"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/parcel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parcel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.StagingDir,
		&c.Paths.PublishRoot,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.EnvironmentsDir,
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	dirs := make([]string, 0, len(c.Session.Dirs))
	for _, dir := range c.Session.Dirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		dirs = append(dirs, expanded)
	}
	c.Session.Dirs = dirs

	exts := make([]string, 0, len(c.Session.Extensions))
	for _, ext := range c.Session.Extensions {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		exts = append(exts, trimmed)
	}
	c.Session.Extensions = exts

	return nil
}

// EnsureDirectories creates the directories required for pipeline operation.
// PublishRoot is created on a best-effort basis so headless validation can
// run when the publish storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.PublishRoot) != "" {
		_ = os.MkdirAll(c.Paths.PublishRoot, 0o755)
	}
	return nil
}

// RegistryPath returns the location of the publish registry database.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.DataDir, "registry.db")
}

// TreePath returns the default location of the saved publish tree.
func (c *Config) TreePath() string {
	return filepath.Join(c.Paths.DataDir, "tree.json")
}

// CreateSample writes the embedded sample configuration to the target path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
