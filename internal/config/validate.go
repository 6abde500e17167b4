package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.PublishRoot) == "" {
		return errors.New("paths.publish_root must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.EnvironmentsDir) == "" {
		return errors.New("paths.environments_dir must be set")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.VersionPadding < 1 || c.Publish.VersionPadding > 8 {
		return fmt.Errorf("publish.version_padding must be between 1 and 8, got %d", c.Publish.VersionPadding)
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.Enabled && c.Watcher.DebounceSeconds < 1 {
		return errors.New("watcher.debounce_seconds must be at least 1 when the watcher is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
