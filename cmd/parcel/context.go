package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"parcel/internal/config"
	"parcel/internal/fileutil"
	"parcel/internal/hook"
	"parcel/internal/hooks/basic"
	"parcel/internal/logging"
	"parcel/internal/manager"
	"parcel/internal/project"
	"parcel/internal/registry"
	"parcel/internal/settings"
)

type commandContext struct {
	configFlag  *string
	contextFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, contextFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		contextFlag: contextFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// operatingContext parses the --context flag. Commands that collect or
// publish need one; commands that only read state do not.
func (c *commandContext) operatingContext() (project.Context, error) {
	var value string
	if c.contextFlag != nil {
		value = strings.TrimSpace(*c.contextFlag)
	}
	if value == "" {
		return project.Context{}, fmt.Errorf("an operating context is required (--context project/entity/step/task)")
	}
	return project.Parse(value)
}

// session bundles everything a pipeline command operates on. Close releases
// the registry database.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *registry.Store
	manager *manager.Manager
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// openStore opens only the publish registry, for commands that query records
// without driving the pipeline.
func (c *commandContext) openStore() (*registry.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return registry.Open(cfg)
}

// openSession builds the full pipeline: registry store, environment
// resolver, hook registry with the built-in plugins, and a manager. When
// loadTree is set and a saved tree exists it is loaded and its plugins
// reattached.
func (c *commandContext) openSession(ctx context.Context, loadTree bool) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	pctx, err := c.operatingContext()
	if err != nil {
		return nil, err
	}

	store, err := registry.Open(cfg)
	if err != nil {
		return nil, err
	}

	resolver, err := settings.LoadResolver(cfg.Paths.EnvironmentsDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load environments from %s: %w", cfg.Paths.EnvironmentsDir, err)
	}

	reg := hook.NewRegistry()
	basic.Register(reg, cfg, store, logger)

	mgr, err := manager.New(manager.Options{
		Logger:   logger,
		Registry: reg,
		Resolver: resolver,
		Context:  pctx,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	if loadTree && fileutil.Exists(cfg.TreePath()) {
		if err := mgr.Load(ctx, cfg.TreePath()); err != nil {
			store.Close()
			return nil, fmt.Errorf("load saved tree: %w", err)
		}
	}

	return &session{cfg: cfg, logger: logger, store: store, manager: mgr}, nil
}
