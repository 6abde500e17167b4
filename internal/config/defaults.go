package config

const (
	defaultStagingDir      = "~/.local/share/parcel/staging"
	defaultPublishRoot     = "~/publish"
	defaultDataDir         = "~/.local/share/parcel/data"
	defaultLogDir          = "~/.local/share/parcel/logs"
	defaultEnvironmentsDir = "~/.config/parcel/environments"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultVersionPadding  = 3
	defaultWatcherDebounce = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:      defaultStagingDir,
			PublishRoot:     defaultPublishRoot,
			DataDir:         defaultDataDir,
			LogDir:          defaultLogDir,
			EnvironmentsDir: defaultEnvironmentsDir,
		},
		Session: Session{},
		Publish: Publish{
			VersionPadding: defaultVersionPadding,
			AllowInPlace:   true,
		},
		Watcher: Watcher{
			Enabled:         false,
			DebounceSeconds: defaultWatcherDebounce,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
