package config

const (
	defaultDataDirName         = "data"
	defaultLogDirName          = "logs"
	defaultInstallerTimeout    = 600
	defaultWatchDebounce       = 2
	defaultWatchRescanInterval = 300
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults. The data and
// log directories are derived from base_dir during normalization when left
// empty, so they carry no defaults here.
func Default() Config {
	return Config{
		Installer: Installer{
			Timeout: defaultInstallerTimeout,
		},
		Watch: Watch{
			DebounceSeconds: defaultWatchDebounce,
			RescanInterval:  defaultWatchRescanInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
