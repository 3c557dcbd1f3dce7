package config

const (
	defaultHistoryDB        = "~/.local/share/contentsync/history.db"
	defaultLogDir           = "~/.local/share/contentsync/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultTimeoutSeconds   = 30
	defaultRetryAttempts    = 3
	defaultRetryMaxInterval = 5
	defaultMappingTable     = "sync_id_map"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Source: Instance{
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Target: Instance{
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Sync: Sync{
			MappingCollection:   defaultMappingTable,
			RetryAttempts:       defaultRetryAttempts,
			RetryMaxIntervalSec: defaultRetryMaxInterval,
		},
		Paths: Paths{
			HistoryDB: defaultHistoryDB,
			LogDir:    defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
