package core

import "time"

const (
	Version       = "0.1.0"
	ConfigVersion = "1.0"

	AppName = "tenure"

	DefaultProcessName     = "krita"
	DefaultPollInterval    = time.Second
	DefaultRefreshInterval = time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultPaletteCount    = 5

	DefaultPIDFile = "/tmp/tenure.pid"

	DefaultTotalFile  = "total_time.json"
	DefaultLogFile    = "daily_log.json"
	DefaultSQLiteFile = "tenure.db"

	StorageBackendJSON   = "json"
	StorageBackendSQLite = "sqlite"

	LogFormatJSON = "json"
	LogFormatText = "text"

	// DateLayout keys the daily log. Dates are taken in the local time zone.
	DateLayout = "2006-01-02"

	EnvPrefix        = "TENURE"
	EnvForeground    = "TENURE_DAEMON_FOREGROUND"
	DefaultConfigDir = ".config/tenure"
)

var (
	StorageBackends = []string{
		StorageBackendJSON,
		StorageBackendSQLite,
	}

	LogLevels = []string{"debug", "info", "warn", "error"}
)
