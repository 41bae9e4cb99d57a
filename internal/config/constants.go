package config

// Application constants
const (
	AppName = "gfrcli"

	// EnvPrefix namespaces every environment variable (GFR_LOGGING_LEVEL, ...)
	EnvPrefix = "GFR"

	// Table locations, relative to the base directory
	DefaultInputFile  = "GFR.csv"
	DefaultOutputFile = "GFR2.csv"
	DefaultLogsDir    = "logs"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/gfr.log"

	// HTTP limits
	DefaultMaxUploadBytes = 10 << 20 // 10MB
	DefaultRateLimit      = 20       // requests per second
	DefaultBurstSize      = 40
)

// AppVersion is stamped at link time with -X gfrcli/internal/config.AppVersion
var AppVersion = "1.0.0"
