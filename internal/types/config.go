package types

type RunMode string

const (
	// ModeLocal runs the API server with a local-friendly setup
	ModeLocal RunMode = "local"
	// ModeAPI runs just the API server
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// StoreType selects the InvoiceStore backend
type StoreType string

const (
	StoreTypeMongo    StoreType = "mongo"
	StoreTypePostgres StoreType = "postgres"
)
