package config

import "time"

// Config is the root configuration structure for the gateway.
type Config struct {
	// Gateway contains the inbound HTTP server configuration including
	// listen address, timeouts, and CORS.
	Gateway GatewayConfig `yaml:"gateway"`

	// Environments contains the per-environment upstream credentials.
	// Keys are "demo" and "live". Credentials are read once at startup
	// and are immutable for the life of the process.
	Environments map[string]EnvironmentConfig `yaml:"environments"`

	// DefaultEnvironment is the environment selected at startup.
	// Empty means no environment is selected until a caller switches.
	DefaultEnvironment string `yaml:"default_environment"`

	// Upstream contains tuning for the outbound platform client.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Audit contains configuration for the upstream-call audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GatewayConfig contains configuration for the inbound HTTP server.
type GatewayConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// inbound request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 60s (must cover one upstream call plus a renewal cycle)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the inbound request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains TLS settings for the inbound listener.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS configuration for the inbound listener.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache age in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// TLSConfig contains TLS settings for the inbound listener.
type TLSConfig struct {
	// Enabled controls whether the listener serves TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file"`
}

// EnvironmentConfig contains the upstream credentials for one
// environment. Missing values are logged at startup but only fail the
// first call that needs them.
type EnvironmentConfig struct {
	// BaseURL is the versioned API root for this environment.
	// Example: "https://demo-api-capital.backend-capital.com/api/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the static X-CAP-API-KEY header value.
	APIKey string `yaml:"api_key"`

	// Identifier is the account login identifier (email).
	Identifier string `yaml:"identifier"`

	// Password is the account password.
	Password string `yaml:"password"`
}

// UpstreamConfig contains tuning for the outbound platform client.
type UpstreamConfig struct {
	// Timeout bounds every upstream call.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the outbound connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host idle connection limit.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle outbound connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// AuditConfig contains configuration for the upstream-call audit trail.
type AuditConfig struct {
	// Enabled controls whether calls are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains settings for the async recorder.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains settings for scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains settings for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains settings for the async audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the bounded record buffer size. Records are
	// dropped (and counted) rather than blocking the request path.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains settings for scheduled audit pruning.
type RetentionConfig struct {
	// Days is the number of days to retain records.
	// 0 keeps records forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression scheduling pruning runs.
	// Empty disables the scheduler.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing settings.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "capgw"
	Namespace string `yaml:"namespace"`

	// Path is the scrape endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName identifies this process in traces.
	// Default: "capgw"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of requests traced (0..1).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS towards the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`
}
