package config

import "time"

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Upstream defaults
	DefaultUpstreamTimeout      = 30 * time.Second
	DefaultMaxIdleConns         = 100
	DefaultMaxIdleConnsPerHost  = 10
	DefaultIdleConnTimeout      = 90 * time.Second

	// Audit defaults
	DefaultAuditEnabled           = true
	DefaultAuditBackend           = "sqlite"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditSQLiteOpenConns   = 10
	DefaultAuditSQLiteIdleConns   = 5
	DefaultAuditSQLiteWALMode     = true
	DefaultAuditSQLiteBusyTimeout = 5 * time.Second
	DefaultAuditAsyncBuffer       = 1000
	DefaultAuditWriteTimeout      = 5 * time.Second
	DefaultAuditRetentionDays     = 90
	DefaultAuditPruneSchedule     = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "capgw"
	DefaultMetricsPath      = "/metrics"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "capgw"
	DefaultTracingRatio     = 1.0
)

// ApplyDefaults fills in default values for any zero-valued fields.
// It is called by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	// Gateway
	if cfg.Gateway.ListenAddress == "" {
		cfg.Gateway.ListenAddress = DefaultListenAddress
	}
	if cfg.Gateway.ReadTimeout == 0 {
		cfg.Gateway.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Gateway.WriteTimeout == 0 {
		cfg.Gateway.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Gateway.IdleTimeout == 0 {
		cfg.Gateway.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Gateway.ShutdownTimeout == 0 {
		cfg.Gateway.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Gateway.MaxHeaderBytes == 0 {
		cfg.Gateway.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// CORS
	if cfg.Gateway.CORS.AllowedOrigins == nil {
		cfg.Gateway.CORS.Enabled = DefaultCORSEnabled
		cfg.Gateway.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Gateway.CORS.AllowedMethods == nil {
		cfg.Gateway.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.Gateway.CORS.AllowedHeaders == nil {
		cfg.Gateway.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Gateway.CORS.MaxAge == 0 {
		cfg.Gateway.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Environments: ensure both well-known environments exist so a
	// partially configured file still loads (missing credentials fail
	// lazily at first use, not at startup).
	if cfg.Environments == nil {
		cfg.Environments = make(map[string]EnvironmentConfig)
	}
	if _, ok := cfg.Environments["demo"]; !ok {
		cfg.Environments["demo"] = EnvironmentConfig{
			BaseURL: "https://demo-api-capital.backend-capital.com/api/v1",
		}
	}
	if _, ok := cfg.Environments["live"]; !ok {
		cfg.Environments["live"] = EnvironmentConfig{
			BaseURL: "https://api-capital.backend-capital.com/api/v1",
		}
	}

	// Upstream
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultIdleConnTimeout
	}

	// Audit
	if cfg.Audit.Backend == "" {
		cfg.Audit.Enabled = DefaultAuditEnabled
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteIdleConns
		cfg.Audit.SQLite.WALMode = DefaultAuditSQLiteWALMode
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
		cfg.Telemetry.Tracing.Insecure = true
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
}
