package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environments:
  demo:
    api_key: demo-key
    identifier: trader@example.com
    password: secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Gateway.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Gateway.ListenAddress)
	}
	if cfg.Gateway.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Gateway.WriteTimeout)
	}
	if cfg.Upstream.Timeout != DefaultUpstreamTimeout {
		t.Errorf("expected default upstream timeout, got %v", cfg.Upstream.Timeout)
	}

	// Demo keeps the configured credentials and gains the default URL.
	demo := cfg.Environments["demo"]
	if demo.APIKey != "demo-key" {
		t.Errorf("expected configured api key, got %q", demo.APIKey)
	}
	if demo.BaseURL == "" {
		t.Error("expected default demo base URL")
	}

	// Live exists with its default base URL even when not configured;
	// its missing credentials fail lazily, not at load.
	live, ok := cfg.Environments["live"]
	if !ok || live.BaseURL == "" {
		t.Errorf("expected default live environment, got %+v", live)
	}

	if cfg.Audit.Backend != DefaultAuditBackend {
		t.Errorf("expected default audit backend, got %q", cfg.Audit.Backend)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_ParsesFullFile(t *testing.T) {
	path := writeConfig(t, `
gateway:
  listen_address: "0.0.0.0:9000"
  write_timeout: 90s
default_environment: demo
environments:
  demo:
    base_url: "https://demo.example.com/api/v1"
    api_key: k1
    identifier: id
    password: pw
upstream:
  timeout: 10s
audit:
  backend: memory
  retention:
    days: 7
    prune_schedule: "0 4 * * *"
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Gateway.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("unexpected listen address %q", cfg.Gateway.ListenAddress)
	}
	if cfg.Gateway.WriteTimeout != 90*time.Second {
		t.Errorf("unexpected write timeout %v", cfg.Gateway.WriteTimeout)
	}
	if cfg.DefaultEnvironment != "demo" {
		t.Errorf("unexpected default environment %q", cfg.DefaultEnvironment)
	}
	if cfg.Environments["demo"].BaseURL != "https://demo.example.com/api/v1" {
		t.Errorf("unexpected demo base URL %q", cfg.Environments["demo"].BaseURL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("unexpected upstream timeout %v", cfg.Upstream.Timeout)
	}
	if cfg.Audit.Backend != "memory" || cfg.Audit.Retention.Days != 7 {
		t.Errorf("unexpected audit config %+v", cfg.Audit)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("unexpected logging config %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environments:
  demo:
    api_key: file-key
`)

	t.Setenv("CAPGW_GATEWAY_LISTEN_ADDRESS", "127.0.0.1:7777")
	t.Setenv("CAPGW_DEMO_API_KEY", "env-key")
	t.Setenv("CAPGW_DEMO_PASSWORD", "env-password")
	t.Setenv("CAPGW_DEFAULT_ENVIRONMENT", "demo")
	t.Setenv("CAPGW_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Gateway.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("expected env override for listen address, got %q", cfg.Gateway.ListenAddress)
	}
	if cfg.Environments["demo"].APIKey != "env-key" {
		t.Errorf("expected env override for api key, got %q", cfg.Environments["demo"].APIKey)
	}
	if cfg.Environments["demo"].Password != "env-password" {
		t.Errorf("expected env override for password, got %q", cfg.Environments["demo"].Password)
	}
	if cfg.DefaultEnvironment != "demo" {
		t.Errorf("expected env override for default environment, got %q", cfg.DefaultEnvironment)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected env override for log level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestValidate_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantField string
	}{
		{
			name:      "unknown environment",
			mutate:    func(cfg *Config) { cfg.Environments["staging"] = EnvironmentConfig{} },
			wantField: "environments.staging",
		},
		{
			name:      "relative base url",
			mutate:    func(cfg *Config) { cfg.Environments["demo"] = EnvironmentConfig{BaseURL: "not-a-url"} },
			wantField: "environments.demo.base_url",
		},
		{
			name:      "bad default environment",
			mutate:    func(cfg *Config) { cfg.DefaultEnvironment = "production" },
			wantField: "default_environment",
		},
		{
			name:      "bad audit backend",
			mutate:    func(cfg *Config) { cfg.Audit.Backend = "postgres" },
			wantField: "audit.backend",
		},
		{
			name:      "bad cron schedule",
			mutate:    func(cfg *Config) { cfg.Audit.Retention.PruneSchedule = "every day" },
			wantField: "audit.retention.prune_schedule",
		},
		{
			name:      "bad log level",
			mutate:    func(cfg *Config) { cfg.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "tls without cert",
			mutate:    func(cfg *Config) { cfg.Gateway.TLS.Enabled = true },
			wantField: "gateway.tls.cert_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)

			err := Validate(&cfg)

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_MissingCredentialsAreNotFatal(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	// Defaults carry URLs but no credentials; load must still succeed.
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected missing credentials to pass validation, got %v", err)
	}
}
