package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path, applies defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CAPGW_SECTION_FIELD (e.g. CAPGW_GATEWAY_LISTEN_ADDRESS)
// and always take precedence over file-based configuration. Credentials
// in particular are usually supplied this way rather than written to
// the config file.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CAPGW_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Gateway overrides
	if val := os.Getenv("CAPGW_GATEWAY_LISTEN_ADDRESS"); val != "" {
		cfg.Gateway.ListenAddress = val
	}
	if val := os.Getenv("CAPGW_GATEWAY_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.ReadTimeout = d
		}
	}
	if val := os.Getenv("CAPGW_GATEWAY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.WriteTimeout = d
		}
	}

	// Environment credential overrides
	for _, name := range []string{"demo", "live"} {
		env := cfg.Environments[name]
		prefix := "CAPGW_" + envKey(name) + "_"
		if val := os.Getenv(prefix + "BASE_URL"); val != "" {
			env.BaseURL = val
		}
		if val := os.Getenv(prefix + "API_KEY"); val != "" {
			env.APIKey = val
		}
		if val := os.Getenv(prefix + "IDENTIFIER"); val != "" {
			env.Identifier = val
		}
		if val := os.Getenv(prefix + "PASSWORD"); val != "" {
			env.Password = val
		}
		cfg.Environments[name] = env
	}
	if val := os.Getenv("CAPGW_DEFAULT_ENVIRONMENT"); val != "" {
		cfg.DefaultEnvironment = val
	}

	// Upstream overrides
	if val := os.Getenv("CAPGW_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}

	// Audit overrides
	if val := os.Getenv("CAPGW_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("CAPGW_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("CAPGW_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("CAPGW_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CAPGW_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CAPGW_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CAPGW_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("CAPGW_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// envKey upper-cases an environment name for variable construction.
func envKey(name string) string {
	key := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		key[i] = c
	}
	return string(key)
}
