package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "gateway.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects all validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the configuration and returns a ValidationError if
// any rule fails. Missing upstream credentials are deliberately not a
// validation failure: they are logged as warnings and only fail the
// first call that needs them.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateEnvironments(cfg)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"gateway.listen_address", "must not be empty"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{"gateway.read_timeout", "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{"gateway.write_timeout", "must not be negative"})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{"gateway.tls.cert_file", "required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{"gateway.tls.key_file", "required when TLS is enabled"})
		}
	}

	return errs
}

func validateEnvironments(cfg *Config) []FieldError {
	var errs []FieldError

	for name, env := range cfg.Environments {
		if name != "demo" && name != "live" {
			errs = append(errs, FieldError{
				Field:   "environments." + name,
				Message: `unknown environment (expected "demo" or "live")`,
			})
			continue
		}
		if env.BaseURL != "" {
			if u, err := url.Parse(env.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   "environments." + name + ".base_url",
					Message: "must be an absolute URL",
				})
			}
		}

		// Missing credentials are a startup warning, not an error.
		for field, value := range map[string]string{
			"base_url":   env.BaseURL,
			"api_key":    env.APIKey,
			"identifier": env.Identifier,
			"password":   env.Password,
		} {
			if value == "" {
				slog.Warn("environment credential missing, calls will fail until provided",
					"environment", name,
					"field", field,
				)
			}
		}
	}

	if cfg.DefaultEnvironment != "" &&
		cfg.DefaultEnvironment != "demo" && cfg.DefaultEnvironment != "live" {
		errs = append(errs, FieldError{
			Field:   "default_environment",
			Message: `must be "demo" or "live"`,
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{"audit.backend", `must be "sqlite" or "memory"`})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{"audit.sqlite.path", "must not be empty"})
	}
	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{"audit.recorder.async_buffer", "must not be negative"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{"audit.retention.days", "must not be negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", "must be debug, info, warn, or error"})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", "must be json or text"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{"telemetry.tracing.sample_ratio", "must be between 0 and 1"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{"telemetry.tracing.endpoint", "required when tracing is enabled"})
	}

	return errs
}
