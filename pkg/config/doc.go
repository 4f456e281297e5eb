// Package config provides configuration management for the gateway.
//
// Configuration is loaded from a YAML file with environment variable
// overrides following the naming convention CAPGW_SECTION_FIELD, for
// example:
//
//   - CAPGW_GATEWAY_LISTEN_ADDRESS overrides gateway.listen_address
//   - CAPGW_DEMO_API_KEY overrides environments.demo.api_key
//   - CAPGW_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values are applied in order: defaults, YAML file, environment
// variables, then validation.
//
// Missing upstream credentials are deliberately not a validation
// failure: they are logged at startup and only fail the first call
// that needs them.
//
// Credentials and the listen address are immutable once loaded. The
// Watcher hot-applies only the reloadable subset (log level, audit
// retention) and logs a restart warning for anything else changing on
// disk.
package config
