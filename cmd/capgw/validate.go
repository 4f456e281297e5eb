package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capgw/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file without starting the server.

The command applies defaults and environment variable overrides, then
checks structural validity: listen address, timeouts, audit backend,
retention schedule, and telemetry settings. Missing credentials are
reported as warnings only; they fail the first call that needs them,
not startup.

Examples:
  # Validate the default config
  capgw validate

  # Validate a specific file
  capgw validate --config /etc/capgw/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  listen address: %s\n", cfg.Gateway.ListenAddress)
	fmt.Printf("  environments:   %d configured\n", len(cfg.Environments))
	if cfg.DefaultEnvironment != "" {
		fmt.Printf("  default env:    %s\n", cfg.DefaultEnvironment)
	}
	fmt.Printf("  audit backend:  %s (enabled=%t)\n", cfg.Audit.Backend, cfg.Audit.Enabled)
	fmt.Printf("  log level:      %s\n", cfg.Telemetry.Logging.Level)
	return nil
}
