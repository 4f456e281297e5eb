package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"capgw/pkg/audit"
	"capgw/pkg/audit/retention"
	"capgw/pkg/audit/storage"
	"capgw/pkg/capital"
	"capgw/pkg/config"
	"capgw/pkg/gateway"
	"capgw/pkg/server"
	"capgw/pkg/telemetry/logging"
	"capgw/pkg/telemetry/metrics"
	"capgw/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	environment   string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

The server listens on the configured address and relays trading API
requests through the session manager, which owns login, token renewal,
and environment switching.

Examples:
  # Start with default config
  capgw run

  # Start with custom config
  capgw run --config /etc/capgw/config.yaml

  # Override listen address
  capgw run --listen 0.0.0.0:8080

  # Start directly in the live environment
  capgw run --env live

  # Validate config without starting the server
  capgw run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.environment, "env", "", "select the starting environment (demo, live)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Gateway.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.environment != "" {
		cfg.DefaultEnvironment = runFlags.environment
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := logging.Init(cfg.Telemetry.Logging, os.Stdout); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("capgw v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics)
	}

	// Tracing
	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Audit trail
	var recorder *audit.Recorder
	var pruner *retention.Pruner
	if cfg.Audit.Enabled {
		slog.Info("initializing audit trail", "backend", cfg.Audit.Backend)

		var auditStorage audit.Storage
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStorage, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
				Path:         cfg.Audit.SQLite.Path,
				MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
				MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
				WALMode:      cfg.Audit.SQLite.WALMode,
				BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("failed to create SQLite audit storage: %w", err)
			}
		case "memory":
			auditStorage = storage.NewMemoryStorage()
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer auditStorage.Close()

		recorder = audit.NewRecorder(auditStorage, &audit.RecorderConfig{
			Enabled:      true,
			AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
			WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
		})
		defer recorder.Close()

		if cfg.Audit.Retention.PruneSchedule != "" {
			pruner = retention.NewPruner(auditStorage, &retention.Config{
				RetentionDays: cfg.Audit.Retention.Days,
				PruneSchedule: cfg.Audit.Retention.PruneSchedule,
				MaxRecords:    cfg.Audit.Retention.MaxRecords,
			})
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					slog.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Println("✓ Audit trail initialized")
	}

	// Platform client
	client := capital.NewClient(buildCredentials(cfg), capital.ClientConfig{
		Timeout:             cfg.Upstream.Timeout,
		MaxIdleConns:        cfg.Upstream.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Upstream.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Upstream.IdleConnTimeout,
	})
	defer client.Close()

	if cfg.DefaultEnvironment != "" {
		if err := client.SelectEnvironment(cfg.DefaultEnvironment); err != nil {
			return fmt.Errorf("failed to select default environment: %w", err)
		}
		fmt.Printf("✓ Environment selected: %s\n", client.Session().Environment())
	} else {
		slog.Warn("no default environment configured, callers must switch before trading")
	}

	gw := gateway.New(client, gateway.Options{
		Recorder: recorder,
		Metrics:  collector,
		Tracer:   tracer,
	})

	srv := server.NewServer(&cfg.Gateway, gw, collector, cfg.Telemetry.Metrics.Path)

	// Config watcher: hot-applies log level and audit retention only.
	watcher, err := config.NewWatcher(cfgFile, cfg)
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			err := watcher.Watch(ctx, func(r config.Reloadable) {
				logging.SetLevel(r.LogLevel)
				if pruner != nil {
					pruner.SetConfig(r.Retention.Days, r.Retention.MaxRecords)
				}
			})
			if err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	fmt.Printf("✓ Server listening on %s\n", cfg.Gateway.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Gateway.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Gateway.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal or server error.
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// buildCredentials maps the configured environments onto the client's
// credential set. Unknown environment names are skipped with a warning;
// incomplete credentials are passed through and fail lazily on first use.
func buildCredentials(cfg *config.Config) map[capital.Environment]capital.Credentials {
	credentials := make(map[capital.Environment]capital.Credentials, len(cfg.Environments))
	for name, envCfg := range cfg.Environments {
		env, err := capital.ParseEnvironment(name)
		if err != nil {
			slog.Warn("skipping unknown environment in config", "environment", name)
			continue
		}
		credentials[env] = capital.Credentials{
			BaseURL:    envCfg.BaseURL,
			APIKey:     envCfg.APIKey,
			Identifier: envCfg.Identifier,
			Password:   envCfg.Password,
		}
	}
	return credentials
}
