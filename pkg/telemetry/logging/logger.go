// Package logging configures the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"capgw/pkg/config"
)

// level is the process-wide level var, so the watcher can hot-apply a
// new level without recreating handlers.
var level slog.LevelVar

// Init builds the process-wide slog logger from configuration and
// installs it as the default. The writer defaults to stdout.
func Init(cfg config.LoggingConfig, writer io.Writer) error {
	parsed, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	level.Set(parsed)

	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     &level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	case "json", "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// SetLevel hot-applies a new minimum level. Invalid values are ignored
// so a bad reload never silences logging.
func SetLevel(value string) {
	parsed, err := ParseLevel(value)
	if err != nil {
		slog.Warn("ignoring invalid log level", "level", value)
		return
	}
	level.Set(parsed)
}

// ParseLevel converts a configuration string to a slog.Level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", value)
	}
}
