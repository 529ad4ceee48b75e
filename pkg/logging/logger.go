// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromConfig builds a logger configuration from the log section of the
// application configuration.
func FromConfig(cfg config.Log) Config {
	c := DefaultConfig()
	if cfg.Level != "" {
		c.Level = LogLevel(cfg.Level)
	}
	c.Pretty = cfg.Pretty
	return c
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Per-request caching decisions
//   - Skip reasons (outcome, path, method)
//   - Hash cookie updates (hash, strategy)
//   - Legacy state invalidation (states, invalidated_by)
//   - Variant flushes
//
// Info: Lifecycle events
//   - Server startup/shutdown
//   - Variant tracker start/stop
//   - Configuration loaded
//
// Warn: Degraded operation, request still served
//   - Cart unavailable (response served uncached)
//   - Variant flush failures
//   - Redis unreachable at startup (tracker disabled)
//
// Error: Conditions requiring attention
//   - Server failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (http-cache, variants, storefront)
//   - path: request path
//   - method: request method
//   - outcome: caching decision outcome
//   - hash: context hash value
//   - strategy: rule id strategy
//   - cache_control: emitted Cache-Control header
//   - request_id: chi request id (demo server)
