// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
	// Output defaults to stdout. The captioner CLI logs to stderr so cues
	// written to stdout stay clean.
	Output io.Writer
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	// Set time format
	zerolog.TimeFieldFormat = cfg.TimeFormat

	// Parse log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	// Set global logger
	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns a new logger with common fields for the service.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithSession returns a logger with captioning session context.
func WithSession(sessionId, tenantId string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("tenantId", tenantId).
		Logger()
}

// WithUtterance returns a logger with utterance context.
func WithUtterance(sessionId, tenantId, utteranceId string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("tenantId", tenantId).
		Str("utteranceId", utteranceId).
		Logger()
}

// WithStream returns a logger with stream context.
func WithStream(sessionId, tenantId, provider, mode string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("tenantId", tenantId).
		Str("sttProvider", provider).
		Str("captioningMode", mode).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
