// ============================================================================
// mExpr - Extensible expression parser
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating foundation loggers from config
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Component or command name
	Name string

	// Log level (trace, debug, info, warn, error, fatal)
	Level string

	// Output format: json, text, console or logfmt (default: text)
	Format string

	// Primary output (default: stderr, stdout belongs to command results)
	Output io.Writer

	// Additional outputs besides the primary one
	AdditionalOutputs []io.Writer

	// Record caller file and line
	EnableCaller bool
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(name string) LoggerConfig {
	return LoggerConfig{
		Name:   name,
		Level:  "warn",
		Format: "text",
	}
}

// NewLogger creates a new foundation logger
func NewLogger(cfg LoggerConfig) *mdwlog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if len(cfg.AdditionalOutputs) > 0 {
		writers := append([]io.Writer{output}, cfg.AdditionalOutputs...)
		output = io.MultiWriter(writers...)
	}

	return mdwlog.NewWithConfig(mdwlog.Config{
		Level:        ParseLevel(cfg.Level),
		Format:       ParseFormat(cfg.Format),
		Output:       output,
		Name:         cfg.Name,
		EnableCaller: cfg.EnableCaller,
	})
}

// NewSimpleLogger creates a text logger at warn level on stderr
func NewSimpleLogger(name string) *mdwlog.Logger {
	return NewLogger(DefaultLoggerConfig(name))
}

// NewCLILogger creates the logger used by the mexpr commands. verbose lowers
// the level to debug regardless of the configured level.
func NewCLILogger(name, level, format string, verbose bool) *mdwlog.Logger {
	cfg := DefaultLoggerConfig(name)
	if level != "" {
		cfg.Level = level
	}
	if format != "" {
		cfg.Format = format
	}
	if verbose {
		cfg.Level = "debug"
		cfg.EnableCaller = true
	}
	return NewLogger(cfg)
}

// ParseLevel converts a string level to mdwlog.Level, defaulting to info
func ParseLevel(level string) mdwlog.Level {
	parsed, err := mdwlog.ParseLevel(level)
	if err != nil {
		return mdwlog.LevelInfo
	}
	return parsed
}

// ParseFormat converts a string format to mdwlog.Format, defaulting to text
func ParseFormat(format string) mdwlog.Format {
	parsed, err := mdwlog.ParseFormat(format)
	if err != nil {
		return mdwlog.FormatText
	}
	return parsed
}

// ToFields converts key-value pairs to mdwlog.Fields. A trailing key without
// a value and non-string keys are dropped.
func ToFields(keysAndValues ...interface{}) mdwlog.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(mdwlog.Fields)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
