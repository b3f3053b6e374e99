// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for reactor components.
//
// The package is a thin layer over Go's standard library slog, giving the
// store and history engine a single injectable logger type with a small
// configuration surface:
//
//	logger := logging.Default()
//	logger.Info("store created", "atoms", registry.Len())
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    Service: "history",
//	    JSON:    true,
//	})
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: Development troubleshooting, verbose output
//   - Info: Normal operations (captures, restores, evictions)
//   - Warn: Recoverable issues (listener panic, unknown state path)
//   - Error: Operation failures (but the process continues)
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog.Logger is
// thread-safe.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level represents log severity levels.
//
// Levels follow the slog convention and are ordered by severity:
// Debug < Info < Warn < Error. Setting a minimum level filters out
// all logs below that level.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for potentially problematic situations.
	LevelWarn

	// LevelError is for error conditions.
	LevelError
)

// String returns the human-readable name of the level.
//
// Returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures the Logger behavior.
//
// All fields have sensible defaults. A zero-value Config creates a logger
// that writes Info+ messages to stderr in text format.
type Config struct {
	// Level sets the minimum log level.
	//
	// Messages below this level are discarded.
	// Default: LevelInfo
	Level Level

	// Service identifies the component generating logs.
	//
	// When set, it is included in every log entry as the "service"
	// attribute. Recommended values: "store", "history", "snapshot".
	// Default: "" (no service attribute)
	Service string

	// JSON enables JSON output format.
	//
	// When true, logs are formatted as JSON objects (machine-parseable).
	// When false, logs are formatted as human-readable text.
	// Default: false
	JSON bool

	// Writer overrides the output destination.
	//
	// Useful for tests that capture log output.
	// Default: os.Stderr
	Writer io.Writer
}

// Logger is the structured logger used by reactor components.
//
// Create with New or Default; pass by pointer. The zero value is not
// usable.
type Logger struct {
	slogger *slog.Logger
	level   Level
}

// New creates a Logger from the given configuration.
//
// Description:
//
//	Builds a slog-backed logger honoring the configured level, format,
//	and destination. Never returns nil.
//
// Inputs:
//
//	config - Logger configuration. Zero value is valid.
//
// Outputs:
//
//	*Logger - Ready-to-use logger.
func New(config Config) *Logger {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if config.Service != "" {
		logger = logger.With("service", config.Service)
	}

	return &Logger{
		slogger: logger,
		level:   config.Level,
	}
}

// Default returns a logger with default settings.
//
// Info level, stderr, text format. Suitable for library consumers that
// do not inject their own logger.
func Default() *Logger {
	return New(Config{})
}

// Debug logs a message at debug level with key-value attributes.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs a message at info level with key-value attributes.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs a message at warn level with key-value attributes.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs a message at error level with key-value attributes.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// With returns a child logger with the given attributes attached to
// every entry it produces.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Slog exposes the underlying slog.Logger for callers that need the
// standard library interface.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}
