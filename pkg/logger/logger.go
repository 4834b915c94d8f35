// Package logger provides the logging interface shared by all gurl
// components. Backends exist for console output, a quiet mode, and
// fan-out to multiple sinks.
package logger

import (
	"log"
)

// Logger is the interface every gurl component logs through.
//
// Cookie values are sensitive and must never be passed to any of these
// methods; only cookie names, domains, and store paths may be logged.
type Logger interface {
	// Debug logs diagnostic detail (store paths, profile resolution).
	// Hidden unless verbose output is enabled.
	Debug(format string, args ...interface{})

	// Info logs an informational message.
	Info(format string, args ...interface{})

	// Warning logs a recoverable problem (e.g. a cookie record that
	// failed to decrypt and was skipped).
	Warning(format string, args ...interface{})

	// Error logs a failure.
	Error(format string, args ...interface{})

	// Close releases any resources held by the backend. Safe to call
	// more than once.
	Close() error
}

// StandardLogger writes to a stdlib *log.Logger. Debug messages are
// dropped unless the logger was created with verbose enabled.
type StandardLogger struct {
	logger  *log.Logger
	verbose bool
}

// NewStandardLogger wraps the given *log.Logger. When verbose is false,
// Debug output is suppressed.
func NewStandardLogger(l *log.Logger, verbose bool) *StandardLogger {
	return &StandardLogger{logger: l, verbose: verbose}
}

// Debug logs a diagnostic message with [DEBUG] prefix when verbose.
func (s *StandardLogger) Debug(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.logger.Printf("[DEBUG] "+format, args...)
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close is a no-op for StandardLogger.
func (s *StandardLogger) Close() error {
	return nil
}

// NopLogger discards all messages. Used in tests and in silent mode.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (n *NopLogger) Debug(format string, args ...interface{}) {}

// Info discards the message.
func (n *NopLogger) Info(format string, args ...interface{}) {}

// Warning discards the message.
func (n *NopLogger) Warning(format string, args ...interface{}) {}

// Error discards the message.
func (n *NopLogger) Error(format string, args ...interface{}) {}

// Close is a no-op.
func (n *NopLogger) Close() error {
	return nil
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)
