// Package logging provides structured logging for API action invocations.
// It defines a Logger interface and implementations for JSON output
// and no-op logging.
package logging

import (
	"encoding/json"
	"io"
)

// Logger defines the interface for logging API action invocations.
type Logger interface {
	// LogAction logs an action entry.
	LogAction(entry ActionLogEntry)
}

// JSONLogger implements Logger with JSON Lines output.
// Each entry is written as a single line of JSON suitable for CloudWatch Logs.
type JSONLogger struct {
	writer io.Writer
}

// NewJSONLogger creates a new JSONLogger that writes to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w}
}

// LogAction writes the entry as a single line of JSON.
func (l *JSONLogger) LogAction(entry ActionLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// NopLogger implements Logger but discards all entries.
// Useful for testing or when logging is disabled.
type NopLogger struct{}

// NewNopLogger creates a new NopLogger that discards all entries.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// LogAction discards the entry.
func (l *NopLogger) LogAction(entry ActionLogEntry) {
	// Intentionally empty - discards all entries
}
