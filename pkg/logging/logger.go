// Package logging provides structured logging for the validation
// engine with JSON, console, and multi-destination output.
package logging

import (
	"fmt"
	"strings"
)

// Logger defines the interface for structured engine logging.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning message.
	Warn(msg string, fields ...Field)

	// Error logs an error message.
	Error(msg string, fields ...Field)

	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// WithFields returns a Logger with additional default
	// fields attached to every subsequent log entry.
	WithFields(fields ...Field) Logger

	// LogEvaluation records one expectation evaluation.
	LogEvaluation(evaluation EvaluationLog)

	// Close flushes any buffers and releases resources.
	Close() error
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// EvaluationLog captures one expectation evaluation.
type EvaluationLog struct {
	Timestamp       string  `json:"timestamp"`
	RunID           string  `json:"run_id,omitempty"`
	ExpectationType string  `json:"expectation_type"`
	Column          string  `json:"column,omitempty"`
	Kind            string  `json:"kind"`
	Success         bool    `json:"success"`
	ElementCount    int     `json:"element_count"`
	UnexpectedCount int     `json:"unexpected_count"`
	Exception       string  `json:"exception,omitempty"`
	DurationMs      float64 `json:"duration_ms"`
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	// LevelDebug is the most verbose level.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level.
	LevelInfo
	// LevelWarn indicates potential issues.
	LevelWarn
	// LevelError indicates failures.
	LevelError
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
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

// ParseLevel converts a level name, in any case, to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %s", s)
}
