package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonMarshal is a variable for dependency injection in tests.
var jsonMarshal = json.Marshal

// LogEntry represents a single JSON log entry.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LoggerConfig configures the JSONLogger.
type LoggerConfig struct {
	// OutputPath is the main log file. Empty means Output, or
	// stdout when Output is nil.
	OutputPath string

	// Output receives log lines when OutputPath is empty.
	Output io.Writer

	// EvaluationLog is the file receiving one JSON line per
	// evaluated expectation. Empty disables it.
	EvaluationLog string

	Level   LogLevel
	Verbose bool
	Fields  map[string]any
}

// jsonSink is the state shared by a logger and the loggers
// derived from it with WithFields.
type jsonSink struct {
	mu            sync.Mutex
	output        io.Writer
	evaluationLog io.Writer
	ownsOutput    bool
	closed        bool
}

// JSONLogger implements Logger with JSON Lines output. It is
// safe for concurrent use.
type JSONLogger struct {
	sink    *jsonSink
	level   LogLevel
	fields  map[string]any
	verbose bool
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf(
			"failed to create log directory: %w", err,
		)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// NewJSONLogger creates a new JSON logger.
func NewJSONLogger(config LoggerConfig) (*JSONLogger, error) {
	sink := &jsonSink{output: os.Stdout}
	logger := &JSONLogger{
		sink:    sink,
		level:   config.Level,
		verbose: config.Verbose,
		fields:  make(map[string]any, len(config.Fields)),
	}
	for k, v := range config.Fields {
		logger.fields[k] = v
	}

	switch {
	case config.OutputPath != "":
		file, err := openAppend(config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink.output = file
		sink.ownsOutput = true
	case config.Output != nil:
		sink.output = config.Output
	}

	if config.EvaluationLog != "" {
		file, err := openAppend(config.EvaluationLog)
		if err != nil {
			if sink.ownsOutput {
				_ = sink.output.(io.Closer).Close()
			}
			return nil, fmt.Errorf(
				"failed to open evaluation log: %w", err,
			)
		}
		sink.evaluationLog = file
	}

	return logger, nil
}

func (l *JSONLogger) log(
	level LogLevel, msg string, fields ...Field,
) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]any, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	fmt.Fprintln(l.sink.output, string(data))
}

// Info logs an informational message.
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Debug logs a debug message only if verbose is enabled.
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	if l.verbose {
		l.log(LevelDebug, msg, fields...)
	}
}

// WithFields returns a new Logger with additional default
// fields. The new logger writes to the same destinations.
func (l *JSONLogger) WithFields(fields ...Field) Logger {
	newFields := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for _, f := range fields {
		newFields[f.Key] = f.Value
	}

	return &JSONLogger{
		sink:    l.sink,
		level:   l.level,
		verbose: l.verbose,
		fields:  newFields,
	}
}

// LogEvaluation writes an evaluation record to the dedicated
// evaluation log.
func (l *JSONLogger) LogEvaluation(evaluation EvaluationLog) {
	if l.sink.evaluationLog == nil {
		return
	}
	if evaluation.Timestamp == "" {
		evaluation.Timestamp = time.Now().Format(time.RFC3339Nano)
	}

	data, err := jsonMarshal(evaluation)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	fmt.Fprintln(l.sink.evaluationLog, string(data))
}

// Close flushes and closes the files the logger opened. Loggers
// derived with WithFields stop writing as well.
func (l *JSONLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.closed {
		return nil
	}
	l.sink.closed = true

	var errs []error
	if closer, ok := l.sink.output.(io.Closer); ok && l.sink.ownsOutput {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := l.sink.evaluationLog.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// SetupLogging creates a JSON logger writing expectations.log
// and evaluations.log in logsDir.
func SetupLogging(
	logsDir string,
	verbose bool,
) (*JSONLogger, error) {
	config := LoggerConfig{
		OutputPath: filepath.Join(
			logsDir, "expectations.log",
		),
		EvaluationLog: filepath.Join(
			logsDir, "evaluations.log",
		),
		Level:   LevelInfo,
		Verbose: verbose,
	}

	if verbose {
		config.Level = LevelDebug
	}

	return NewJSONLogger(config)
}
