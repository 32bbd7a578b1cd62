package logging

import "errors"

// MultiLogger fans out log calls to several loggers, e.g. a
// console for the operator and a JSON file for later analysis.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every non-nil
// logger given.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLogger{loggers: kept}
}

func (m *MultiLogger) each(fn func(Logger)) {
	for _, l := range m.loggers {
		fn(l)
	}
}

// Info logs to all loggers.
func (m *MultiLogger) Info(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Info(msg, fields...) })
}

// Warn logs to all loggers.
func (m *MultiLogger) Warn(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Warn(msg, fields...) })
}

// Error logs to all loggers.
func (m *MultiLogger) Error(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Error(msg, fields...) })
}

// Debug logs to all loggers.
func (m *MultiLogger) Debug(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Debug(msg, fields...) })
}

// WithFields returns a MultiLogger over the inner loggers'
// WithFields results.
func (m *MultiLogger) WithFields(fields ...Field) Logger {
	derived := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		derived[i] = l.WithFields(fields...)
	}
	return &MultiLogger{loggers: derived}
}

// LogEvaluation logs to all loggers.
func (m *MultiLogger) LogEvaluation(evaluation EvaluationLog) {
	m.each(func(l Logger) { l.LogEvaluation(evaluation) })
}

// Close closes every logger and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
