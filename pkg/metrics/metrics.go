// Package metrics records evaluation statistics for the
// validation engine.
package metrics

import "time"

// Recorder defines the interface for recording engine metrics.
type Recorder interface {
	// RecordEvaluation records one expectation evaluation.
	RecordEvaluation(
		expectationType, kind string,
		success bool,
		duration time.Duration,
	)
	// RecordException records a rule error, caught or not.
	RecordException(expectationType string)
	// RecordValidation records a whole-suite validation run.
	RecordValidation(success bool, evaluated int, duration time.Duration)
	// SetSuiteSize sets the gauge of records in the bound suite.
	SetSuiteSize(count int)
}

// NoopMetrics is a no-op implementation of Recorder used when
// metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordEvaluation(_, _ string, _ bool, _ time.Duration) {}
func (NoopMetrics) RecordException(_ string)                             {}
func (NoopMetrics) RecordValidation(_ bool, _ int, _ time.Duration)      {}
func (NoopMetrics) SetSuiteSize(_ int)                                   {}

func outcome(success bool) string {
	if success {
		return "passed"
	}
	return "failed"
}
