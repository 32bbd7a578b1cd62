// Package monitor collects evaluation events and streams them to
// live dashboards over websockets.
package monitor

import "time"

// EventType represents the type of validation event.
type EventType string

const (
	EventValidationStarted   EventType = "validation_started"
	EventPassed              EventType = "passed"
	EventFailed              EventType = "failed"
	EventException           EventType = "exception"
	EventValidationCompleted EventType = "validation_completed"
)

// Event is one step of a validation run: an expectation outcome
// or the start or end of a suite validation.
type Event struct {
	Type            EventType     `json:"type"`
	RunID           string        `json:"run_id,omitempty"`
	Suite           string        `json:"suite,omitempty"`
	ExpectationType string        `json:"expectation_type,omitempty"`
	Column          string        `json:"column,omitempty"`
	Success         bool          `json:"success"`
	ElementCount    int           `json:"element_count,omitempty"`
	UnexpectedCount int           `json:"unexpected_count,omitempty"`
	Evaluated       int           `json:"evaluated,omitempty"`
	Message         string        `json:"message,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Key identifies the expectation an event is about.
func (e Event) Key() string {
	if e.Column == "" {
		return e.ExpectationType
	}
	return e.ExpectationType + "(" + e.Column + ")"
}

// IsOutcome reports whether e carries an expectation outcome.
func (e Event) IsOutcome() bool {
	switch e.Type {
	case EventPassed, EventFailed, EventException:
		return true
	}
	return false
}
