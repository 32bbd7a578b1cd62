package monitor

import (
	"sync"
	"time"
)

// EventCollector captures validation events and notifies
// subscribers. It is safe for concurrent use.
type EventCollector struct {
	mu       sync.RWMutex
	events   []Event
	handlers []func(Event)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics.
type CollectorStats struct {
	Evaluations int           `json:"evaluations"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Exceptions  int           `json:"exceptions"`
	Validations int           `json:"validations"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]Event, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
// Handlers run on the emitting goroutine.
func (c *EventCollector) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	if event.IsOutcome() {
		c.stats.Evaluations++
	}
	switch event.Type {
	case EventPassed:
		c.stats.Passed++
	case EventFailed:
		c.stats.Failed++
	case EventException:
		c.stats.Exceptions++
	case EventValidationCompleted:
		c.stats.Validations++
	}
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// EmitEvaluation emits a passed or failed event for one
// evaluated expectation.
func (c *EventCollector) EmitEvaluation(
	runID, expectationType, column string,
	success bool,
	elementCount, unexpectedCount int,
	duration time.Duration,
) {
	typ := EventFailed
	if success {
		typ = EventPassed
	}
	c.Emit(Event{
		Type:            typ,
		RunID:           runID,
		ExpectationType: expectationType,
		Column:          column,
		Success:         success,
		ElementCount:    elementCount,
		UnexpectedCount: unexpectedCount,
		Duration:        duration,
	})
}

// EmitException emits an event for a rule that raised.
func (c *EventCollector) EmitException(
	runID, expectationType, column, msg string,
) {
	c.Emit(Event{
		Type:            EventException,
		RunID:           runID,
		ExpectationType: expectationType,
		Column:          column,
		Message:         msg,
	})
}

// EmitValidationStarted emits the start of a suite validation
// over count expectations.
func (c *EventCollector) EmitValidationStarted(
	runID, suite string,
	count int,
) {
	c.Emit(Event{
		Type:      EventValidationStarted,
		RunID:     runID,
		Suite:     suite,
		Evaluated: count,
	})
}

// EmitValidationCompleted emits the end of a suite validation.
func (c *EventCollector) EmitValidationCompleted(
	runID, suite string,
	success bool,
	evaluated int,
	duration time.Duration,
) {
	c.Emit(Event{
		Type:      EventValidationCompleted,
		RunID:     runID,
		Suite:     suite,
		Success:   success,
		Evaluated: evaluated,
		Duration:  duration,
	})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Event, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics. Handlers
// stay registered.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
