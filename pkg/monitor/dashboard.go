package monitor

import (
	"sync"
	"time"
)

// Run statuses reported by DashboardData.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// DashboardData tracks the latest outcome of every expectation
// seen in the event stream.
type DashboardData struct {
	mu           sync.RWMutex
	runID        string
	suite        string
	startTime    time.Time
	status       string
	expectations map[string]ExpectationState
	order        []string
}

// ExpectationState is the last known outcome of one expectation.
type ExpectationState struct {
	Key             string    `json:"key"`
	ExpectationType string    `json:"expectation_type"`
	Column          string    `json:"column,omitempty"`
	Status          string    `json:"status"`
	ElementCount    int       `json:"element_count"`
	UnexpectedCount int       `json:"unexpected_count"`
	Message         string    `json:"message,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total      int     `json:"total"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Exceptions int     `json:"exceptions"`
	PassRate   float64 `json:"pass_rate"`
	Elapsed    string  `json:"elapsed"`
}

// DashboardSnapshot is an immutable copy of DashboardData.
type DashboardSnapshot struct {
	RunID        string             `json:"run_id"`
	Suite        string             `json:"suite,omitempty"`
	StartTime    time.Time          `json:"start_time"`
	Status       string             `json:"status"`
	Expectations []ExpectationState `json:"expectations"`
	Summary      DashboardSummary   `json:"summary"`
}

// NewDashboardData creates an idle dashboard.
func NewDashboardData() *DashboardData {
	return &DashboardData{
		startTime:    time.Now(),
		status:       StatusIdle,
		expectations: make(map[string]ExpectationState),
	}
}

// UpdateFromEvent folds event into the dashboard. A validation
// start resets the per-expectation states.
func (d *DashboardData) UpdateFromEvent(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case EventValidationStarted:
		d.runID = event.RunID
		d.suite = event.Suite
		d.startTime = event.Timestamp
		d.status = StatusRunning
		d.expectations = make(map[string]ExpectationState)
		d.order = nil
		return
	case EventValidationCompleted:
		d.status = StatusFailed
		if event.Success {
			d.status = StatusSucceeded
		}
		return
	}
	if !event.IsOutcome() {
		return
	}

	key := event.Key()
	if _, seen := d.expectations[key]; !seen {
		d.order = append(d.order, key)
	}
	d.expectations[key] = ExpectationState{
		Key:             key,
		ExpectationType: event.ExpectationType,
		Column:          event.Column,
		Status:          string(event.Type),
		ElementCount:    event.ElementCount,
		UnexpectedCount: event.UnexpectedCount,
		Message:         event.Message,
		UpdatedAt:       event.Timestamp,
	}
}

// Snapshot returns a copy of the current dashboard state with
// expectations in first-seen order.
func (d *DashboardData) Snapshot() DashboardSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := DashboardSnapshot{
		RunID:        d.runID,
		Suite:        d.suite,
		StartTime:    d.startTime,
		Status:       d.status,
		Expectations: make([]ExpectationState, 0, len(d.order)),
	}
	for _, key := range d.order {
		state := d.expectations[key]
		snap.Expectations = append(snap.Expectations, state)
		snap.Summary.Total++
		switch EventType(state.Status) {
		case EventPassed:
			snap.Summary.Passed++
		case EventFailed:
			snap.Summary.Failed++
		case EventException:
			snap.Summary.Exceptions++
		}
	}
	if snap.Summary.Total > 0 {
		snap.Summary.PassRate = float64(snap.Summary.Passed) /
			float64(snap.Summary.Total) * 100
	}
	snap.Summary.Elapsed = time.Since(d.startTime).Round(time.Millisecond).String()
	return snap
}

// BuildDashboardData replays the collector's events into a new
// dashboard.
func BuildDashboardData(collector *EventCollector) *DashboardData {
	data := NewDashboardData()
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
