package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"digital.vasic.expectations/pkg/validator"
)

// jsonMarshal is a variable for dependency injection in tests.
var jsonMarshal = json.Marshal

// HistoricalEntry is one validation run in the history log.
type HistoricalEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id"`
	SuiteName    string    `json:"expectation_suite_name"`
	Success      bool      `json:"success"`
	Duration     string    `json:"duration"`
	Evaluated    int       `json:"evaluated_expectations"`
	Unsuccessful int       `json:"unsuccessful_expectations"`
	ResultsPath  string    `json:"results_path"`
}

// AppendToHistory adds an entry for report to the history log
// stored at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	report *validator.Report,
	resultsPath string,
) error {
	entry := HistoricalEntry{
		Timestamp:    report.StartedAt.Add(report.Duration),
		RunID:        report.RunID,
		SuiteName:    report.Meta.SuiteName,
		Success:      report.Success,
		Duration:     report.Duration.String(),
		Evaluated:    report.Statistics.EvaluatedExpectations,
		Unsuccessful: report.Statistics.UnsuccessfulExpectations,
		ResultsPath:  resultsPath,
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory returns the entries of the history log at
// historyPath in the order they were appended. A missing file
// yields no entries.
func ReadHistory(historyPath string) ([]HistoricalEntry, error) {
	data, err := os.ReadFile(historyPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []HistoricalEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e HistoricalEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf(
				"failed to decode history entry %d: %w",
				len(entries)+1, err,
			)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
