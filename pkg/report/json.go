package report

import (
	"encoding/json"
	"io"
	"time"

	"digital.vasic.expectations/pkg/validator"
)

// Variables for dependency injection in tests.
var (
	jsonReportMarshal       = json.Marshal
	jsonReportMarshalIndent = json.MarshalIndent
)

// JSONReporter renders validation reports as JSON.
type JSONReporter struct {
	outputDir string
	pretty    bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(
	outputDir string,
	pretty bool,
) *JSONReporter {
	return &JSONReporter{
		outputDir: outputDir,
		pretty:    pretty,
	}
}

func (r *JSONReporter) marshal(v any) ([]byte, error) {
	if r.pretty {
		return jsonReportMarshalIndent(v, "", "  ")
	}
	return jsonReportMarshal(v)
}

// GenerateReport renders a single validation report.
func (r *JSONReporter) GenerateReport(
	report *validator.Report,
) ([]byte, error) {
	return r.marshal(report)
}

// jsonMasterSummary is the JSON structure for a master summary.
type jsonMasterSummary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	TotalRuns     int                 `json:"total_runs"`
	Passed        int                 `json:"passed"`
	Failed        int                 `json:"failed"`
	Evaluated     int                 `json:"evaluated_expectations"`
	TotalDuration time.Duration       `json:"total_duration"`
	Reports       []*validator.Report `json:"reports"`
}

// GenerateMasterSummary renders a JSON summary of several
// validation runs.
func (r *JSONReporter) GenerateMasterSummary(
	reports []*validator.Report,
) ([]byte, error) {
	summary := jsonMasterSummary{
		GeneratedAt: time.Now(),
		TotalRuns:   len(reports),
		Reports:     reports,
	}
	summary.Passed, summary.Evaluated = totals(reports)
	summary.Failed = summary.TotalRuns - summary.Passed
	for _, rep := range reports {
		summary.TotalDuration += rep.Duration
	}
	return r.marshal(summary)
}

// WriteReport writes a JSON report to the specified writer.
func (r *JSONReporter) WriteReport(
	w io.Writer,
	report *validator.Report,
) error {
	data, err := r.GenerateReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
