// Package report renders validation reports as JSON, Markdown
// and HTML, and keeps a history of validation runs.
package report

import (
	"fmt"
	"io"
	"strings"

	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/validator"
)

// Reporter defines the interface for rendering validation
// reports.
type Reporter interface {
	// GenerateReport renders a single validation report.
	GenerateReport(report *validator.Report) ([]byte, error)

	// GenerateMasterSummary renders a summary of several
	// validation runs.
	GenerateMasterSummary(
		reports []*validator.Report,
	) ([]byte, error)

	// WriteReport writes a report to the specified writer.
	WriteReport(w io.Writer, report *validator.Report) error
}

func status(success bool) string {
	if success {
		return "PASSED"
	}
	return "FAILED"
}

func percent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// expectationOf names the expectation a record was produced
// for and the column it targets, if any.
func expectationOf(rec *result.Record) (string, string) {
	if rec.ExpectationConfig == nil {
		return "unknown", ""
	}
	column, _ := rec.ExpectationConfig.Kwargs.String("column")
	return rec.ExpectationConfig.Type, column
}

// details summarises a record in one line.
func details(rec *result.Record) string {
	if rec.ExceptionInfo != nil {
		msg := rec.ExceptionInfo.ExceptionMessage
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		return "raised: " + msg
	}
	if rec.Result == nil {
		return "-"
	}
	if observed, ok := rec.Result.Get(result.KeyObservedValue); ok {
		return fmt.Sprintf("observed %v", observed)
	}
	if _, ok := rec.Result.Get(result.KeyUnexpectedCount); ok {
		return fmt.Sprintf("%d unexpected of %d",
			rec.Result.UnexpectedCount, rec.Result.ElementCount)
	}
	return "-"
}

// totals counts passed runs and evaluated expectations.
func totals(reports []*validator.Report) (passed int, evaluated int) {
	for _, r := range reports {
		if r.Success {
			passed++
		}
		evaluated += r.Statistics.EvaluatedExpectations
	}
	return passed, evaluated
}
