package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"digital.vasic.expectations/pkg/validator"
)

// MarkdownReporter renders validation reports as Markdown.
type MarkdownReporter struct {
	outputDir string
}

// NewMarkdownReporter creates a new Markdown reporter.
func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	return &MarkdownReporter{outputDir: outputDir}
}

// GenerateReport renders a single validation report.
func (r *MarkdownReporter) GenerateReport(
	report *validator.Report,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteReport(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mdEscape keeps cell text from breaking a table row.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// WriteReport writes a Markdown report to the specified writer.
func (r *MarkdownReporter) WriteReport(
	w io.Writer,
	report *validator.Report,
) error {
	var sb strings.Builder
	stats := report.Statistics

	sb.WriteString(fmt.Sprintf(
		"# Validation Report: %s\n\n", report.Meta.SuiteName,
	))
	sb.WriteString(fmt.Sprintf("**Run ID:** %s\n\n", report.RunID))
	if report.Meta.AssetName != nil {
		sb.WriteString(fmt.Sprintf(
			"**Data Asset:** %s\n\n", *report.Meta.AssetName,
		))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", status(report.Success)))
	sb.WriteString(fmt.Sprintf(
		"| Started | %s |\n", report.StartedAt.Format(time.RFC3339),
	))
	sb.WriteString(fmt.Sprintf("| Duration | %v |\n", report.Duration))
	sb.WriteString(fmt.Sprintf(
		"| Evaluated | %d |\n", stats.EvaluatedExpectations,
	))
	sb.WriteString(fmt.Sprintf(
		"| Successful | %d |\n", stats.SuccessfulExpectations,
	))
	sb.WriteString(fmt.Sprintf(
		"| Unsuccessful | %d |\n", stats.UnsuccessfulExpectations,
	))
	sb.WriteString(fmt.Sprintf(
		"| Success Percent | %s |\n", percent(stats.SuccessPercent),
	))

	if len(report.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, warning := range report.Warnings {
			sb.WriteString("- " + warning + "\n")
		}
	}

	if len(report.Results) > 0 {
		sb.WriteString("\n## Results\n\n")
		sb.WriteString("| Expectation | Column | Status | Details |\n")
		sb.WriteString("|-------------|--------|--------|---------|\n")
		for _, rec := range report.Results {
			typ, column := expectationOf(rec)
			if column == "" {
				column = "-"
			}
			sb.WriteString(fmt.Sprintf(
				"| `%s` | %s | %s | %s |\n",
				typ, mdEscape(column), status(rec.Success),
				mdEscape(details(rec)),
			))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// GenerateMasterSummary renders a Markdown summary of several
// validation runs.
func (r *MarkdownReporter) GenerateMasterSummary(
	reports []*validator.Report,
) ([]byte, error) {
	return []byte(generateSummaryMarkdown(BuildMasterSummary(reports))), nil
}
