package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"time"

	"digital.vasic.expectations/pkg/validator"
)

// HTMLReporter renders validation reports as standalone HTML
// pages.
type HTMLReporter struct {
	outputDir string
}

// NewHTMLReporter creates a new HTML reporter.
func NewHTMLReporter(outputDir string) *HTMLReporter {
	return &HTMLReporter{outputDir: outputDir}
}

// GenerateReport renders a single validation report.
func (r *HTMLReporter) GenerateReport(
	report *validator.Report,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteReport(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReport writes an HTML report to the specified writer.
func (r *HTMLReporter) WriteReport(
	w io.Writer,
	report *validator.Report,
) error {
	title := "Validation Report: " + report.Meta.SuiteName
	r.writeHeader(w, title)

	fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(
		w,
		"<p><strong>Run ID:</strong> %s</p>\n",
		html.EscapeString(report.RunID),
	)
	if report.Meta.AssetName != nil {
		fmt.Fprintf(
			w,
			"<p><strong>Data Asset:</strong> %s</p>\n",
			html.EscapeString(*report.Meta.AssetName),
		)
	}

	r.writeSummaryTable(w, report)
	r.writeWarningsSection(w, report)
	r.writeResultsSection(w, report)

	r.writeFooter(w)
	return nil
}

func statusClass(success bool) string {
	if success {
		return "status-passed"
	}
	return "status-failed"
}

func (r *HTMLReporter) writeSummaryTable(
	w io.Writer,
	report *validator.Report,
) {
	stats := report.Statistics

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Metric</th><th>Value</th></tr>")
	fmt.Fprintf(
		w,
		"<tr><td>Status</td><td class=\"%s\">"+
			"<strong>%s</strong></td></tr>\n",
		statusClass(report.Success), status(report.Success),
	)
	fmt.Fprintf(
		w,
		"<tr><td>Started</td><td>%s</td></tr>\n",
		report.StartedAt.Format(time.RFC3339),
	)
	fmt.Fprintf(
		w,
		"<tr><td>Duration</td><td>%v</td></tr>\n",
		report.Duration,
	)
	fmt.Fprintf(
		w,
		"<tr><td>Evaluated</td><td>%d</td></tr>\n",
		stats.EvaluatedExpectations,
	)
	fmt.Fprintf(
		w,
		"<tr><td>Successful</td><td>%d</td></tr>\n",
		stats.SuccessfulExpectations,
	)
	fmt.Fprintf(
		w,
		"<tr><td>Unsuccessful</td><td>%d</td></tr>\n",
		stats.UnsuccessfulExpectations,
	)
	fmt.Fprintf(
		w,
		"<tr><td>Success Percent</td><td>%s</td></tr>\n",
		percent(stats.SuccessPercent),
	)
	fmt.Fprintf(
		w,
		"<tr><td>Engine Version</td><td>%s</td></tr>\n",
		html.EscapeString(report.Meta.EngineVersion),
	)
	fmt.Fprintln(w, "</table>")
}

func (r *HTMLReporter) writeWarningsSection(
	w io.Writer,
	report *validator.Report,
) {
	if len(report.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "<h2>Warnings</h2>")
	fmt.Fprintln(w, "<ul>")
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "<li>%s</li>\n", html.EscapeString(warning))
	}
	fmt.Fprintln(w, "</ul>")
}

func (r *HTMLReporter) writeResultsSection(
	w io.Writer,
	report *validator.Report,
) {
	if len(report.Results) == 0 {
		return
	}

	fmt.Fprintln(w, "<h2>Results</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>Expectation</th><th>Column</th>"+
			"<th>Status</th><th>Details</th></tr>",
	)

	for _, rec := range report.Results {
		typ, column := expectationOf(rec)
		if column == "" {
			column = "-"
		}
		fmt.Fprintf(
			w,
			"<tr><td><code>%s</code></td><td>%s</td>"+
				"<td class=\"%s\">%s</td>"+
				"<td>%s</td></tr>\n",
			html.EscapeString(typ),
			html.EscapeString(column),
			statusClass(rec.Success), status(rec.Success),
			html.EscapeString(details(rec)),
		)
	}

	fmt.Fprintln(w, "</table>")
}

// GenerateMasterSummary renders an HTML summary of several
// validation runs.
func (r *HTMLReporter) GenerateMasterSummary(
	reports []*validator.Report,
) ([]byte, error) {
	var buf bytes.Buffer

	r.writeHeader(&buf, "Expectations - Master Summary")

	fmt.Fprintln(&buf, "<h1>Expectations - Master Summary</h1>")
	fmt.Fprintf(
		&buf,
		"<p><strong>Generated:</strong> %s</p>\n",
		time.Now().Format(time.RFC3339),
	)

	r.writeMasterOverview(&buf, reports)
	r.writeMasterStats(&buf, reports)
	r.writeFooter(&buf)

	return buf.Bytes(), nil
}

func (r *HTMLReporter) writeMasterOverview(
	w io.Writer,
	reports []*validator.Report,
) {
	fmt.Fprintln(w, "<h2>Overview</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>Suite</th><th>Run</th><th>Status</th>"+
			"<th>Success Percent</th><th>Started</th></tr>",
	)

	for _, rep := range reports {
		fmt.Fprintf(
			w,
			"<tr><td>%s</td><td><code>%s</code></td>"+
				"<td class=\"%s\">%s</td>"+
				"<td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(rep.Meta.SuiteName),
			html.EscapeString(rep.RunID),
			statusClass(rep.Success), status(rep.Success),
			percent(rep.Statistics.SuccessPercent),
			rep.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}

	fmt.Fprintln(w, "</table>")
}

func (r *HTMLReporter) writeMasterStats(
	w io.Writer,
	reports []*validator.Report,
) {
	passed, evaluated := totals(reports)

	fmt.Fprintln(w, "<h2>Statistics</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Metric</th><th>Value</th></tr>")
	fmt.Fprintf(w, "<tr><td>Total Runs</td><td>%d</td></tr>\n", len(reports))
	fmt.Fprintf(w, "<tr><td>Passed</td><td>%d</td></tr>\n", passed)
	fmt.Fprintf(w, "<tr><td>Failed</td><td>%d</td></tr>\n", len(reports)-passed)
	fmt.Fprintf(
		w,
		"<tr><td>Expectations Evaluated</td><td>%d</td></tr>\n",
		evaluated,
	)
	if len(reports) > 0 {
		pct := float64(passed) / float64(len(reports)) * 100
		fmt.Fprintf(
			w,
			"<tr><td>Pass Rate</td><td>%.0f%%</td></tr>\n",
			pct,
		)
	}
	fmt.Fprintln(w, "</table>")
}

func (r *HTMLReporter) writeHeader(w io.Writer, title string) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body {
  font-family: -apple-system, BlinkMacSystemFont,
    "Segoe UI", Roboto, sans-serif;
  max-width: 1100px;
  margin: 0 auto;
  padding: 20px;
  color: #333;
  background: #fafafa;
}
h1 { color: #1f3a4d; border-bottom: 2px solid #2e86ab; padding-bottom: 10px; }
h2 { color: #1f3a4d; margin-top: 30px; }
table {
  border-collapse: collapse;
  width: 100%%;
  margin: 10px 0;
  background: #fff;
}
th, td {
  border: 1px solid #ddd;
  padding: 6px 10px;
  text-align: left;
  vertical-align: top;
}
th { background: #2e86ab; color: #fff; }
tr:nth-child(even) { background: #f4f6f7; }
.status-passed { color: #1e8449; font-weight: bold; }
.status-failed { color: #c0392b; font-weight: bold; }
code { background: #ecf0f1; padding: 1px 5px; border-radius: 3px; }
footer {
  margin-top: 40px;
  padding-top: 10px;
  border-top: 1px solid #ddd;
  color: #7f8c8d;
  font-size: 0.9em;
}
</style>
</head>
<body>
`, html.EscapeString(title))
}

func (r *HTMLReporter) writeFooter(w io.Writer) {
	fmt.Fprintln(w, "<footer>")
	fmt.Fprintln(w, "<p>Generated by expectations</p>")
	fmt.Fprintln(w, "</footer>")
	fmt.Fprintln(w, "</body>")
	fmt.Fprintln(w, "</html>")
}
