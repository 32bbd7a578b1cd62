package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"digital.vasic.expectations/pkg/validator"
)

// jsonMarshalIndent is a variable for dependency injection in
// tests.
var jsonMarshalIndent = json.MarshalIndent

// MasterSummary aggregates several validation runs.
type MasterSummary struct {
	ID            string              `json:"id"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Runs          []ValidationSummary `json:"runs"`
	TotalRuns     int                 `json:"total_runs"`
	PassedRuns    int                 `json:"passed_runs"`
	FailedRuns    int                 `json:"failed_runs"`
	TotalDuration time.Duration       `json:"total_duration"`
	PassRate      float64             `json:"pass_rate"`
}

// ValidationSummary is the headline of one validation run.
type ValidationSummary struct {
	RunID        string        `json:"run_id"`
	SuiteName    string        `json:"expectation_suite_name"`
	Success      bool          `json:"success"`
	Duration     time.Duration `json:"duration"`
	Evaluated    int           `json:"evaluated_expectations"`
	Successful   int           `json:"successful_expectations"`
	Unsuccessful int           `json:"unsuccessful_expectations"`
	Warnings     int           `json:"warnings"`
}

// BuildMasterSummary creates a master summary from validation
// reports.
func BuildMasterSummary(
	reports []*validator.Report,
) *MasterSummary {
	summary := &MasterSummary{
		ID: fmt.Sprintf(
			"summary_%s",
			time.Now().Format("20060102_150405"),
		),
		GeneratedAt: time.Now(),
		Runs:        make([]ValidationSummary, 0, len(reports)),
	}

	for _, r := range reports {
		summary.Runs = append(summary.Runs, ValidationSummary{
			RunID:        r.RunID,
			SuiteName:    r.Meta.SuiteName,
			Success:      r.Success,
			Duration:     r.Duration,
			Evaluated:    r.Statistics.EvaluatedExpectations,
			Successful:   r.Statistics.SuccessfulExpectations,
			Unsuccessful: r.Statistics.UnsuccessfulExpectations,
			Warnings:     len(r.Warnings),
		})
		summary.TotalRuns++
		summary.TotalDuration += r.Duration

		if r.Success {
			summary.PassedRuns++
		} else {
			summary.FailedRuns++
		}
	}

	if summary.TotalRuns > 0 {
		summary.PassRate =
			float64(summary.PassedRuns) /
				float64(summary.TotalRuns)
	}

	return summary
}

// SaveMasterSummary saves the master summary to both JSON and
// Markdown files in the given output directory, and points
// latest_summary.* at them.
func SaveMasterSummary(
	summary *MasterSummary,
	outputDir string,
) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	ts := summary.GeneratedAt.Format("20060102_150405")

	jsonPath := filepath.Join(
		outputDir,
		fmt.Sprintf("master_summary_%s.json", ts),
	)
	jsonData, err := jsonMarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(
		outputDir,
		fmt.Sprintf("master_summary_%s.md", ts),
	)
	if err := os.WriteFile(
		mdPath, []byte(generateSummaryMarkdown(summary)), 0644,
	); err != nil {
		return fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	links := map[string]string{
		"latest_summary.json": jsonPath,
		"latest_summary.md":   mdPath,
	}
	for name, target := range links {
		if err := linkLatest(outputDir, name, target); err != nil {
			return fmt.Errorf(
				"failed to link %s: %w", name, err,
			)
		}
	}

	return nil
}

// linkLatest points dir/name at target, replacing an older link.
func linkLatest(dir, name, target string) error {
	link := filepath.Join(dir, name)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(filepath.Base(target), link)
}

func generateSummaryMarkdown(summary *MasterSummary) string {
	var sb strings.Builder

	sb.WriteString("# Expectations - Master Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Summary ID:** %s\n\n", summary.ID))
	sb.WriteString(fmt.Sprintf(
		"**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339),
	))

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Suite | Run | Status | Duration | Expectations |\n")
	sb.WriteString("|-------|-----|--------|----------|--------------|\n")

	for _, run := range summary.Runs {
		sb.WriteString(fmt.Sprintf(
			"| %s | %s | %s | %v | %d/%d |\n",
			mdEscape(run.SuiteName), run.RunID, status(run.Success),
			run.Duration, run.Successful, run.Evaluated,
		))
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", summary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", summary.PassedRuns))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.FailedRuns))
	sb.WriteString(fmt.Sprintf(
		"| Pass Rate | %.0f%% |\n", summary.PassRate*100,
	))
	sb.WriteString(fmt.Sprintf(
		"| Total Duration | %v |\n", summary.TotalDuration,
	))

	sb.WriteString("\n---\n\n")
	sb.WriteString("*Generated by expectations*\n")

	return sb.String()
}
