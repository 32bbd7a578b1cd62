package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/logging"
	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/suite"
)

// ValidateOptions controls Validate.
type ValidateOptions struct {
	// Suite is validated instead of the validator's own suite.
	Suite *suite.Suite

	// CatchExceptions overrides every expectation's setting.
	// nil means true.
	CatchExceptions *bool

	// ResultFormat overrides every expectation's verbosity.
	ResultFormat *result.Format

	// OnlyReturnFailures drops passing records from Results.
	// Statistics still count them.
	OnlyReturnFailures bool

	// RunID identifies the run. A random UUID is used when empty.
	RunID string
}

// Statistics summarises a validation run.
type Statistics struct {
	EvaluatedExpectations    int      `json:"evaluated_expectations"`
	SuccessfulExpectations   int      `json:"successful_expectations"`
	UnsuccessfulExpectations int      `json:"unsuccessful_expectations"`
	SuccessPercent           *float64 `json:"success_percent"`
}

// ReportMeta identifies what was validated.
type ReportMeta struct {
	SuiteName     string  `json:"expectation_suite_name"`
	AssetName     *string `json:"data_asset_name"`
	EngineVersion string  `json:"expectations_version"`
}

// Report is the outcome of validating a suite.
type Report struct {
	RunID      string           `json:"run_id"`
	Success    bool             `json:"success"`
	Statistics Statistics       `json:"statistics"`
	Results    []*result.Record `json:"results"`
	Warnings   []string         `json:"warnings,omitempty"`
	Meta       ReportMeta       `json:"meta"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
}

// Validate evaluates every expectation of the suite in order.
// Results always embed the evaluated expectation, and each
// suite record is marked with its outcome. A missing or
// mismatched version marker produces a warning, never an error.
func (v *Validator) Validate(opts ValidateOptions) (*Report, error) {
	target := opts.Suite
	if target == nil {
		target = v.suite
	}
	catch := true
	if opts.CatchExceptions != nil {
		catch = *opts.CatchExceptions
	}

	report := &Report{
		RunID:     opts.RunID,
		StartedAt: time.Now(),
		Results:   []*result.Record{},
		Meta: ReportMeta{
			SuiteName:     target.Name,
			AssetName:     target.AssetName,
			EngineVersion: suite.EngineVersion,
		},
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	v.runID = report.RunID
	defer func() { v.runID = "" }()

	if warning := target.CheckVersion(suite.EngineVersion); warning != "" {
		report.Warnings = append(report.Warnings, warning)
		v.logger.Warn(warning, logging.StringField("suite", target.Name))
	}

	records := target.Expectations()
	logger := v.logger.WithFields(
		logging.StringField("run_id", report.RunID),
		logging.StringField("suite", target.Name),
	)
	logger.Info("Validation started", logging.IntField("expectations", len(records)))
	if v.collector != nil {
		v.collector.EmitValidationStarted(report.RunID, target.Name, len(records))
	}

	results := make([]*result.Record, 0, len(records))
	for _, cfg := range records {
		rec, err := v.validateOne(cfg, catch, opts.ResultFormat)
		if err != nil {
			return nil, err
		}
		target.RecordRun(cfg, rec.Success)
		results = append(results, rec)
	}

	report.Statistics = statistics(results)
	report.Success = report.Statistics.UnsuccessfulExpectations == 0
	for _, rec := range results {
		if opts.OnlyReturnFailures || v.failuresOnly {
			if rec.Success {
				continue
			}
		}
		report.Results = append(report.Results, rec)
	}
	report.Duration = time.Since(report.StartedAt)

	v.metrics.RecordValidation(report.Success, len(results), report.Duration)
	v.metrics.SetSuiteSize(target.Len())
	if v.collector != nil {
		v.collector.EmitValidationCompleted(report.RunID, target.Name,
			report.Success, len(results), report.Duration)
	}
	logger.Info("Validation completed",
		logging.BoolField("success", report.Success),
		logging.IntField("evaluated", report.Statistics.EvaluatedExpectations),
		logging.IntField("unsuccessful", report.Statistics.UnsuccessfulExpectations),
		logging.DurationField("duration_ms", report.Duration),
	)
	return report, nil
}

// validateOne evaluates a stored expectation without recording
// it. With catch set every error becomes a failed record.
func (v *Validator) validateOne(
	cfg *expectation.Configuration,
	catch bool,
	format *result.Format,
) (*result.Record, error) {
	def, ok := v.registry.Get(cfg.Type)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownExpectation, cfg.Type)
		return v.validationFailure(cfg, err, catch)
	}

	kwargs := expectation.CloneMap(cfg.Kwargs)
	kwargs[KeyCatchExceptions] = catch
	kwargs[KeyIncludeConfig] = true
	if format != nil {
		kwargs[KeyResultFormat] = format.String()
	}

	rec, _, err := v.evaluate(call{
		def:    def,
		kwargs: kwargs,
		meta:   expectation.CloneMap(cfg.Meta),
	})
	if err != nil {
		return v.validationFailure(cfg, err, catch)
	}
	rec.ExpectationConfig = cfg.Clone()
	return rec, nil
}

func (v *Validator) validationFailure(
	cfg *expectation.Configuration,
	err error,
	catch bool,
) (*result.Record, error) {
	if !catch {
		return nil, err
	}
	traceback := ""
	var re *RuleError
	if errors.As(err, &re) {
		traceback = re.Stack
	}
	v.logger.Error("Expectation could not be evaluated",
		logging.ExpectationField(cfg.Type),
		logging.ErrorField(err),
	)
	rec := result.Exception(err, traceback)
	rec.ExpectationConfig = cfg.Clone()
	return rec, nil
}

func statistics(results []*result.Record) Statistics {
	s := Statistics{EvaluatedExpectations: len(results)}
	for _, rec := range results {
		if rec.Success {
			s.SuccessfulExpectations++
		}
	}
	s.UnsuccessfulExpectations = s.EvaluatedExpectations - s.SuccessfulExpectations
	if s.EvaluatedExpectations > 0 {
		pct := float64(s.SuccessfulExpectations) / float64(s.EvaluatedExpectations) * 100
		s.SuccessPercent = &pct
	}
	return s
}
