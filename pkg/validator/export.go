package validator

import (
	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/logging"
	"digital.vasic.expectations/pkg/suite"
)

// ExportOptions controls ExpectationSuite. The zero value
// discards failed expectations and the evaluation-only kwargs.
type ExportOptions struct {
	KeepFailed          bool
	KeepResultFormat    bool
	KeepIncludeConfig   bool
	KeepCatchExceptions bool
}

// ExpectationSuite returns a copy of the suite prepared for
// saving. Expectations whose last evaluation failed are dropped
// unless KeepFailed is set; expectations never evaluated stay.
func (v *Validator) ExpectationSuite(opts ExportOptions) *suite.Suite {
	out := v.suite.Clone()

	if !opts.KeepFailed {
		dropped := out.Filter(func(e *expectation.Configuration) bool {
			success, ran := e.LastRun()
			return !ran || success
		})
		if len(dropped) > 0 {
			v.logger.Info("Omitting failed expectations from suite",
				logging.IntField("included", out.Len()),
				logging.IntField("omitted", len(dropped)),
			)
		}
	}

	var discard []string
	if !opts.KeepResultFormat {
		discard = append(discard, KeyResultFormat)
	}
	if !opts.KeepIncludeConfig {
		discard = append(discard, KeyIncludeConfig)
	}
	if !opts.KeepCatchExceptions {
		discard = append(discard, KeyCatchExceptions)
	}
	if len(discard) > 0 {
		out.Rewrite(func(e *expectation.Configuration) {
			for _, key := range discard {
				delete(e.Kwargs, key)
			}
		})
	}
	return out
}

// DiscardFailing validates the suite and removes every
// expectation that failed or raised. It returns the removed
// expectations.
func (v *Validator) DiscardFailing() ([]*expectation.Configuration, error) {
	report, err := v.Validate(ValidateOptions{OnlyReturnFailures: true})
	if err != nil {
		return nil, err
	}

	failed := make([]*expectation.Configuration, 0, len(report.Results))
	for _, rec := range report.Results {
		if !rec.Success && rec.ExpectationConfig != nil {
			failed = append(failed, rec.ExpectationConfig)
		}
	}
	removed := v.suite.Filter(func(e *expectation.Configuration) bool {
		for _, f := range failed {
			if e.Equal(f) {
				return false
			}
		}
		return true
	})
	if len(removed) > 0 {
		v.logger.Info("Discarded failing expectations",
			logging.IntField("removed", len(removed)),
		)
	}
	return removed, nil
}

// DeriveOptions controls Derive.
type DeriveOptions struct {
	// Columns restricts the child's expectations. nil means the
	// columns of the child's source.
	Columns []string

	// DiscardFailing removes the expectations the child's data
	// does not satisfy.
	DiscardFailing bool
}

// Derive creates a validator over src, typically a row or
// column subset of v's source, carrying a copy of v's suite.
func (v *Validator) Derive(src dataset.Source, opts DeriveOptions) (*Validator, error) {
	child := v.child(src, v.suite.Clone())

	columns := opts.Columns
	if columns == nil {
		columns = src.Columns()
	}
	child.suite.RestrictToColumns(columns)

	if opts.DiscardFailing {
		if _, err := child.DiscardFailing(); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// Merge creates a validator over src, the combination of v's and
// other's data. Only column-existence expectations carry over;
// by default those naming a column missing from src are
// dropped.
func (v *Validator) Merge(
	other *Validator,
	src dataset.Source,
	opts suite.MergeOptions,
) *Validator {
	if opts.Columns == nil {
		opts.Columns = src.Columns()
	}
	var otherSuite *suite.Suite
	if other != nil {
		otherSuite = other.suite
	}
	return v.child(src, v.suite.Merge(otherSuite, opts))
}
