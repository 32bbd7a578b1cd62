package validator

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/logging"
	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/rule"
	"digital.vasic.expectations/pkg/suite"
	"digital.vasic.expectations/pkg/threshold"
)

// RuleError is an error raised by a rule while it evaluated
// data. It is returned when catch_exceptions is off and
// reported in exception_info otherwise.
type RuleError struct {
	// Type is the expectation type whose rule failed.
	Type string

	// Err is the cause. Panics are wrapped as errors.
	Err error

	// Stack is the goroutine stack captured with the error.
	Stack string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("expectation %s raised: %v", e.Type, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

func newRuleError(expectationType string, err error) *RuleError {
	var re *RuleError
	if errors.As(err, &re) {
		return re
	}
	return &RuleError{
		Type:  expectationType,
		Err:   err,
		Stack: string(debug.Stack()),
	}
}

// call is one evaluation request.
type call struct {
	def    rule.Definition
	kwargs map[string]any
	meta   map[string]any
	record bool
}

// Expect evaluates the registered expectation expectationType
// with kwargs and, unless WithoutRecording is given, records it
// in the suite, replacing an expectation with the same target.
//
// Configuration errors are always returned. Rule errors are
// returned as *RuleError unless catch_exceptions is on, in which
// case the record carries exception_info.
func (v *Validator) Expect(
	expectationType string,
	kwargs map[string]any,
	opts ...CallOption,
) (*result.Record, error) {
	return v.ExpectArgs(expectationType, nil, kwargs, opts...)
}

// ExpectArgs is Expect with positional arguments bound to the
// rule's argument names in order.
func (v *Validator) ExpectArgs(
	expectationType string,
	args []any,
	kwargs map[string]any,
	opts ...CallOption,
) (*result.Record, error) {
	def, ok := v.registry.Get(expectationType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExpectation, expectationType)
	}

	bound, err := bindArgs(def, args, kwargs)
	if err != nil {
		return nil, err
	}
	c, err := newCall(def, bound, opts)
	if err != nil {
		return nil, err
	}
	rec, _, err := v.evaluate(c)
	return rec, err
}

// EvaluateRule evaluates def without registering it. The
// expectation is never recorded in the suite.
func (v *Validator) EvaluateRule(
	def rule.Definition,
	kwargs map[string]any,
	opts ...CallOption,
) (*result.Record, error) {
	if err := def.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", expectation.ErrInvalidConfiguration, err)
	}
	c, err := newCall(def, expectation.CloneMap(kwargs), opts)
	if err != nil {
		return nil, err
	}
	c.record = false
	rec, _, err := v.evaluate(c)
	return rec, err
}

func bindArgs(
	def rule.Definition,
	args []any,
	kwargs map[string]any,
) (map[string]any, error) {
	if len(args) > len(def.Args) {
		return nil, fmt.Errorf("%w: %d given, %s accepts %d",
			suite.ErrTooManyArguments, len(args), def.Type, len(def.Args))
	}
	bound := make(map[string]any, len(args)+len(kwargs))
	for k, val := range kwargs {
		bound[k] = val
	}
	for i, arg := range args {
		name := def.Args[i]
		if _, dup := kwargs[name]; dup {
			return nil, fmt.Errorf(
				"%w: %s given both positionally and as a keyword",
				suite.ErrConflictingArguments, name,
			)
		}
		bound[name] = arg
	}
	return bound, nil
}

func newCall(
	def rule.Definition,
	kwargs map[string]any,
	opts []CallOption,
) (call, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	o := callOptions{kwargs: kwargs}
	for _, opt := range opts {
		opt(&o)
	}

	meta := o.meta
	if raw, ok := kwargs[KeyMeta]; ok {
		delete(kwargs, KeyMeta)
		if meta == nil && raw != nil {
			m, ok := raw.(map[string]any)
			if !ok {
				return call{}, fmt.Errorf("%w: meta must be an object, got %T",
					expectation.ErrInvalidConfiguration, raw)
			}
			meta = m
		}
	}
	return call{def: def, kwargs: kwargs, meta: meta, record: !o.noRecord}, nil
}

// evaluate runs c and returns the record together with the
// configuration that was (or would have been) recorded.
func (v *Validator) evaluate(
	c call,
) (*result.Record, *expectation.Configuration, error) {
	cfg, err := expectation.New(c.def.Type, c.kwargs, c.meta)
	if err != nil {
		return nil, nil, err
	}
	opts, err := ParseOptions(cfg.Kwargs, c.def.Kind, v.defaults)
	if err != nil {
		return nil, nil, err
	}

	ruleKwargs := cfg.Kwargs.Without(reservedKeys...)
	if err := checkArguments(c.def, ruleKwargs); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	rec, runErr := v.run(c.def, ruleKwargs, opts)
	elapsed := time.Since(start)

	if runErr != nil {
		ruleErr := newRuleError(c.def.Type, runErr)
		v.observeError(cfg, ruleErr, opts.CatchExceptions)
		if !opts.CatchExceptions {
			return nil, cfg, ruleErr
		}
		rec = result.Exception(ruleErr.Err, ruleErr.Stack)
	}

	if c.record {
		if err := v.suite.Add(cfg); err != nil {
			return nil, cfg, err
		}
		v.suite.RecordRun(cfg, rec.Success)
	}
	if opts.IncludeConfig {
		rec.ExpectationConfig = cfg.Clone()
	}
	if cfg.Meta != nil {
		rec.Meta = expectation.CloneMap(cfg.Meta)
	}

	v.observe(cfg, c.def.Kind, rec, elapsed)
	return rec, cfg, nil
}

func checkArguments(def rule.Definition, kwargs expectation.Kwargs) error {
	if def.Kind != rule.KindTable {
		raw, ok := kwargs["column"]
		if !ok || raw == nil {
			return fmt.Errorf("%w: %s requires column", ErrMissingArgument, def.Type)
		}
		if _, ok := raw.(string); !ok {
			return fmt.Errorf("%w: column must be a string, got %T",
				expectation.ErrInvalidConfiguration, raw)
		}
	}
	for _, key := range def.Required {
		if !kwargs.Has(key) {
			return fmt.Errorf("%w: %s requires %s", ErrMissingArgument, def.Type, key)
		}
	}
	if def.Validate != nil {
		if err := def.Validate(kwargs); err != nil {
			return fmt.Errorf("%s: %w", def.Type, err)
		}
	}
	return nil
}

// run evaluates the rule and formats its outcome. Panics inside
// the rule are returned as errors.
func (v *Validator) run(
	def rule.Definition,
	kwargs expectation.Kwargs,
	opts Options,
) (rec *result.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &RuleError{
				Type:  def.Type,
				Err:   fmt.Errorf("panic: %v", r),
				Stack: string(debug.Stack()),
			}
		}
	}()

	in := rule.Input{Source: v.source, Kwargs: kwargs}
	var (
		col     dataset.Column
		indices []int
	)
	if def.Kind != rule.KindTable {
		name, _ := kwargs.String("column")
		col, err = v.source.Column(name)
		if err != nil {
			return nil, err
		}
		in.Column = col
		if def.IncludeMissing {
			in.Values, indices = dataset.AllValues(col)
		} else {
			in.Values, indices = dataset.NonMissing(col)
		}
	}

	outcome, err := def.Func(in)
	if err != nil {
		return nil, err
	}

	switch def.Kind {
	case rule.KindMap:
		mo, ok := outcome.(rule.MapOutcome)
		if !ok {
			return nil, fmt.Errorf("map rule returned %T", outcome)
		}
		return formatMap(opts, col.Len(), in.Values, indices, mo.Pass)
	case rule.KindAggregate:
		ao, ok := outcome.(rule.AggregateOutcome)
		if !ok {
			return nil, fmt.Errorf("aggregate rule returned %T", outcome)
		}
		return result.FormatAggregate(opts.ResultFormat, ao.Success,
			ao.Observed, col.Len(), len(in.Values))
	default:
		ao, ok := outcome.(rule.AggregateOutcome)
		if !ok {
			return nil, fmt.Errorf("table rule returned %T", outcome)
		}
		return result.FormatTable(opts.ResultFormat, ao.Success, ao.Observed)
	}
}

// formatMap applies the threshold to per-element flags. Unless
// the rule includes missing elements, those were excluded before
// it ran and count in neither the numerator nor the denominator.
func formatMap(
	opts Options,
	elementCount int,
	values []any,
	indices []int,
	pass []bool,
) (*result.Record, error) {
	if len(pass) != len(values) {
		return nil, fmt.Errorf("rule returned %d flags for %d values",
			len(pass), len(values))
	}

	var (
		unexpected   []any
		unexpectedAt []int
	)
	for i, ok := range pass {
		if !ok {
			unexpected = append(unexpected, values[i])
			unexpectedAt = append(unexpectedAt, indices[i])
		}
	}

	nonnull := len(values)
	success, _ := threshold.Evaluate(nonnull-len(unexpected), nonnull, opts.Mostly)
	return result.FormatMap(opts.ResultFormat, success, elementCount,
		nonnull, len(unexpected), unexpected, unexpectedAt)
}

func (v *Validator) observe(
	cfg *expectation.Configuration,
	kind rule.Kind,
	rec *result.Record,
	elapsed time.Duration,
) {
	column, _ := cfg.Kwargs.String("column")
	entry := logging.EvaluationLog{
		RunID:           v.runID,
		ExpectationType: cfg.Type,
		Column:          column,
		Kind:            kind.String(),
		Success:         rec.Success,
		DurationMs:      float64(elapsed.Microseconds()) / 1000,
	}
	if rec.Result != nil {
		entry.ElementCount = rec.Result.ElementCount
		entry.UnexpectedCount = rec.Result.UnexpectedCount
	}
	if rec.ExceptionInfo != nil {
		entry.Exception = rec.ExceptionInfo.ExceptionMessage
	}

	v.logger.Debug("Evaluated expectation",
		logging.ExpectationField(cfg.Type),
		logging.StringField("column", column),
		logging.BoolField("success", rec.Success),
		logging.DurationField("duration_ms", elapsed),
	)
	v.logger.LogEvaluation(entry)
	v.metrics.RecordEvaluation(cfg.Type, kind.String(), rec.Success, elapsed)

	if v.collector == nil || rec.ExceptionInfo != nil {
		return
	}
	v.collector.EmitEvaluation(v.runID, cfg.Type, column, rec.Success,
		entry.ElementCount, entry.UnexpectedCount, elapsed)
}

func (v *Validator) observeError(
	cfg *expectation.Configuration,
	err *RuleError,
	caught bool,
) {
	column, _ := cfg.Kwargs.String("column")
	v.logger.Error("Expectation raised",
		logging.ExpectationField(cfg.Type),
		logging.StringField("column", column),
		logging.BoolField("caught", caught),
		logging.ErrorField(err.Err),
	)
	v.metrics.RecordException(cfg.Type)
	if v.collector != nil {
		v.collector.EmitException(v.runID, cfg.Type, column, err.Err.Error())
	}
}
