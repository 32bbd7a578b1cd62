// Package validator evaluates expectations against a tabular
// data source, records them in a suite, and validates whole
// suites.
package validator

import (
	"context"
	"errors"
	"time"

	"digital.vasic.expectations/pkg/config"
	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/logging"
	"digital.vasic.expectations/pkg/metrics"
	"digital.vasic.expectations/pkg/monitor"
	"digital.vasic.expectations/pkg/rule"
	"digital.vasic.expectations/pkg/suite"
)

// Configuration errors raised by Expect.
var (
	ErrUnknownExpectation = errors.New("unknown expectation type")
	ErrMissingArgument    = errors.New("missing required argument")
	ErrMostlyNotSupported = errors.New("mostly is only supported by map expectations")
)

// DefaultSuiteName names the suite of a validator built without
// one.
const DefaultSuiteName = "default"

// Validator binds a data source to a suite and the rules that
// can evaluate it. It is not safe for concurrent use.
type Validator struct {
	source    dataset.Source
	suite     *suite.Suite
	registry  *rule.Registry
	defaults  Defaults
	logger    logging.Logger
	metrics   metrics.Recorder
	collector *monitor.EventCollector
	hub       *monitor.Hub

	ownsLogger      bool
	failuresOnly    bool
	columnExistence bool
	runID           string
}

// Option configures a Validator.
type Option func(*Validator)

// WithSuite binds an existing suite. The validator's registry
// becomes its catalog.
func WithSuite(s *suite.Suite) Option {
	return func(v *Validator) { v.suite = s }
}

// WithRegistry sets the rules available to Expect.
func WithRegistry(r *rule.Registry) Option {
	return func(v *Validator) { v.registry = r }
}

// WithDefaults sets the initial default arguments.
func WithDefaults(d Defaults) Option {
	return func(v *Validator) { v.defaults = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(v *Validator) { v.metrics = m }
}

// WithCollector publishes evaluation events to c.
func WithCollector(c *monitor.EventCollector) Option {
	return func(v *Validator) { v.collector = c }
}

// WithColumnExistence evaluates and records
// expect_column_to_exist for every column of the source.
func WithColumnExistence() Option {
	return func(v *Validator) { v.columnExistence = true }
}

// New creates a validator over src.
func New(src dataset.Source, opts ...Option) *Validator {
	v := &Validator{
		source:   src,
		defaults: InitialDefaults(),
		logger:   logging.NullLogger{},
		metrics:  metrics.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.registry == nil {
		v.registry = rule.NewRegistry()
	}
	if v.suite == nil {
		v.suite = suite.New(DefaultSuiteName, suite.WithAssetType("Dataset"))
	}
	v.suite.SetCatalog(v.registry)

	if v.columnExistence {
		v.seedColumnExistence()
	}
	return v
}

// NewFromConfig creates a validator whose defaults, logger,
// metrics and monitor come from cfg. opts are applied after the
// configured ones.
func NewFromConfig(
	src dataset.Source,
	cfg *config.Config,
	opts ...Option,
) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithDefaults(Defaults{
			ResultFormat:    cfg.ResultFormat(),
			IncludeConfig:   cfg.Defaults.IncludeConfig,
			CatchExceptions: cfg.Defaults.CatchExceptions,
		}),
		WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		base = append(base, WithMetrics(metrics.Shared(cfg.Metrics.Namespace)))
	}
	var hub *monitor.Hub
	if cfg.Monitor.Enabled {
		collector := monitor.NewEventCollector()
		hub = monitor.NewHub(cfg.Monitor.Addr, collector, nil)
		base = append(base, WithCollector(collector))
	}

	v := New(src, append(base, opts...)...)
	v.ownsLogger = v.logger == logger
	if !v.ownsLogger {
		_ = logger.Close()
	}
	v.hub = hub
	v.failuresOnly = cfg.Validation.OnlyReturnFailures
	return v, nil
}

func (v *Validator) seedColumnExistence() {
	for _, column := range v.source.Columns() {
		if _, err := v.Expect(rule.ColumnToExist, map[string]any{
			"column": column,
		}); err != nil {
			v.logger.Warn("Could not seed column expectation",
				logging.StringField("column", column),
				logging.ErrorField(err),
			)
		}
	}
}

// Source returns the bound data source.
func (v *Validator) Source() dataset.Source { return v.source }

// Suite returns the live suite. Changes made through it are
// seen by the validator.
func (v *Validator) Suite() *suite.Suite { return v.suite }

// Registry returns the rule registry.
func (v *Validator) Registry() *rule.Registry { return v.registry }

// Logger returns the logger.
func (v *Validator) Logger() logging.Logger { return v.logger }

// Monitor returns the websocket hub configured by NewFromConfig,
// or nil.
func (v *Validator) Monitor() *monitor.Hub { return v.hub }

// Defaults returns the current default arguments.
func (v *Validator) Defaults() Defaults { return v.defaults }

// DefaultArguments returns the current defaults keyed by
// argument name.
func (v *Validator) DefaultArguments() map[string]any {
	return v.defaults.Arguments()
}

// SetDefault changes one default argument for later calls.
func (v *Validator) SetDefault(key string, value any) error {
	return v.defaults.Set(key, value)
}

// ResetDefaults restores InitialDefaults.
func (v *Validator) ResetDefaults() {
	v.defaults = InitialDefaults()
}

// Close stops the monitor and closes a logger created by
// NewFromConfig.
func (v *Validator) Close() error {
	var errs []error
	if v.hub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := v.hub.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if v.ownsLogger {
		if err := v.logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// child creates a validator over src sharing v's rules,
// defaults and ambient layers.
func (v *Validator) child(src dataset.Source, s *suite.Suite) *Validator {
	c := &Validator{
		source:    src,
		suite:     s,
		registry:  v.registry,
		defaults:  v.defaults,
		logger:    v.logger,
		metrics:   v.metrics,
		collector: v.collector,
	}
	c.suite.SetCatalog(c.registry)
	return c
}
