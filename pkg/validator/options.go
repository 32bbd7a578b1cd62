package validator

import (
	"fmt"

	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/rule"
	"digital.vasic.expectations/pkg/threshold"
)

type callOptions struct {
	kwargs   map[string]any
	meta     map[string]any
	noRecord bool
}

// CallOption adjusts a single Expect call. Options that set an
// argument behave exactly like passing it in kwargs, and win
// over a kwarg of the same name.
type CallOption func(*callOptions)

// WithMostly sets the fraction of non-missing elements that must
// pass.
func WithMostly(mostly float64) CallOption {
	return func(o *callOptions) { o.kwargs[KeyMostly] = mostly }
}

// WithResultFormat sets the verbosity of the returned record.
func WithResultFormat(f result.Format) CallOption {
	return func(o *callOptions) { o.kwargs[KeyResultFormat] = f.String() }
}

// WithCatchExceptions turns rule errors into failed records.
func WithCatchExceptions(catch bool) CallOption {
	return func(o *callOptions) { o.kwargs[KeyCatchExceptions] = catch }
}

// WithIncludeConfig embeds the expectation in the record.
func WithIncludeConfig(include bool) CallOption {
	return func(o *callOptions) { o.kwargs[KeyIncludeConfig] = include }
}

// WithMeta attaches annotations, stored with the expectation and
// echoed in the record.
func WithMeta(meta map[string]any) CallOption {
	return func(o *callOptions) { o.meta = meta }
}

// WithoutRecording evaluates without adding the expectation to
// the suite.
func WithoutRecording() CallOption {
	return func(o *callOptions) { o.noRecord = true }
}

// Options is the parsed form of the reserved kwargs.
type Options struct {
	// Mostly is nil when every element must pass.
	Mostly          *float64
	ResultFormat    result.Format
	IncludeConfig   bool
	CatchExceptions bool
}

// ParseOptions reads the reserved kwargs of a kind rule,
// falling back to d for those that are absent or null.
func ParseOptions(
	kwargs expectation.Kwargs,
	kind rule.Kind,
	d Defaults,
) (Options, error) {
	opts := Options{
		ResultFormat:    d.ResultFormat,
		IncludeConfig:   d.IncludeConfig,
		CatchExceptions: d.CatchExceptions,
	}

	if raw, ok := kwargs[KeyMostly]; ok && raw != nil {
		if kind != rule.KindMap {
			return opts, fmt.Errorf("%w: %s rules do not accept mostly",
				ErrMostlyNotSupported, kind)
		}
		m, ok := kwargs.Float(KeyMostly)
		if !ok {
			return opts, fmt.Errorf("%w: mostly must be a number, got %T",
				threshold.ErrInvalidMostly, raw)
		}
		if err := threshold.ValidateMostly(m); err != nil {
			return opts, err
		}
		opts.Mostly = &m
	}

	if raw, ok := kwargs[KeyResultFormat]; ok && raw != nil {
		name, ok := raw.(string)
		if !ok {
			return opts, fmt.Errorf("%w: %v", result.ErrUnknownFormat, raw)
		}
		f, err := result.ParseFormat(name)
		if err != nil {
			return opts, err
		}
		opts.ResultFormat = f
	}

	flags := []struct {
		key    string
		target *bool
	}{
		{KeyIncludeConfig, &opts.IncludeConfig},
		{KeyCatchExceptions, &opts.CatchExceptions},
	}
	for _, flag := range flags {
		raw, ok := kwargs[flag.key]
		if !ok || raw == nil {
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			return opts, fmt.Errorf("%w: %s must be a boolean, got %T",
				expectation.ErrInvalidConfiguration, flag.key, raw)
		}
		*flag.target = b
	}
	return opts, nil
}
