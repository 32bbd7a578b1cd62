package validator

import (
	"errors"
	"fmt"

	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/result"
)

// Reserved kwargs. They steer evaluation and are never handed
// to a rule.
const (
	KeyMostly          = "mostly"
	KeyResultFormat    = "result_format"
	KeyIncludeConfig   = "include_config"
	KeyCatchExceptions = "catch_exceptions"
	KeyMeta            = "meta"
)

var reservedKeys = []string{
	KeyMostly, KeyResultFormat, KeyIncludeConfig, KeyCatchExceptions,
}

// ErrUnknownDefault is returned by SetDefault for keys that have
// no default.
var ErrUnknownDefault = errors.New("unknown default argument")

// Defaults holds the values used when a call omits
// result_format, include_config or catch_exceptions.
type Defaults struct {
	ResultFormat    result.Format
	IncludeConfig   bool
	CatchExceptions bool
}

// InitialDefaults returns BASIC results, no embedded config and
// uncaught rule errors.
func InitialDefaults() Defaults {
	return Defaults{ResultFormat: result.Basic}
}

// Arguments returns d keyed by argument name.
func (d Defaults) Arguments() map[string]any {
	return map[string]any{
		KeyResultFormat:    d.ResultFormat.String(),
		KeyIncludeConfig:   d.IncludeConfig,
		KeyCatchExceptions: d.CatchExceptions,
	}
}

// Set changes one default. result_format accepts a level name
// or a result.Format; the others accept booleans.
func (d *Defaults) Set(key string, v any) error {
	switch key {
	case KeyResultFormat:
		switch f := v.(type) {
		case result.Format:
			if !f.Valid() {
				return fmt.Errorf("%w: %d", result.ErrUnknownFormat, int(f))
			}
			d.ResultFormat = f
		case string:
			parsed, err := result.ParseFormat(f)
			if err != nil {
				return err
			}
			d.ResultFormat = parsed
		default:
			return fmt.Errorf("%w: result_format must be a string, got %T",
				expectation.ErrInvalidConfiguration, v)
		}
	case KeyIncludeConfig, KeyCatchExceptions:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a boolean, got %T",
				expectation.ErrInvalidConfiguration, key, v)
		}
		if key == KeyIncludeConfig {
			d.IncludeConfig = b
		} else {
			d.CatchExceptions = b
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDefault, key)
	}
	return nil
}
