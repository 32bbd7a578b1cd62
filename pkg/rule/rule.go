// Package rule defines expectation rules: the functions that
// classify column elements or compute column statistics, and the
// registry the validator dispatches through.
package rule

import (
	"fmt"

	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/expectation"
)

// Kind selects how the validator treats a rule's outcome.
type Kind int

const (
	// KindMap rules classify every non-missing element of a
	// column (every element, when the definition includes
	// missing ones) and are subject to mostly.
	KindMap Kind = iota
	// KindAggregate rules compute one statistic over a column.
	KindAggregate
	// KindTable rules inspect the table as a whole.
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindAggregate:
		return "aggregate"
	case KindTable:
		return "table"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the raw result of a rule: either a MapOutcome or an
// AggregateOutcome.
type Outcome interface {
	outcome()
}

// MapOutcome holds one pass flag per non-missing element, in
// column order.
type MapOutcome struct {
	Pass []bool
}

// AggregateOutcome holds a single verdict and the statistic it
// was based on. Table rules return one as well.
type AggregateOutcome struct {
	Success  bool
	Observed any
}

func (MapOutcome) outcome()       {}
func (AggregateOutcome) outcome() {}

// Input is what a rule is evaluated against.
type Input struct {
	// Source is the whole table.
	Source dataset.Source

	// Column is the target column. It is nil for table rules.
	Column dataset.Column

	// Values are the non-missing values of Column, in order.
	// For definitions with IncludeMissing they are all values,
	// missing elements as nil.
	Values []any

	// Kwargs are the expectation's parameters.
	Kwargs expectation.Kwargs
}

// Func evaluates a rule.
type Func func(in Input) (Outcome, error)

// Elementwise adapts a per-element predicate into a map rule.
func Elementwise(
	pred func(v any, kwargs expectation.Kwargs) (bool, error),
) Func {
	return func(in Input) (Outcome, error) {
		pass := make([]bool, len(in.Values))
		for i, v := range in.Values {
			ok, err := pred(v, in.Kwargs)
			if err != nil {
				return nil, err
			}
			pass[i] = ok
		}
		return MapOutcome{Pass: pass}, nil
	}
}

// Columnwise adapts a function that classifies all non-missing
// values at once, for predicates that need the whole column
// (uniqueness) or per-call setup (a compiled pattern).
func Columnwise(
	fn func(values []any, kwargs expectation.Kwargs) ([]bool, error),
) Func {
	return func(in Input) (Outcome, error) {
		pass, err := fn(in.Values, in.Kwargs)
		if err != nil {
			return nil, err
		}
		if len(pass) != len(in.Values) {
			return nil, fmt.Errorf(
				"rule returned %d flags for %d values",
				len(pass), len(in.Values),
			)
		}
		return MapOutcome{Pass: pass}, nil
	}
}

// Aggregate adapts a column statistic into an aggregate rule.
func Aggregate(
	fn func(values []any, kwargs expectation.Kwargs) (bool, any, error),
) Func {
	return func(in Input) (Outcome, error) {
		ok, observed, err := fn(in.Values, in.Kwargs)
		if err != nil {
			return nil, err
		}
		return AggregateOutcome{Success: ok, Observed: observed}, nil
	}
}

// Table adapts a table-level check.
func Table(
	fn func(src dataset.Source, kwargs expectation.Kwargs) (bool, any, error),
) Func {
	return func(in Input) (Outcome, error) {
		ok, observed, err := fn(in.Source, in.Kwargs)
		if err != nil {
			return nil, err
		}
		return AggregateOutcome{Success: ok, Observed: observed}, nil
	}
}

// Definition describes one expectation type.
type Definition struct {
	// Type is the expectation name, e.g.
	// "expect_column_values_to_be_in_set".
	Type string

	// Kind selects map, aggregate or table evaluation. Map and
	// aggregate rules require a "column" kwarg.
	Kind Kind

	// Args names the positional arguments in order.
	Args []string

	// Required lists kwargs that must be supplied.
	Required []string

	// Discriminators lists the kwargs that identify what the
	// expectation targets. nil means the suite default.
	Discriminators []string

	// IncludeMissing hands a map rule every element of the
	// column instead of only the non-missing ones, so that
	// missing elements can be classified and count toward
	// mostly.
	IncludeMissing bool

	// Validate checks kwargs before evaluation. Its errors are
	// configuration errors and are never caught.
	Validate func(kwargs expectation.Kwargs) error

	// Func evaluates the rule.
	Func Func
}

// Check validates d itself.
func (d Definition) Check() error {
	if d.Type == "" {
		return fmt.Errorf("rule definition has no type")
	}
	if d.Func == nil {
		return fmt.Errorf("rule %s has no function", d.Type)
	}
	if d.Kind < KindMap || d.Kind > KindTable {
		return fmt.Errorf("rule %s has invalid kind %d", d.Type, int(d.Kind))
	}
	if d.IncludeMissing && d.Kind != KindMap {
		return fmt.Errorf("rule %s: only map rules can include missing elements", d.Type)
	}
	return nil
}
