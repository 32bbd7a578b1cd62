package rule

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/value"
)

var (
	// ErrMissingBound is returned when a bounds rule is called
	// with neither min_value nor max_value.
	ErrMissingBound = errors.New("min_value and max_value cannot both be None")

	// ErrInvalidArgument is returned when a rule argument has
	// the wrong type or an impossible value.
	ErrInvalidArgument = errors.New("invalid rule argument")
)

// Built-in expectation types.
const (
	ColumnToExist                 = "expect_column_to_exist"
	TableRowCountToBeBetween      = "expect_table_row_count_to_be_between"
	ColumnValuesToBeInSet         = "expect_column_values_to_be_in_set"
	ColumnValuesToNotBeInSet      = "expect_column_values_to_not_be_in_set"
	ColumnValuesToBeBetween       = "expect_column_values_to_be_between"
	ColumnValuesToBeUnique        = "expect_column_values_to_be_unique"
	ColumnValuesToMatchRegex      = "expect_column_values_to_match_regex"
	ColumnValuesToNotMatchRegex   = "expect_column_values_to_not_match_regex"
	ColumnValuesToNotBeNull       = "expect_column_values_to_not_be_null"
	ColumnValuesToBeNull          = "expect_column_values_to_be_null"
	ColumnValueLengthsToBeBetween = "expect_column_value_lengths_to_be_between"
	ColumnMeanToBeBetween         = "expect_column_mean_to_be_between"
	ColumnMedianToBeBetween       = "expect_column_median_to_be_between"
	ColumnStdevToBeBetween        = "expect_column_stdev_to_be_between"
	ColumnMostCommonValueInSet    = "expect_column_most_common_value_to_be_in_set"
)

func builtins() []Definition {
	return []Definition{
		{
			Type:     ColumnToExist,
			Kind:     KindTable,
			Args:     []string{"column", "column_index"},
			Required: []string{"column"},
			Validate: validateColumnToExist,
			Func:     Table(evaluateColumnToExist),
		},
		{
			Type:     TableRowCountToBeBetween,
			Kind:     KindTable,
			Args:     []string{"min_value", "max_value"},
			Validate: validateNumericBounds,
			Func:     Table(evaluateRowCountBetween),
		},
		{
			Type:     ColumnValuesToBeInSet,
			Kind:     KindMap,
			Args:     []string{"column", "value_set"},
			Required: []string{"column", "value_set"},
			Validate: validateValueSet,
			Func:     Elementwise(evaluateInSet),
		},
		{
			Type:     ColumnValuesToNotBeInSet,
			Kind:     KindMap,
			Args:     []string{"column", "value_set"},
			Required: []string{"column", "value_set"},
			Validate: validateValueSet,
			Func:     Elementwise(evaluateNotInSet),
		},
		{
			Type:     ColumnValuesToBeBetween,
			Kind:     KindMap,
			Args:     []string{"column", "min_value", "max_value"},
			Required: []string{"column"},
			Validate: validateBounds,
			Func:     Elementwise(withinBounds),
		},
		{
			Type:     ColumnValuesToBeUnique,
			Kind:     KindMap,
			Args:     []string{"column"},
			Required: []string{"column"},
			Func:     Columnwise(evaluateUnique),
		},
		{
			Type:     ColumnValuesToMatchRegex,
			Kind:     KindMap,
			Args:     []string{"column", "regex"},
			Required: []string{"column", "regex"},
			Validate: validateRegex,
			Func:     Columnwise(evaluateMatchRegex),
		},
		{
			Type:     ColumnValuesToNotMatchRegex,
			Kind:     KindMap,
			Args:     []string{"column", "regex"},
			Required: []string{"column", "regex"},
			Validate: validateRegex,
			Func:     Columnwise(evaluateNotMatchRegex),
		},
		{
			Type:           ColumnValuesToNotBeNull,
			Kind:           KindMap,
			Args:           []string{"column"},
			Required:       []string{"column"},
			IncludeMissing: true,
			Func:           Elementwise(evaluateNotNull),
		},
		{
			Type:           ColumnValuesToBeNull,
			Kind:           KindMap,
			Args:           []string{"column"},
			Required:       []string{"column"},
			IncludeMissing: true,
			Func:           Elementwise(evaluateNull),
		},
		{
			Type:     ColumnValueLengthsToBeBetween,
			Kind:     KindMap,
			Args:     []string{"column", "min_value", "max_value"},
			Required: []string{"column"},
			Validate: validateNumericBounds,
			Func:     Elementwise(evaluateLengthBetween),
		},
		{
			Type:     ColumnMeanToBeBetween,
			Kind:     KindAggregate,
			Args:     []string{"column", "min_value", "max_value"},
			Required: []string{"column"},
			Validate: validateNumericBounds,
			Func:     Aggregate(statBetween(Mean)),
		},
		{
			Type:     ColumnMedianToBeBetween,
			Kind:     KindAggregate,
			Args:     []string{"column", "min_value", "max_value"},
			Required: []string{"column"},
			Validate: validateNumericBounds,
			Func:     Aggregate(statBetween(Median)),
		},
		{
			Type:     ColumnStdevToBeBetween,
			Kind:     KindAggregate,
			Args:     []string{"column", "min_value", "max_value"},
			Required: []string{"column"},
			Validate: validateNumericBounds,
			Func:     Aggregate(statBetween(Stdev)),
		},
		{
			Type:     ColumnMostCommonValueInSet,
			Kind:     KindAggregate,
			Args:     []string{"column", "value_set", "ties_okay"},
			Required: []string{"column", "value_set"},
			Validate: validateValueSet,
			Func:     Aggregate(evaluateMostCommonInSet),
		},
	}
}

// validateColumnToExist requires a column name and an optional
// non-negative integer position.
func validateColumnToExist(kwargs expectation.Kwargs) error {
	if _, ok := kwargs.String("column"); !ok {
		return fmt.Errorf("%w: column must be a string", ErrInvalidArgument)
	}
	idx, ok := kwargs.Get("column_index")
	if !ok || idx == nil {
		return nil
	}
	i, ok := kwargs.Int("column_index")
	if !ok || i < 0 {
		return fmt.Errorf(
			"%w: column_index must be a non-negative integer, got %v",
			ErrInvalidArgument, idx,
		)
	}
	return nil
}

// evaluateColumnToExist checks that the column is present and,
// when column_index is given, at that position.
func evaluateColumnToExist(
	src dataset.Source,
	kwargs expectation.Kwargs,
) (bool, any, error) {
	name, _ := kwargs.String("column")
	if !src.HasColumn(name) {
		return false, nil, nil
	}
	idx, ok := kwargs.Int("column_index")
	if !ok {
		return true, nil, nil
	}
	cols := src.Columns()
	return idx < int64(len(cols)) && cols[idx] == name, nil, nil
}

// evaluateRowCountBetween reports the row count as the observed
// value.
func evaluateRowCountBetween(
	src dataset.Source,
	kwargs expectation.Kwargs,
) (bool, any, error) {
	count := src.RowCount()
	ok, err := withinBounds(count, kwargs)
	return ok, count, err
}

// validateValueSet requires value_set to be a list.
func validateValueSet(kwargs expectation.Kwargs) error {
	if _, ok := kwargs.List("value_set"); !ok {
		return fmt.Errorf("%w: value_set must be a list, got %T",
			ErrInvalidArgument, kwargs["value_set"])
	}
	if v, ok := kwargs.Get("ties_okay"); ok && v != nil {
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("%w: ties_okay must be a boolean",
				ErrInvalidArgument)
		}
	}
	return nil
}

func inSet(v any, set []any) bool {
	for _, s := range set {
		if value.Equal(v, s) {
			return true
		}
	}
	return false
}

// evaluateInSet passes elements that appear in value_set.
func evaluateInSet(v any, kwargs expectation.Kwargs) (bool, error) {
	set, _ := kwargs.List("value_set")
	return inSet(v, set), nil
}

// evaluateNotInSet passes elements absent from value_set.
func evaluateNotInSet(v any, kwargs expectation.Kwargs) (bool, error) {
	set, _ := kwargs.List("value_set")
	return !inSet(v, set), nil
}

// validateBounds accepts numeric or string bounds, at least one
// of which must be set.
func validateBounds(kwargs expectation.Kwargs) error {
	return checkBounds(kwargs, true)
}

// validateNumericBounds accepts numeric bounds only.
func validateNumericBounds(kwargs expectation.Kwargs) error {
	return checkBounds(kwargs, false)
}

func checkBounds(kwargs expectation.Kwargs, allowStrings bool) error {
	lo, hi := kwargs["min_value"], kwargs["max_value"]
	if lo == nil && hi == nil {
		return ErrMissingBound
	}
	for name, b := range map[string]any{"min_value": lo, "max_value": hi} {
		if b == nil || value.IsNumeric(b) {
			continue
		}
		if _, isString := b.(string); isString && allowStrings {
			continue
		}
		return fmt.Errorf("%w: %s has unsupported type %T",
			ErrInvalidArgument, name, b)
	}
	for _, flag := range []string{"strict_min", "strict_max"} {
		if v, ok := kwargs.Get(flag); ok && v != nil {
			if _, isBool := v.(bool); !isBool {
				return fmt.Errorf("%w: %s must be a boolean",
					ErrInvalidArgument, flag)
			}
		}
	}
	if lo != nil && hi != nil {
		c, err := compareBound(lo, hi)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if c > 0 {
			return fmt.Errorf("%w: min_value %v exceeds max_value %v",
				ErrInvalidArgument, lo, hi)
		}
	}
	return nil
}

// compareBound orders v against a bound. Numbers compare with
// numbers and strings with strings; anything else is an error.
func compareBound(v, bound any) (int, error) {
	if value.IsNumeric(v) && value.IsNumeric(bound) {
		return value.Compare(v, bound), nil
	}
	_, vs := v.(string)
	_, bs := bound.(string)
	if vs && bs {
		return value.Compare(v, bound), nil
	}
	return 0, fmt.Errorf("cannot compare %v (%T) with %v (%T)",
		v, v, bound, bound)
}

// withinBounds checks v against min_value and max_value, which
// are inclusive unless strict_min or strict_max is set.
func withinBounds(v any, kwargs expectation.Kwargs) (bool, error) {
	if lo := kwargs["min_value"]; lo != nil {
		c, err := compareBound(v, lo)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && kwargs.Bool("strict_min", false)) {
			return false, nil
		}
	}
	if hi := kwargs["max_value"]; hi != nil {
		c, err := compareBound(v, hi)
		if err != nil {
			return false, err
		}
		if c > 0 || (c == 0 && kwargs.Bool("strict_max", false)) {
			return false, nil
		}
	}
	return true, nil
}

// evaluateUnique fails every element whose value occurs more
// than once.
func evaluateUnique(values []any, _ expectation.Kwargs) ([]bool, error) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[value.Key(v)]++
	}
	pass := make([]bool, len(values))
	for i, v := range values {
		pass[i] = counts[value.Key(v)] == 1
	}
	return pass, nil
}

// validateRegex requires a compilable pattern.
func validateRegex(kwargs expectation.Kwargs) error {
	pattern, ok := kwargs.String("regex")
	if !ok {
		return fmt.Errorf("%w: regex must be a string", ErrInvalidArgument)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// evaluateNotNull passes present elements. Missing elements
// reach it as nil.
func evaluateNotNull(v any, _ expectation.Kwargs) (bool, error) {
	return v != nil, nil
}

// evaluateNull passes missing elements only.
func evaluateNull(v any, _ expectation.Kwargs) (bool, error) {
	return v == nil, nil
}

// evaluateNotMatchRegex passes elements whose text contains no
// match of regex.
func evaluateNotMatchRegex(
	values []any,
	kwargs expectation.Kwargs,
) ([]bool, error) {
	pass, err := evaluateMatchRegex(values, kwargs)
	if err != nil {
		return nil, err
	}
	for i := range pass {
		pass[i] = !pass[i]
	}
	return pass, nil
}

// evaluateLengthBetween checks the length of a string, in
// characters, against min_value and max_value. Other values have
// no length and are an error.
func evaluateLengthBetween(v any, kwargs expectation.Kwargs) (bool, error) {
	s, ok := v.(string)
	if !ok {
		return false, fmt.Errorf("%w: %v (%T) has no length",
			ErrInvalidArgument, v, v)
	}
	return withinBounds(utf8.RuneCountInString(s), kwargs)
}

// evaluateMatchRegex passes elements whose text contains a match
// of regex. Non-string values are matched by their fmt rendering.
func evaluateMatchRegex(
	values []any,
	kwargs expectation.Kwargs,
) ([]bool, error) {
	pattern, _ := kwargs.String("regex")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	pass := make([]bool, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		pass[i] = re.MatchString(s)
	}
	return pass, nil
}

// statBetween builds an aggregate rule that checks a statistic
// against min_value and max_value. An undefined statistic fails
// and is observed as nil.
func statBetween(
	stat func([]float64) (float64, bool),
) func([]any, expectation.Kwargs) (bool, any, error) {
	return func(values []any, kwargs expectation.Kwargs) (bool, any, error) {
		nums, err := Floats(values)
		if err != nil {
			return false, nil, err
		}
		observed, ok := stat(nums)
		if !ok {
			return false, nil, nil
		}
		pass, err := withinBounds(observed, kwargs)
		return pass, observed, err
	}
}

// evaluateMostCommonInSet observes the sorted list of modes. With
// ties_okay any mode in value_set passes; otherwise there must be
// a single mode and it must be in value_set.
func evaluateMostCommonInSet(
	values []any,
	kwargs expectation.Kwargs,
) (bool, any, error) {
	set, _ := kwargs.List("value_set")
	modes := Modes(values)

	hits := 0
	for _, m := range modes {
		if inSet(m, set) {
			hits++
		}
	}
	if kwargs.Bool("ties_okay", false) {
		return hits > 0, modes, nil
	}
	return len(modes) == 1 && hits == 1, modes, nil
}

// Modes returns the most frequent values sorted by value order.
func Modes(values []any) []any {
	type entry struct {
		v     any
		count int
	}
	entries := make(map[string]*entry, len(values))
	best := 0
	for _, v := range values {
		key := value.Key(v)
		e, ok := entries[key]
		if !ok {
			e = &entry{v: v}
			entries[key] = e
		}
		e.count++
		if e.count > best {
			best = e.count
		}
	}

	modes := make([]any, 0)
	for _, e := range entries {
		if e.count == best {
			modes = append(modes, e.v)
		}
	}
	sort.SliceStable(modes, func(i, j int) bool {
		return value.Compare(modes[i], modes[j]) < 0
	})
	return modes
}
