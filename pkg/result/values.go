package result

import (
	"encoding/json"
	"fmt"
)

// Result keys.
const (
	KeyObservedValue               = "observed_value"
	KeyElementCount                = "element_count"
	KeyMissingCount                = "missing_count"
	KeyMissingPercent              = "missing_percent"
	KeyUnexpectedCount             = "unexpected_count"
	KeyUnexpectedPercent           = "unexpected_percent"
	KeyUnexpectedPercentNonmissing = "unexpected_percent_nonmissing"
	KeyPartialUnexpectedList       = "partial_unexpected_list"
	KeyPartialUnexpectedIndexList  = "partial_unexpected_index_list"
	KeyPartialUnexpectedCounts     = "partial_unexpected_counts"
	KeyUnexpectedList              = "unexpected_list"
	KeyUnexpectedIndexList         = "unexpected_index_list"
)

type kind int

const (
	kindMap kind = iota
	kindAggregate
	kindTable
)

// ValueCount is one entry of partial_unexpected_counts.
type ValueCount struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// Values is the "result" mapping of a Record. Which fields are
// meaningful depends on how it was built; Keys reports them and
// JSON encoding emits exactly those keys.
type Values struct {
	kind        kind
	level       Format
	hasObserved bool

	ObservedValue               any
	ElementCount                int
	MissingCount                int
	MissingPercent              *float64
	UnexpectedCount             int
	UnexpectedPercent           *float64
	UnexpectedPercentNonmissing *float64
	PartialUnexpectedList       []any
	PartialUnexpectedIndexList  []int
	PartialUnexpectedCounts     []ValueCount
	UnexpectedList              []any
	UnexpectedIndexList         []int
}

// Keys returns the result keys present at this kind and level.
func (v *Values) Keys() []string {
	switch v.kind {
	case kindAggregate:
		return []string{
			KeyObservedValue,
			KeyElementCount,
			KeyMissingCount,
			KeyMissingPercent,
		}
	case kindTable:
		if v.hasObserved {
			return []string{KeyObservedValue}
		}
		return []string{}
	}

	keys := []string{
		KeyElementCount,
		KeyMissingCount,
		KeyMissingPercent,
		KeyUnexpectedCount,
		KeyUnexpectedPercent,
		KeyUnexpectedPercentNonmissing,
		KeyPartialUnexpectedList,
	}
	if v.level >= Summary {
		keys = append(keys,
			KeyPartialUnexpectedIndexList,
			KeyPartialUnexpectedCounts,
		)
	}
	if v.level >= Complete {
		keys = append(keys,
			KeyUnexpectedList,
			KeyUnexpectedIndexList,
		)
	}
	return keys
}

// Get returns the value reported under key, as it would be
// encoded. Percentages that are not defined come back as a nil
// *float64.
func (v *Values) Get(key string) (any, bool) {
	for _, k := range v.Keys() {
		if k == key {
			return v.field(key), true
		}
	}
	return nil, false
}

// Map returns the result as a plain mapping.
func (v *Values) Map() map[string]any {
	keys := v.Keys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = v.field(k)
	}
	return out
}

func (v *Values) field(key string) any {
	switch key {
	case KeyObservedValue:
		return v.ObservedValue
	case KeyElementCount:
		return v.ElementCount
	case KeyMissingCount:
		return v.MissingCount
	case KeyMissingPercent:
		return v.MissingPercent
	case KeyUnexpectedCount:
		return v.UnexpectedCount
	case KeyUnexpectedPercent:
		return v.UnexpectedPercent
	case KeyUnexpectedPercentNonmissing:
		return v.UnexpectedPercentNonmissing
	case KeyPartialUnexpectedList:
		return v.PartialUnexpectedList
	case KeyPartialUnexpectedIndexList:
		return v.PartialUnexpectedIndexList
	case KeyPartialUnexpectedCounts:
		return v.PartialUnexpectedCounts
	case KeyUnexpectedList:
		return v.UnexpectedList
	case KeyUnexpectedIndexList:
		return v.UnexpectedIndexList
	}
	return nil
}

// MarshalJSON emits exactly the keys of Keys.
func (v *Values) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON restores a result mapping, inferring its kind
// and level from the keys present.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	out := Values{}
	_, hasUnexpected := raw[KeyUnexpectedCount]
	_, hasElements := raw[KeyElementCount]
	_, hasObserved := raw[KeyObservedValue]
	switch {
	case hasUnexpected:
		out.kind = kindMap
		out.level = Basic
		if _, ok := raw[KeyPartialUnexpectedCounts]; ok {
			out.level = Summary
		}
		if _, ok := raw[KeyUnexpectedList]; ok {
			out.level = Complete
		}
	case hasElements:
		out.kind = kindAggregate
		out.level = Basic
	default:
		out.kind = kindTable
		out.level = Basic
		out.hasObserved = hasObserved
	}

	targets := map[string]any{
		KeyObservedValue:               &out.ObservedValue,
		KeyElementCount:                &out.ElementCount,
		KeyMissingCount:                &out.MissingCount,
		KeyMissingPercent:              &out.MissingPercent,
		KeyUnexpectedCount:             &out.UnexpectedCount,
		KeyUnexpectedPercent:           &out.UnexpectedPercent,
		KeyUnexpectedPercentNonmissing: &out.UnexpectedPercentNonmissing,
		KeyPartialUnexpectedList:       &out.PartialUnexpectedList,
		KeyPartialUnexpectedIndexList:  &out.PartialUnexpectedIndexList,
		KeyPartialUnexpectedCounts:     &out.PartialUnexpectedCounts,
		KeyUnexpectedList:              &out.UnexpectedList,
		KeyUnexpectedIndexList:         &out.UnexpectedIndexList,
	}
	for key, msg := range raw {
		target, ok := targets[key]
		if !ok {
			return fmt.Errorf("decoding result: unknown key %q", key)
		}
		if err := json.Unmarshal(msg, target); err != nil {
			return fmt.Errorf("decoding result key %s: %w", key, err)
		}
	}

	*v = out
	return nil
}
