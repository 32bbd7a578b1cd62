package expectation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

var cmpOpts = cmpopts.EquateEmpty()

// Kwargs maps parameter names to canonical JSON values: maps
// with string keys, []any, string, json.Number, bool and nil.
// Numbers keep their exact decimal value, so 4, 4.0 and
// int64(4) all become json.Number("4").
type Kwargs map[string]any

// Get returns the value stored under key.
func (k Kwargs) Get(key string) (any, bool) {
	v, ok := k[key]
	return v, ok
}

// Has reports whether key is present, even with a nil value.
func (k Kwargs) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// String returns the string stored under key. ok is false when
// the key is absent or not a string.
func (k Kwargs) String(key string) (string, bool) {
	s, ok := k[key].(string)
	return s, ok
}

// Float returns the number stored under key. ok is false when
// the key is absent, nil, or not a number.
func (k Kwargs) Float(key string) (float64, bool) {
	switch x := k[key].(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	}
	return 0, false
}

// Int returns the integer stored under key. ok is false when the
// key is absent, nil, or not an integral number that fits int64.
func (k Kwargs) Int(key string) (int64, bool) {
	switch x := k[key].(type) {
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	case float64:
		i := int64(x)
		return i, float64(i) == x
	}
	return 0, false
}

// Bool returns the boolean stored under key, or fallback.
func (k Kwargs) Bool(key string, fallback bool) bool {
	if b, ok := k[key].(bool); ok {
		return b
	}
	return fallback
}

// List returns the list stored under key.
func (k Kwargs) List(key string) ([]any, bool) {
	l, ok := k[key].([]any)
	return l, ok
}

// Without returns a copy of k with the given keys removed.
func (k Kwargs) Without(keys ...string) Kwargs {
	out := k.Clone()
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Clone returns a deep copy of k.
func (k Kwargs) Clone() Kwargs {
	if k == nil {
		return Kwargs{}
	}
	return Kwargs(CloneMap(k))
}

// Canonicalize converts v into the JSON value model, so that
// query values compare equal to stored kwargs (for example the
// int 4 and the float 4.0 both become json.Number("4")).
// Integers of any size survive unchanged.
func Canonicalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf(
			"value %v of type %T which cannot be serialized to json: %w",
			v, v, err,
		)
	}
	out, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return normalizeNumbers(out)
}

// decodeJSON decodes data keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeNumbers rewrites every json.Number in v to its
// shortest exact decimal spelling, in place.
func normalizeNumbers(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return json.Number(d.String()), nil
	case map[string]any:
		for key, item := range x {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			x[key] = n
		}
	case []any:
		for i, item := range x {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
	}
	return v, nil
}

// yamlValue converts json.Number values into Go numbers so that
// YAML emits them unquoted.
func yamlValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if d, err := decimal.NewFromString(x.String()); err == nil &&
			d.IsInteger() && d.Sign() > 0 {
			if u, err := strconv.ParseUint(d.String(), 10, 64); err == nil {
				return u
			}
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, item := range x {
			out[key] = yamlValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = yamlValue(item)
		}
		return out
	}
	return v
}

// YAMLMap is yamlValue for a whole map. nil stays nil.
func YAMLMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return yamlValue(m).(map[string]any)
}

func canonicalMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for key, v := range m {
		cv, err := Canonicalize(v)
		if err != nil {
			return nil, fmt.Errorf("key %q has %w", key, err)
		}
		out[key] = cv
	}
	return out, nil
}

// CloneMap deep-copies a map of JSON-model values. nil stays
// nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, v := range m {
		out[key] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
