// Package expectation defines the unit of configuration of the
// validation engine: a named expectation type plus its keyword
// arguments and free-form metadata.
package expectation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned when an expectation
// cannot be constructed, e.g. because its kwargs or meta cannot
// be represented as JSON.
var ErrInvalidConfiguration = errors.New("invalid expectation configuration")

// Configuration is a single expectation: its type, the kwargs it
// was called with, and optional user annotations. Two
// configurations are equal when their type and kwargs match;
// meta is not part of equality.
type Configuration struct {
	// Type names the expectation (e.g.
	// "expect_column_values_to_be_in_set").
	Type string

	// Kwargs holds the expectation's parameters in canonical
	// JSON form.
	Kwargs Kwargs

	// Meta holds user annotations in canonical JSON form. It
	// may be nil.
	Meta map[string]any

	lastRun *bool
}

// New builds a Configuration, validating that kwargs and meta
// are JSON-serializable and storing them in canonical form.
func New(
	expectationType string,
	kwargs map[string]any,
	meta map[string]any,
) (*Configuration, error) {
	if expectationType == "" {
		return nil, fmt.Errorf(
			"%w: expectation type is required",
			ErrInvalidConfiguration,
		)
	}

	canonKwargs, err := canonicalMap(kwargs)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: kwargs for %s: %v",
			ErrInvalidConfiguration, expectationType, err,
		)
	}
	if canonKwargs == nil {
		canonKwargs = map[string]any{}
	}

	canonMeta, err := canonicalMap(meta)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: meta for %s: %v",
			ErrInvalidConfiguration, expectationType, err,
		)
	}

	return &Configuration{
		Type:   expectationType,
		Kwargs: Kwargs(canonKwargs),
		Meta:   canonMeta,
	}, nil
}

// MustNew is New for static configurations in tests and
// fixtures. It panics on error.
func MustNew(
	expectationType string,
	kwargs map[string]any,
) *Configuration {
	c, err := New(expectationType, kwargs, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal reports whether c and other have the same type and
// kwargs.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Type == other.Type &&
		cmp.Equal(c.Kwargs, other.Kwargs, cmpOpts)
}

// EqualMeta reports whether c and other are Equal and also
// carry the same meta.
func (c *Configuration) EqualMeta(other *Configuration) bool {
	if !c.Equal(other) {
		return false
	}
	return cmp.Equal(c.Meta, other.Meta, cmpOpts)
}

// Clone returns a deep copy of c, including its last-run marker.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{
		Type:   c.Type,
		Kwargs: c.Kwargs.Clone(),
	}
	if c.Meta != nil {
		out.Meta = CloneMap(c.Meta)
	}
	if c.lastRun != nil {
		ok := *c.lastRun
		out.lastRun = &ok
	}
	return out
}

// MarkRun records whether the expectation passed the last time
// it was evaluated.
func (c *Configuration) MarkRun(success bool) {
	c.lastRun = &success
}

// LastRun returns the outcome of the last evaluation. ran is
// false when the expectation has not been evaluated.
func (c *Configuration) LastRun() (success, ran bool) {
	if c.lastRun == nil {
		return false, false
	}
	return *c.lastRun, true
}

// String renders c in its JSON form.
func (c *Configuration) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return c.Type
	}
	return string(data)
}

// document is the interchange shape of a Configuration.
type document struct {
	ExpectationType string         `json:"expectation_type" yaml:"expectation_type"`
	Kwargs          map[string]any `json:"kwargs" yaml:"kwargs"`
	Meta            map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

func (c *Configuration) document() document {
	kwargs := map[string]any(c.Kwargs)
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return document{
		ExpectationType: c.Type,
		Kwargs:          kwargs,
		Meta:            c.Meta,
	}
}

func (c *Configuration) fromDocument(doc document) error {
	built, err := New(doc.ExpectationType, doc.Kwargs, doc.Meta)
	if err != nil {
		return err
	}
	*c = *built
	return nil
}

// MarshalJSON encodes c as
// {"expectation_type": ..., "kwargs": {...}, "meta": {...}}.
func (c *Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.document())
}

// UnmarshalJSON decodes and re-validates a configuration.
// Numbers are decoded exactly.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return c.fromDocument(doc)
}

// MarshalYAML encodes c with the same field names as JSON.
func (c *Configuration) MarshalYAML() (any, error) {
	doc := c.document()
	doc.Kwargs = YAMLMap(doc.Kwargs)
	doc.Meta = YAMLMap(doc.Meta)
	return doc, nil
}

// UnmarshalYAML decodes and re-validates a configuration.
func (c *Configuration) UnmarshalYAML(node *yaml.Node) error {
	var doc document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return c.fromDocument(doc)
}
