// Package suite holds an ordered collection of expectation
// configurations plus the identity of the data asset they
// describe, and implements the rules for adding, finding and
// removing them.
package suite

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"digital.vasic.expectations/pkg/expectation"
)

// Suite conflict errors. A failed operation leaves the suite
// unchanged.
var (
	ErrNoMatch              = errors.New("no matching expectation found")
	ErrAmbiguousMatch       = errors.New("multiple expectations matched arguments")
	ErrDuplicate            = errors.New("expectation already present")
	ErrConflictingArguments = errors.New("conflicting expectation arguments")
	ErrTooManyArguments     = errors.New("too many positional arguments")
)

// Suite is an ordered list of expectations. Its methods are
// safe for concurrent use; the exported identity fields are not
// guarded and should be set before the suite is shared.
type Suite struct {
	// Name is the suite name.
	Name string

	// AssetName names the data asset, when known.
	AssetName *string

	// AssetType names the kind of data asset, when known.
	AssetType *string

	// Meta carries annotations and the engine version marker.
	Meta map[string]any

	mu           sync.RWMutex
	expectations []*expectation.Configuration
	catalog      Catalog
}

// Option configures a Suite.
type Option func(*Suite)

// WithAssetName sets the data asset name.
func WithAssetName(name string) Option {
	return func(s *Suite) { s.AssetName = &name }
}

// WithAssetType sets the data asset type.
func WithAssetType(assetType string) Option {
	return func(s *Suite) { s.AssetType = &assetType }
}

// WithMeta sets the suite meta, stored in canonical JSON form
// where possible. The version marker is added when meta does not
// carry one.
func WithMeta(meta map[string]any) Option {
	return func(s *Suite) {
		s.Meta = make(map[string]any, len(meta)+1)
		for k, v := range meta {
			if cv, err := expectation.Canonicalize(v); err == nil {
				v = cv
			}
			s.Meta[k] = v
		}
	}
}

// WithCatalog sets the catalog used to interpret kwargs.
func WithCatalog(c Catalog) Option {
	return func(s *Suite) {
		if c != nil {
			s.catalog = c
		}
	}
}

// New creates an empty suite stamped with EngineVersion.
func New(name string, opts ...Option) *Suite {
	s := newBare(name)
	for _, opt := range opts {
		opt(s)
	}
	if s.Meta == nil {
		s.Meta = make(map[string]any, 1)
	}
	if _, ok := s.Meta[VersionKey]; !ok {
		s.Meta[VersionKey] = EngineVersion
	}
	return s
}

func newBare(name string) *Suite {
	return &Suite{
		Name:         name,
		expectations: []*expectation.Configuration{},
		catalog:      defaultCatalog{},
	}
}

// SetCatalog replaces the catalog, e.g. after decoding.
func (s *Suite) SetCatalog(c Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		c = defaultCatalog{}
	}
	s.catalog = c
}

// Len returns the number of expectations.
func (s *Suite) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expectations)
}

// Expectations returns copies of the expectations in order.
func (s *Suite) Expectations() []*expectation.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.expectations)
}

type addOptions struct {
	overwrite  bool
	duplicates bool
}

// AddOption changes how Add treats an existing match.
type AddOption func(*addOptions)

// NoOverwrite makes Add fail with ErrDuplicate instead of
// replacing a matching expectation.
func NoOverwrite() AddOption {
	return func(o *addOptions) { o.overwrite = false }
}

// AllowDuplicates makes Add append even when a match exists.
func AllowDuplicates() AddOption {
	return func(o *addOptions) { o.duplicates = true }
}

// Add inserts a copy of cfg. An existing expectation with the
// same type and discriminating kwargs is replaced in place
// unless NoOverwrite or AllowDuplicates is given.
func (s *Suite) Add(
	cfg *expectation.Configuration,
	opts ...AddOption,
) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil expectation",
			expectation.ErrInvalidConfiguration)
	}
	o := addOptions{overwrite: true}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if o.duplicates {
		s.expectations = append(s.expectations, cfg.Clone())
		return nil
	}

	matches := s.sameTargetLocked(cfg)
	switch {
	case len(matches) == 0:
		s.expectations = append(s.expectations, cfg.Clone())
	case !o.overwrite:
		return fmt.Errorf("%w: %s", ErrDuplicate, cfg.Type)
	case len(matches) > 1:
		return fmt.Errorf(
			"%w: %d expectations of type %s share its target",
			ErrAmbiguousMatch, len(matches), cfg.Type,
		)
	default:
		s.expectations[matches[0]] = cfg.Clone()
	}
	return nil
}

// sameTargetLocked returns the positions of expectations that
// share cfg's type and discriminating kwargs.
func (s *Suite) sameTargetLocked(cfg *expectation.Configuration) []int {
	keys := s.discriminators(cfg.Type)
	var out []int
	for i, e := range s.expectations {
		if e.Type != cfg.Type {
			continue
		}
		if sameValues(e.Kwargs, cfg.Kwargs, keys) {
			out = append(out, i)
		}
	}
	return out
}

func sameValues(a, b expectation.Kwargs, keys []string) bool {
	for _, k := range keys {
		av, aok := a[k]
		bv, bok := b[k]
		if aok != bok {
			return false
		}
		if aok && !cmp.Equal(av, bv, cmpopts.EquateEmpty()) {
			return false
		}
	}
	return true
}

// Query selects expectations. An empty Type matches any type.
// Args bind in order to the type's positional argument names;
// Kwargs must all be present with equal values.
type Query struct {
	Type   string
	Args   []any
	Kwargs map[string]any
}

// bind folds positional args into a canonical kwargs filter.
func (s *Suite) bind(q Query) (map[string]any, error) {
	filter := make(map[string]any, len(q.Args)+len(q.Kwargs))
	for k, v := range q.Kwargs {
		cv, err := expectation.Canonicalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: query kwarg %s: %v",
				expectation.ErrInvalidConfiguration, k, err)
		}
		filter[k] = cv
	}

	names := s.positionalArgs(q.Type)
	if len(q.Args) > len(names) {
		return nil, fmt.Errorf(
			"%w: %d given, %s accepts %d",
			ErrTooManyArguments, len(q.Args), q.Type, len(names),
		)
	}
	for i, arg := range q.Args {
		name := names[i]
		if _, dup := q.Kwargs[name]; dup {
			return nil, fmt.Errorf(
				"%w: %s given both positionally and as a keyword",
				ErrConflictingArguments, name,
			)
		}
		cv, err := expectation.Canonicalize(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: query argument %s: %v",
				expectation.ErrInvalidConfiguration, name, err)
		}
		filter[name] = cv
	}
	return filter, nil
}

func (s *Suite) matchLocked(q Query, filter map[string]any) []int {
	var out []int
	for i, e := range s.expectations {
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		ok := true
		for k, want := range filter {
			got, present := e.Kwargs[k]
			if !present || !cmp.Equal(got, want, cmpopts.EquateEmpty()) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Find returns copies of the expectations matching q, in suite
// order.
func (s *Suite) Find(q Query) ([]*expectation.Configuration, error) {
	filter, err := s.bind(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.matchLocked(q, filter)
	out := make([]*expectation.Configuration, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.expectations[i].Clone())
	}
	return out, nil
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// Multiple allows removing every match.
	Multiple bool

	// DryRun reports what would be removed without removing.
	DryRun bool
}

// Remove deletes the expectations matching q. With Multiple it
// returns every match. Otherwise exactly one must match: a dry
// run returns it, and a real removal returns nil.
func (s *Suite) Remove(
	q Query,
	opts RemoveOptions,
) ([]*expectation.Configuration, error) {
	filter, err := s.bind(q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.matchLocked(q, filter)
	switch {
	case len(idx) == 0:
		return nil, ErrNoMatch
	case len(idx) > 1 && !opts.Multiple:
		return nil, fmt.Errorf(
			"%w: %d found, no expectations removed",
			ErrAmbiguousMatch, len(idx),
		)
	}

	matched := make([]*expectation.Configuration, 0, len(idx))
	for _, i := range idx {
		matched = append(matched, s.expectations[i].Clone())
	}
	if !opts.DryRun {
		s.deleteLocked(idx)
	}

	if opts.Multiple || opts.DryRun {
		return matched, nil
	}
	return nil, nil
}

// deleteLocked removes the given ascending positions.
func (s *Suite) deleteLocked(idx []int) {
	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
	}
	kept := s.expectations[:0]
	for i, e := range s.expectations {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(s.expectations); i++ {
		s.expectations[i] = nil
	}
	s.expectations = kept
}

// Filter removes the expectations for which keep returns false
// and returns copies of them.
func (s *Suite) Filter(
	keep func(*expectation.Configuration) bool,
) []*expectation.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx []int
	removed := []*expectation.Configuration{}
	for i, e := range s.expectations {
		if !keep(e) {
			idx = append(idx, i)
			removed = append(removed, e.Clone())
		}
	}
	s.deleteLocked(idx)
	return removed
}

// Rewrite applies fn to every expectation in place.
func (s *Suite) Rewrite(fn func(*expectation.Configuration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expectations {
		fn(e)
	}
}

// RestrictToColumns removes the expectations that reference a
// column outside columns and returns copies of them.
// Expectations without a column reference stay.
func (s *Suite) RestrictToColumns(
	columns []string,
) []*expectation.Configuration {
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}
	return s.Filter(func(e *expectation.Configuration) bool {
		return ReferencesOnly(e, allowed)
	})
}

// ReferencedColumns returns the column names cfg's kwargs
// reference, in key order.
func ReferencedColumns(cfg *expectation.Configuration) []string {
	var out []string
	for _, k := range columnKeys {
		switch v := cfg.Kwargs[k].(type) {
		case string:
			out = append(out, v)
		case []any:
			for _, item := range v {
				if name, ok := item.(string); ok {
					out = append(out, name)
				}
			}
		}
	}
	return out
}

// ReferencesOnly reports whether every column cfg references is
// in allowed.
func ReferencesOnly(
	cfg *expectation.Configuration,
	allowed map[string]bool,
) bool {
	for _, c := range ReferencedColumns(cfg) {
		if !allowed[c] {
			return false
		}
	}
	return true
}

// RecordRun marks the stored expectations equal to cfg with the
// outcome of their latest evaluation. It reports whether any
// was found.
func (s *Suite) RecordRun(
	cfg *expectation.Configuration,
	success bool,
) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, e := range s.expectations {
		if e.Equal(cfg) {
			e.MarkRun(success)
			found = true
		}
	}
	return found
}

// Clone returns a deep copy of s sharing its catalog.
func (s *Suite) Clone() *Suite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := newBare(s.Name)
	out.catalog = s.catalog
	if s.AssetName != nil {
		name := *s.AssetName
		out.AssetName = &name
	}
	if s.AssetType != nil {
		assetType := *s.AssetType
		out.AssetType = &assetType
	}
	out.Meta = expectation.CloneMap(s.Meta)
	out.expectations = cloneAll(s.expectations)
	return out
}

// Equal reports whether s and other have the same identity,
// meta and expectations in the same order.
func (s *Suite) Equal(other *Suite) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s == other {
		return true
	}
	if s.Name != other.Name ||
		!equalPtr(s.AssetName, other.AssetName) ||
		!equalPtr(s.AssetType, other.AssetType) ||
		!cmp.Equal(s.Meta, other.Meta, cmpopts.EquateEmpty()) {
		return false
	}

	mine, theirs := s.Expectations(), other.Expectations()
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		if !mine[i].Equal(theirs[i]) {
			return false
		}
	}
	return true
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneAll(list []*expectation.Configuration) []*expectation.Configuration {
	out := make([]*expectation.Configuration, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}
