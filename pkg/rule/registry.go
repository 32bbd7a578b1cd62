package rule

import (
	"fmt"
	"sort"
	"sync"
)

// Pack is a bundle of rules shipped by a third party.
type Pack interface {
	// Name identifies the pack in error messages.
	Name() string

	// Rules returns the definitions the pack provides.
	Rules() []Definition
}

// Registry maps expectation types to their definitions. It is
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Definition
}

// NewRegistry creates a Registry with the built-in rules
// pre-registered.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.registerDefaults()
	return r
}

// NewEmptyRegistry creates a Registry with no rules.
func NewEmptyRegistry() *Registry {
	return &Registry{rules: make(map[string]Definition)}
}

// registerDefaults registers the built-in rules.
func (r *Registry) registerDefaults() {
	for _, d := range builtins() {
		r.rules[d.Type] = d
	}
}

// Register adds a rule. Returns an error if the type is already
// registered or the definition is incomplete.
func (r *Registry) Register(d Definition) error {
	if err := d.Check(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[d.Type]; exists {
		return fmt.Errorf("rule type already registered: %s", d.Type)
	}
	r.rules[d.Type] = d
	return nil
}

// Install registers every rule of p. Nothing is registered when
// any of them is invalid or already present.
func (r *Registry) Install(p Pack) error {
	defs := p.Rules()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := d.Check(); err != nil {
			return fmt.Errorf("pack %s: %w", p.Name(), err)
		}
		if _, exists := r.rules[d.Type]; exists || seen[d.Type] {
			return fmt.Errorf(
				"pack %s: rule type already registered: %s",
				p.Name(), d.Type,
			)
		}
		seen[d.Type] = true
	}
	for _, d := range defs {
		r.rules[d.Type] = d
	}
	return nil
}

// Get returns the definition for expectationType.
func (r *Registry) Get(expectationType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.rules[expectationType]
	return d, ok
}

// Has reports whether expectationType is registered.
func (r *Registry) Has(expectationType string) bool {
	_, ok := r.Get(expectationType)
	return ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.rules))
	for t := range r.rules {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// PositionalArgs returns the positional argument names of
// expectationType, or nil when it is unknown.
func (r *Registry) PositionalArgs(expectationType string) []string {
	d, ok := r.Get(expectationType)
	if !ok {
		return nil
	}
	return append([]string(nil), d.Args...)
}

// Discriminators returns the discriminating kwargs of
// expectationType, or nil when the suite default applies.
func (r *Registry) Discriminators(expectationType string) []string {
	d, ok := r.Get(expectationType)
	if !ok || d.Discriminators == nil {
		return nil
	}
	return append([]string{}, d.Discriminators...)
}
