package suite

import "digital.vasic.expectations/pkg/expectation"

// MergeOptions controls Merge.
type MergeOptions struct {
	// Columns is the column universe of the merged data. When
	// set, records referencing other columns are dropped.
	Columns []string

	// KeepIncompatible keeps records that reference columns
	// outside Columns.
	KeepIncompatible bool
}

// Merge returns a new suite, with s's identity, holding the
// union of both suites' column-existence expectations. Only
// those expectations survive a merge; they are deduplicated by
// equality.
func (s *Suite) Merge(other *Suite, opts MergeOptions) *Suite {
	out := s.Clone()

	var allowed map[string]bool
	if opts.Columns != nil && !opts.KeepIncompatible {
		allowed = make(map[string]bool, len(opts.Columns))
		for _, c := range opts.Columns {
			allowed[c] = true
		}
	}

	var merged []*expectation.Configuration
	for _, src := range []*Suite{s, other} {
		if src == nil {
			continue
		}
		for _, e := range src.Expectations() {
			if e.Type != ColumnExistenceType {
				continue
			}
			if allowed != nil && !ReferencesOnly(e, allowed) {
				continue
			}
			if containsEqual(merged, e) {
				continue
			}
			merged = append(merged, e)
		}
	}

	out.mu.Lock()
	out.expectations = merged
	out.mu.Unlock()
	return out
}

func containsEqual(list []*expectation.Configuration, cfg *expectation.Configuration) bool {
	for _, e := range list {
		if e.Equal(cfg) {
			return true
		}
	}
	return false
}
