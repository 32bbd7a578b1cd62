// Package result builds the structured outcome of one
// expectation evaluation at a requested verbosity level.
package result

import (
	"errors"
	"fmt"
	"strings"
)

// PartialUnexpectedCount is the number of unexpected values and
// distinct value counts kept in the partial lists.
const PartialUnexpectedCount = 20

// ErrUnknownFormat is returned for a verbosity level that is
// not one of BOOLEAN_ONLY, BASIC, SUMMARY or COMPLETE.
var ErrUnknownFormat = errors.New("unknown result format")

// Format is a verbosity level. Each level's result keys are a
// superset of the previous level's.
type Format int

const (
	// BooleanOnly reports success and nothing else.
	BooleanOnly Format = iota
	// Basic adds counts, percentages and a partial unexpected
	// list.
	Basic
	// Summary adds partial indices and value counts.
	Summary
	// Complete adds the full unexpected lists.
	Complete
)

var formatNames = [...]string{
	BooleanOnly: "BOOLEAN_ONLY",
	Basic:       "BASIC",
	Summary:     "SUMMARY",
	Complete:    "COMPLETE",
}

// ParseFormat converts a level name into a Format. Names are
// matched exactly; anything else is ErrUnknownFormat.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)",
		ErrUnknownFormat, s, strings.Join(formatNames[:], ", "))
}

// Valid reports whether f is a known level.
func (f Format) Valid() bool {
	return f >= BooleanOnly && f <= Complete
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// MarshalText encodes f by name.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(f))
	}
	return []byte(formatNames[f]), nil
}

// UnmarshalText decodes a level name.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func checkLevel(level Format) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownFormat, int(level))
	}
	return nil
}
