// Package dataset defines the tabular data the validator reads
// and provides an in-memory implementation.
package dataset

import (
	"errors"
	"fmt"

	"digital.vasic.expectations/pkg/value"
)

// ErrColumnNotFound is returned when a column name is unknown.
var ErrColumnNotFound = errors.New("column not found")

// Source is a table of named columns of equal length.
type Source interface {
	// Columns returns the column names in table order.
	Columns() []string

	// HasColumn reports whether name is a column.
	HasColumn(name string) bool

	// Column returns the named column or ErrColumnNotFound.
	Column(name string) (Column, error)

	// RowCount returns the number of rows.
	RowCount() int
}

// Column is an ordered sequence of values. Positions run from 0
// to Len()-1; Index maps a position to its stable row index in
// the table the data was first loaded into.
type Column interface {
	Len() int
	Value(i int) any
	IsMissing(i int) bool
	Index(i int) int
}

// NonMissing returns the non-missing values of col and their
// row indices, in order.
func NonMissing(col Column) ([]any, []int) {
	values := make([]any, 0, col.Len())
	indices := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		values = append(values, col.Value(i))
		indices = append(indices, col.Index(i))
	}
	return values, indices
}

// AllValues returns every value of col with its row index.
// Missing elements come back as nil, whatever their stored form.
func AllValues(col Column) ([]any, []int) {
	values := make([]any, col.Len())
	indices := make([]int, col.Len())
	for i := range values {
		if !col.IsMissing(i) {
			values[i] = col.Value(i)
		}
		indices[i] = col.Index(i)
	}
	return values, indices
}

// Frame is an in-memory Source. A Frame is immutable once
// built; Select, Slice and Take return new frames that share
// value storage and keep the original row indices.
type Frame struct {
	names  []string
	pos    map[string]int
	data   [][]any
	rowIdx []int
}

// NewFrame builds a frame from column names and per-column
// values. Every column must have the same length and names must
// be unique.
func NewFrame(columns []string, data map[string][]any) (*Frame, error) {
	f := &Frame{
		names: append([]string{}, columns...),
		pos:   make(map[string]int, len(columns)),
		data:  make([][]any, len(columns)),
	}

	rows := -1
	for i, name := range columns {
		if _, dup := f.pos[name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", name)
		}
		values, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("%w: no data for %s",
				ErrColumnNotFound, name)
		}
		if rows >= 0 && len(values) != rows {
			return nil, fmt.Errorf(
				"column %s has %d rows, expected %d",
				name, len(values), rows,
			)
		}
		rows = len(values)
		f.pos[name] = i
		f.data[i] = values
	}
	if len(data) != len(columns) {
		return nil, fmt.Errorf(
			"data has %d columns but %d names were given",
			len(data), len(columns),
		)
	}

	if rows < 0 {
		rows = 0
	}
	f.rowIdx = make([]int, rows)
	for i := range f.rowIdx {
		f.rowIdx[i] = i
	}
	return f, nil
}

// MustFrame is NewFrame for fixtures. It panics on error.
func MustFrame(columns []string, data map[string][]any) *Frame {
	f, err := NewFrame(columns, data)
	if err != nil {
		panic(err)
	}
	return f
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string{}, f.names...)
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.pos[name]
	return ok
}

// RowCount returns the number of rows.
func (f *Frame) RowCount() int {
	return len(f.rowIdx)
}

// Column returns a view of the named column.
func (f *Frame) Column(name string) (Column, error) {
	p, ok := f.pos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return &frameColumn{values: f.data[p], rows: f.rowIdx}, nil
}

// Select returns a frame with only the named columns.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	out := &Frame{
		names:  append([]string{}, columns...),
		pos:    make(map[string]int, len(columns)),
		data:   make([][]any, len(columns)),
		rowIdx: f.rowIdx,
	}
	for i, name := range columns {
		p, ok := f.pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		if _, dup := out.pos[name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", name)
		}
		out.pos[name] = i
		out.data[i] = f.data[p]
	}
	return out, nil
}

// Slice returns rows [start, end).
func (f *Frame) Slice(start, end int) (*Frame, error) {
	if start < 0 || end > f.RowCount() || start > end {
		return nil, fmt.Errorf(
			"slice [%d:%d] out of range for %d rows",
			start, end, f.RowCount(),
		)
	}
	positions := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		positions = append(positions, i)
	}
	return f.Take(positions)
}

// Take returns the rows at the given positions, in that order.
func (f *Frame) Take(positions []int) (*Frame, error) {
	out := &Frame{
		names:  f.names,
		pos:    f.pos,
		data:   make([][]any, len(f.data)),
		rowIdx: make([]int, len(positions)),
	}
	for _, p := range positions {
		if p < 0 || p >= f.RowCount() {
			return nil, fmt.Errorf(
				"row %d out of range for %d rows", p, f.RowCount(),
			)
		}
	}
	for c, values := range f.data {
		col := make([]any, len(positions))
		for i, p := range positions {
			col[i] = values[p]
		}
		out.data[c] = col
	}
	for i, p := range positions {
		out.rowIdx[i] = f.rowIdx[p]
	}
	return out, nil
}

type frameColumn struct {
	values []any
	rows   []int
}

func (c *frameColumn) Len() int             { return len(c.values) }
func (c *frameColumn) Value(i int) any      { return c.values[i] }
func (c *frameColumn) IsMissing(i int) bool { return value.IsMissing(c.values[i]) }
func (c *frameColumn) Index(i int) int      { return c.rows[i] }
