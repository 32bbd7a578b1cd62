package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV loads a frame from CSV. The first record is the
// header. Empty cells are missing; other cells become int64 or
// float64 when they parse as one, bool for "true" and "false" in
// any case, and stay strings otherwise.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading csv: no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = cleanHeader(h)
	}

	data := make(map[string][]any, len(header))
	for _, name := range header {
		data[name] = make([]any, 0, len(records)-1)
	}
	for n, row := range records[1:] {
		if len(row) > len(header) {
			return nil, fmt.Errorf(
				"reading csv: line %d has %d fields, header has %d",
				n+2, len(row), len(header),
			)
		}
		for i, name := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			data[name] = append(data[name], convertCell(cell))
		}
	}

	return NewFrame(header, data)
}

func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(h)
}

func convertCell(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch {
	case strings.EqualFold(s, "true"):
		return true
	case strings.EqualFold(s, "false"):
		return false
	}
	return cell
}
