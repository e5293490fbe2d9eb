// Package dataset holds tabular upload data as ordered row records and
// extracts template columns from it.
package dataset

import (
	"maps"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neotomadb/neotoma-loader/internal/value"
)

// Row maps a column name to its raw cell text.
type Row map[string]string

// Dataset is an ordered sequence of rows. Row order is the only link between
// per-row values of different columns and is never changed.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// FromRows wraps already-materialized rows. Columns are the first row's keys,
// sorted.
func FromRows(rows []Row) *Dataset {
	d := &Dataset{Rows: rows}
	if len(rows) > 0 {
		d.Columns = slices.Sorted(maps.Keys(rows[0]))
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn reports whether the header declares name.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns every row's cell for name in row order.
func (d *Dataset) Column(name string) ([]string, error) {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		v, ok := r[name]
		if !ok {
			return nil, &MissingColumnError{Column: name, Row: i}
		}
		out[i] = v
	}
	return out, nil
}

// Extract pulls column from every row. Without collapse it returns the cells
// as an ordered sequence. With collapse the rows must agree on one value:
// case-insensitive agreement counts, and a single blank alongside one value
// is tolerated. An empty dataset yields Null either way.
func (d *Dataset) Extract(column string, collapse bool) (value.Value, error) {
	if d.Len() == 0 {
		return value.Null(), nil
	}
	cells, err := d.Column(column)
	if err != nil {
		return value.Null(), err
	}
	if !collapse {
		return value.Strings(cells), nil
	}
	return Collapse(column, cells)
}

// Collapse reduces cells to the one value they agree on, under the same rules
// as Extract with collapse.
func Collapse(column string, cells []string) (value.Value, error) {
	lower := cases.Lower(language.Und)

	var distinct []string
	seen := make(map[string]bool)
	folded := make(map[string]bool)
	for _, c := range cells {
		if !seen[c] {
			seen[c] = true
			distinct = append(distinct, c)
		}
		folded[lower.String(c)] = true
	}

	switch {
	case len(folded) == 1:
		return value.Scalar(distinct[0]), nil
	case len(distinct) == 0:
		return value.Null(), nil
	case len(distinct) == 2 && (distinct[0] == "" || distinct[1] == ""):
		if distinct[0] == "" {
			return value.Scalar(distinct[1]), nil
		}
		return value.Scalar(distinct[0]), nil
	default:
		return value.Null(), &ConflictingValuesError{Column: column, Values: distinct}
	}
}
