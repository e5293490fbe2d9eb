package dataset

import (
	"fmt"
	"strings"
)

// MissingColumnError reports a template column absent from a row. Templates
// may name optional columns, so callers usually skip the entry.
type MissingColumnError struct {
	Column string
	Row    int
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("dataset: column %q missing from row %d", e.Column, e.Row)
}

// ConflictingValuesError reports a non-rowwise column whose rows disagree.
type ConflictingValuesError struct {
	Column string
	Values []string
}

func (e *ConflictingValuesError) Error() string {
	quoted := make([]string, len(e.Values))
	for i, v := range e.Values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("dataset: column %q has multiple values (%s) but is not rowwise; correct the template or the data",
		e.Column, strings.Join(quoted, ", "))
}
