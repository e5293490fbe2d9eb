package coerce

import "fmt"

// DateParseError reports a cell that is not a YYYY-MM-DD (or YYYY/MM/DD) date.
// Row is -1 for a collapsed, non-rowwise value.
type DateParseError struct {
	Column string
	Value  string
	Row    int
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("coerce: column %q%s: time data %q does not match format YYYY-MM-DD", e.Column, rowSuffix(e.Row), e.Value)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// TypeCoercionError reports an int, float or coordinate cell that does not parse.
type TypeCoercionError struct {
	Column string
	Type   string
	Value  string
	Row    int
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("coerce: column %q%s: cannot convert %q to %s", e.Column, rowSuffix(e.Row), e.Value, e.Type)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

func rowSuffix(row int) string {
	if row < 0 {
		return ""
	}
	return fmt.Sprintf(" row %d", row)
}
