// Package coerce converts raw cell strings into typed values according to a
// template entry's declared type.
package coerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// dateLayout accepts zero-padded and bare month/day numbers.
const dateLayout = "2006-1-2"

type parseFunc func(string) (any, error)

// Apply coerces raw (a scalar string or a sequence of strings) to the entry's
// type. Sequences are converted element by element so row alignment holds.
// "NA" and blank cells become nil for float and string; int and date cells
// must parse.
func Apply(e template.Entry, raw value.Value) (value.Value, error) {
	if raw.IsNull() {
		return raw, nil
	}
	switch e.Kind() {
	case template.KindDate:
		return each(e, raw, parseDate)
	case template.KindInt:
		return each(e, raw, parseInt)
	case template.KindFloat:
		return each(e, raw, parseFloat)
	case template.KindCoordinates:
		return coordinates(e, raw)
	case template.KindString:
		return str(raw), nil
	default:
		return raw, nil
	}
}

func each(e template.Entry, raw value.Value, parse parseFunc) (value.Value, error) {
	if seq, ok := raw.Sequence(); ok {
		out := make([]any, len(seq))
		for i, el := range seq {
			s, ok := el.(string)
			if !ok {
				out[i] = el
				continue
			}
			v, err := parse(s)
			if err != nil {
				return value.Null(), fieldError(e, s, i, err)
			}
			out[i] = v
		}
		return value.Sequence(out), nil
	}

	sc, _ := raw.Scalar()
	s, ok := sc.(string)
	if !ok {
		return raw, nil
	}
	v, err := parse(s)
	if err != nil {
		return value.Null(), fieldError(e, s, -1, err)
	}
	return value.Scalar(v), nil
}

func fieldError(e template.Entry, raw string, row int, err error) error {
	if e.Kind() == template.KindDate {
		return &DateParseError{Column: e.Column, Value: raw, Row: row, Err: err}
	}
	return &TypeCoercionError{Column: e.Column, Type: e.Kind().String(), Value: raw, Row: row, Err: err}
}

func missing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "NA"
}

func parseDate(s string) (any, error) {
	t, err := time.Parse(dateLayout, strings.ReplaceAll(strings.TrimSpace(s), "/", "-"))
	if err != nil {
		return nil, err
	}
	return value.NewDate(t), nil
}

func parseInt(s string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseFloat(s string) (any, error) {
	if missing(s) {
		return nil, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// coordinates parses a "lat,long" cell. A site has one location, so per-row
// cells must agree the way collapsed columns do.
func coordinates(e template.Entry, raw value.Value) (value.Value, error) {
	var s string
	if seq, ok := raw.Sequence(); ok {
		cells := make([]string, len(seq))
		for i, el := range seq {
			cells[i], _ = el.(string)
		}
		one, err := dataset.Collapse(e.Column, cells)
		if err != nil {
			return value.Null(), err
		}
		sc, _ := one.Scalar()
		s, _ = sc.(string)
	} else {
		sc, _ := raw.Scalar()
		s, _ = sc.(string)
	}
	if missing(s) {
		return value.Null(), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return value.Null(), &TypeCoercionError{Column: e.Column, Type: e.Kind().String(), Value: s, Row: -1,
			Err: strconv.ErrSyntax}
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return value.Null(), fieldError(e, s, -1, err)
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return value.Null(), fieldError(e, s, -1, err)
	}
	return value.Scalar(value.Coordinates{Lat: lat, Long: long}), nil
}

// str normalizes blank and "NA" cells to nil; a sequence with nothing left
// collapses to Null.
func str(raw value.Value) value.Value {
	if seq, ok := raw.Sequence(); ok {
		out := make([]any, len(seq))
		for i, el := range seq {
			s, ok := el.(string)
			if !ok || missing(s) {
				continue
			}
			out[i] = s
		}
		v := value.Sequence(out)
		if v.Empty() {
			return value.Null()
		}
		return v
	}
	sc, _ := raw.Scalar()
	if s, ok := sc.(string); ok && missing(s) {
		return value.Null()
	}
	return raw
}
