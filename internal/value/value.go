// Package value defines the typed values produced by template resolution:
// a tagged union of null, scalar, sequence and nested group, plus the
// insertion-ordered Map that holds resolved parameters.
package value

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a resolved parameter. Scalars and sequence elements are one of
// string, int64, float64, bool, Date or Coordinates; a nil sequence element
// means "no data" for that row.
type Value struct {
	kind   Kind
	scalar any
	seq    []any
	group  *Map
}

// Null returns the "no data provided" value.
func Null() Value { return Value{} }

// Scalar wraps a single typed value. A nil argument yields Null.
func Scalar(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{kind: KindScalar, scalar: v}
}

// Sequence wraps an ordered list of per-row values.
func Sequence(vs []any) Value {
	if vs == nil {
		vs = []any{}
	}
	return Value{kind: KindSequence, seq: vs}
}

// Strings builds a sequence from raw cell strings.
func Strings(ss []string) Value {
	vs := make([]any, len(ss))
	for i, s := range ss {
		vs[i] = s
	}
	return Sequence(vs)
}

// Group wraps a nested mapping.
func Group(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindGroup, group: m}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no data.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Scalar returns the wrapped scalar.
func (v Value) Scalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// Sequence returns the wrapped elements. The slice is shared; callers must
// not modify it.
func (v Value) Sequence() ([]any, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

// Group returns the nested mapping.
func (v Value) Group() (*Map, bool) {
	if v.kind != KindGroup {
		return nil, false
	}
	return v.group, true
}

// Empty reports whether v is null, an empty sequence, or a sequence whose
// elements are all nil. Groups are never empty in this sense.
func (v Value) Empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindSequence:
		for _, e := range v.seq {
			if e != nil {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Blank reports whether a raw extracted value carries nothing to coerce:
// null, the empty string, or a zero-length sequence.
func (v Value) Blank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindScalar:
		s, ok := v.scalar.(string)
		return ok && s == ""
	case KindSequence:
		return len(v.seq) == 0
	default:
		return false
	}
}

// MarshalJSON renders null, the scalar, the element array or the group object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindSequence:
		return json.Marshal(v.seq)
	case KindGroup:
		return v.group.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return fmt.Sprint(v.scalar)
	case KindSequence:
		return fmt.Sprint(v.seq)
	case KindGroup:
		b, _ := v.group.MarshalJSON()
		return string(b)
	default:
		return "<null>"
	}
}

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from a time, dropping the clock.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText renders d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat  float64
	Long float64
}

// MarshalJSON renders c as [lat, long].
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Long})
}
