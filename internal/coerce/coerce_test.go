package coerce

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

func entryOf(t *testing.T, typ string, rowwise bool) template.Entry {
	t.Helper()
	idx, err := template.NewIndex([]template.Entry{{
		Path:    "ndb.samples.field",
		Column:  "Field",
		Type:    typ,
		Rowwise: rowwise,
	}})
	require.NoError(t, err)
	return idx.Entries()[0]
}

func TestApply_Date(t *testing.T) {
	want := value.Scalar(value.Date{Year: 2024, Month: time.March, Day: 5})
	e := entryOf(t, "date", false)

	for _, in := range []string{"2024-03-05", "2024/03/05", "2024-3-5", " 2024/03/05 "} {
		t.Run(in, func(t *testing.T) {
			got, err := Apply(e, value.Scalar(in))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestApply_Date_Rowwise(t *testing.T) {
	e := entryOf(t, "date", true)

	got, err := Apply(e, value.Strings([]string{"2001-01-02", "2001/12/31"}))
	require.NoError(t, err)
	assert.Equal(t, value.Sequence([]any{
		value.Date{Year: 2001, Month: time.January, Day: 2},
		value.Date{Year: 2001, Month: time.December, Day: 31},
	}), got)
}

func TestApply_Date_Missing(t *testing.T) {
	tests := []struct {
		name string
		raw  value.Value
		row  int
	}{
		{"scalar NA", value.Scalar("NA"), -1},
		{"rowwise NA", value.Strings([]string{"2001-01-02", "NA"}), 1},
		{"rowwise blank", value.Strings([]string{"", "2001-01-02"}), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(entryOf(t, "date", tt.raw.Kind() == value.KindSequence), tt.raw)
			var dateErr *DateParseError
			require.True(t, errors.As(err, &dateErr))
			assert.Equal(t, tt.row, dateErr.Row)
		})
	}
}

func TestApply_Date_Invalid(t *testing.T) {
	e := entryOf(t, "date", true)

	_, err := Apply(e, value.Strings([]string{"2001-01-02", "1998"}))
	var dateErr *DateParseError
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, "Field", dateErr.Column)
	assert.Equal(t, "1998", dateErr.Value)
	assert.Equal(t, 1, dateErr.Row)
	assert.Contains(t, err.Error(), "time data")
}

func TestApply_Int(t *testing.T) {
	got, err := Apply(entryOf(t, "int", false), value.Scalar(" 42 "))
	require.NoError(t, err)
	assert.Equal(t, value.Scalar(int64(42)), got)

	got, err = Apply(entryOf(t, "int", true), value.Strings([]string{"1", "2", "3"}))
	require.NoError(t, err)
	assert.Equal(t, value.Sequence([]any{int64(1), int64(2), int64(3)}), got)
}

func TestApply_Int_Missing(t *testing.T) {
	for _, cells := range [][]string{{"NA", "3"}, {"1", ""}} {
		_, err := Apply(entryOf(t, "int", true), value.Strings(cells))
		var typeErr *TypeCoercionError
		require.True(t, errors.As(err, &typeErr), "cells %q", cells)
		assert.Equal(t, "int", typeErr.Type)
	}

	_, err := Apply(entryOf(t, "int", false), value.Scalar("NA"))
	var typeErr *TypeCoercionError
	assert.True(t, errors.As(err, &typeErr))
}

func TestApply_Int_RejectsDecimal(t *testing.T) {
	_, err := Apply(entryOf(t, "int", false), value.Scalar("3.5"))
	var typeErr *TypeCoercionError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "int", typeErr.Type)
	assert.Equal(t, -1, typeErr.Row)
}

func TestApply_Float(t *testing.T) {
	tests := []struct {
		name    string
		rowwise bool
		raw     value.Value
		want    value.Value
	}{
		{"scalar", false, value.Scalar("3.25"), value.Scalar(3.25)},
		{"scalar NA", false, value.Scalar("NA"), value.Null()},
		{"scalar blank", false, value.Scalar(""), value.Null()},
		{"rowwise", true, value.Strings([]string{"1.0", "2.0", "3.0"}), value.Sequence([]any{1.0, 2.0, 3.0})},
		{"rowwise NA", true, value.Strings([]string{"NA", "", "2"}), value.Sequence([]any{nil, nil, 2.0})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(entryOf(t, "float", tt.rowwise), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_Float_Invalid(t *testing.T) {
	_, err := Apply(entryOf(t, "float", true), value.Strings([]string{"1", "abc"}))
	var typeErr *TypeCoercionError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, 1, typeErr.Row)
	assert.Contains(t, err.Error(), `cannot convert "abc" to float`)
}

func TestApply_Coordinates(t *testing.T) {
	e := entryOf(t, "coordinates (lat,long)", false)

	got, err := Apply(e, value.Scalar("43.94, -71.70"))
	require.NoError(t, err)
	assert.Equal(t, value.Scalar(value.Coordinates{Lat: 43.94, Long: -71.70}), got)

	// Rowwise coordinates still resolve to one pair.
	got, err = Apply(entryOf(t, "coordinates (lat,long)", true), value.Strings([]string{"1,2", "1,2"}))
	require.NoError(t, err)
	assert.Equal(t, value.Scalar(value.Coordinates{Lat: 1, Long: 2}), got)

	got, err = Apply(e, value.Scalar("NA"))
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestApply_Coordinates_RowwiseMustAgree(t *testing.T) {
	e := entryOf(t, "coordinates (lat,long)", true)

	got, err := Apply(e, value.Strings([]string{"", "1,2", "1,2"}))
	require.NoError(t, err)
	assert.Equal(t, value.Scalar(value.Coordinates{Lat: 1, Long: 2}), got)

	got, err = Apply(e, value.Strings(nil))
	require.NoError(t, err)
	assert.True(t, got.IsNull())

	_, err = Apply(e, value.Strings([]string{"1,2", "3,4"}))
	var conflict *dataset.ConflictingValuesError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Field", conflict.Column)
	assert.Equal(t, []string{"1,2", "3,4"}, conflict.Values)
}

func TestApply_Coordinates_Invalid(t *testing.T) {
	e := entryOf(t, "coordinates (lat,long)", false)
	for _, in := range []string{"43.94", "1,2,3", "north,west"} {
		t.Run(in, func(t *testing.T) {
			_, err := Apply(e, value.Scalar(in))
			var typeErr *TypeCoercionError
			assert.True(t, errors.As(err, &typeErr))
		})
	}
}

func TestApply_String(t *testing.T) {
	tests := []struct {
		name    string
		rowwise bool
		raw     value.Value
		want    value.Value
	}{
		{"scalar", false, value.Scalar("Mirror Lake"), value.Scalar("Mirror Lake")},
		{"scalar NA", false, value.Scalar(" NA "), value.Null()},
		{"scalar blank", false, value.Scalar(""), value.Null()},
		{"rowwise", true, value.Strings([]string{"a", "NA", ""}), value.Sequence([]any{"a", nil, nil})},
		{"rowwise all blank", true, value.Strings([]string{"", "NA", " "}), value.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(entryOf(t, "string", tt.rowwise), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_RawAndNull(t *testing.T) {
	raw := value.Strings([]string{"x", ""})
	got, err := Apply(entryOf(t, "", true), raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = Apply(entryOf(t, "float", false), value.Null())
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestYearFallback(t *testing.T) {
	tests := []struct {
		in   string
		want value.Value
	}{
		{"2019-07", value.Scalar(value.Date{Year: 2019, Month: time.July, Day: 1})},
		{"2019/07", value.Scalar(value.Date{Year: 2019, Month: time.July, Day: 1})},
		{"2019", value.Scalar(int64(2019))},
		{"2019-13", value.Scalar(int64(2019))},
		{"1998 AD", value.Scalar(int64(1998))},
		{"summer", value.Null()},
		{"19", value.Null()},
		{"", value.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, YearFallback(tt.in))
		})
	}
}
