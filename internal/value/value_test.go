package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Empty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"nil scalar", Scalar(nil), true},
		{"scalar", Scalar("x"), false},
		{"empty string scalar", Scalar(""), false},
		{"empty sequence", Sequence(nil), true},
		{"all nil sequence", Sequence([]any{nil, nil}), true},
		{"partial sequence", Sequence([]any{nil, 1.5}), false},
		{"group", Group(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Empty())
		})
	}
}

func TestValue_Blank(t *testing.T) {
	assert.True(t, Null().Blank())
	assert.True(t, Scalar("").Blank())
	assert.True(t, Strings(nil).Blank())
	assert.False(t, Strings([]string{""}).Blank())
	assert.False(t, Scalar("a").Blank())
	assert.False(t, Scalar(int64(0)).Blank())
}

func TestValue_Accessors(t *testing.T) {
	s, ok := Scalar(int64(3)).Scalar()
	require.True(t, ok)
	assert.Equal(t, int64(3), s)

	_, ok = Scalar(int64(3)).Sequence()
	assert.False(t, ok)

	seq, ok := Strings([]string{"a", "b"}).Sequence()
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, seq)

	g, ok := Group(nil).Group()
	require.True(t, ok)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, KindGroup, Group(g).Kind())
	assert.Equal(t, "group", KindGroup.String())
}

func TestMap_OrderAndOverwrite(t *testing.T) {
	m := NewMap()
	m.Set("b", Scalar("1"))
	m.Set("a", Scalar("2"))
	m.Set("b", Scalar("3"))

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, Scalar("3"), m.Value("b"))

	m.SetDefault("b", Null())
	assert.Equal(t, Scalar("3"), m.Value("b"))
	m.SetDefault("c", Null())
	assert.True(t, m.Has("c"))

	m.Delete("b")
	assert.Equal(t, []string{"a", "c"}, m.Keys())
	m.Delete("missing")
	assert.Equal(t, 2, m.Len())
}

func TestMap_Subgroup(t *testing.T) {
	m := NewMap()
	g := m.Subgroup("chronologies")
	g.Subgroup("Linear").Set("age", Sequence([]any{1.0}))

	again := m.Subgroup("chronologies")
	assert.Same(t, g, again)
	assert.True(t, again.Subgroup("Linear").Has("age"))
}

func TestMap_MarshalJSON(t *testing.T) {
	m := NewMap()
	m.Set("sitename", Scalar("Mirror Lake"))
	m.Set("depth", Sequence([]any{1.0, nil}))
	m.Set("colldate", Scalar(NewDate(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))))
	m.Set("geog", Scalar(Coordinates{Lat: 43.9, Long: -71.7}))
	m.Subgroup("chronologies").Subgroup("Linear").Set("isdefault", Scalar(true))
	m.Set("notes", Null())

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"sitename":"Mirror Lake","depth":[1,null],"colldate":"2024-03-05","geog":[43.9,-71.7],"chronologies":{"Linear":{"isdefault":true}},"notes":null}`,
		string(b))
}

func TestDate_Time(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 5}
	assert.Equal(t, "2024-03-05", d.String())
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d.Time())
}
