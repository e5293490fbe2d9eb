package value

import (
	"bytes"
	"encoding/json"
)

// Map is an insertion-ordered mapping from parameter name to Value.
// The zero value is not usable; create with NewMap.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Len returns the number of keys.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Get returns the value for key. Missing keys return Null and false.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value for key, or Null when absent.
func (m *Map) Value(key string) Value {
	return m.values[key]
}

// Set stores v under key. Overwriting keeps the original position.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// SetDefault stores v only when key is not yet present.
func (m *Map) SetDefault(key string, v Value) {
	if !m.Has(key) {
		m.Set(key, v)
	}
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Subgroup returns the nested Map stored under key, creating it when absent.
// A non-group value under key is replaced.
func (m *Map) Subgroup(key string) *Map {
	if g, ok := m.values[key].Group(); ok {
		return g
	}
	g := NewMap()
	m.Set(key, Group(g))
	return g
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// MarshalJSON renders m as a JSON object preserving key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
