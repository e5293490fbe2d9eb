package template

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Index is a read-only lookup over a template's metadata entries. It is safe
// for concurrent use once built.
type Index struct {
	entries []Entry
}

// NewIndex prepares the entries and indexes them. An empty collection or an
// entry without a Neotoma path is a ConfigurationError.
func NewIndex(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, &ConfigurationError{Reason: "template has no metadata entries"}
	}
	idx := &Index{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("metadata entry %d has no neotoma path", i)}
		}
		e.prepare()
		idx.entries[i] = e
	}
	return idx, nil
}

// Len returns the number of entries.
func (x *Index) Len() int { return len(x.entries) }

// Entries returns a copy of all entries in template order.
func (x *Index) Entries() []Entry {
	out := make([]Entry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Find returns every entry whose path contains prefix+field aligned on word
// boundaries, so "sites.site" does not match "sites.siteid".
func (x *Index) Find(prefix, field string) []Entry {
	q := NormalizePrefix(prefix) + field
	var out []Entry
	for _, e := range x.entries {
		if containsBounded(e.Path, q) {
			out = append(out, e)
		}
	}
	return out
}

// ByColumn returns the entries reading the given source column. Used for wide
// datasets where the column name identifies the field.
func (x *Index) ByColumn(column string) []Entry {
	var out []Entry
	for _, e := range x.entries {
		if e.Column == column {
			out = append(out, e)
		}
	}
	return out
}

// Expand replaces each requested field that acts only as a grouping label
// (the template maps prefix.field.<sub> rather than prefix.field) with its
// dotted sub-fields. The result is deduplicated and keeps request order.
func (x *Index) Expand(prefix string, fields []string) []string {
	prefix = NormalizePrefix(prefix)
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, f := range fields {
		var subs []string
		label := prefix + f + "."
		for _, e := range x.entries {
			i := indexBounded(e.Path, label)
			if i < 0 || len(e.Path) == i+len(label) {
				continue
			}
			subs = append(subs, f+"."+e.Path[i+len(label):])
		}
		if len(subs) == 0 {
			add(f)
			continue
		}
		for _, s := range subs {
			add(s)
		}
	}
	return out
}

// Required reports, per field, whether the template marks it required. A field
// counts as required only when exactly one entry maps it.
func (x *Index) Required(prefix string, fields []string) map[string]bool {
	return x.flags(prefix, fields, func(e Entry) bool { return e.Required })
}

// Overwrite reports, per field, whether existing database values may be
// replaced. The geog flag also governs the derived coordinate columns.
func (x *Index) Overwrite(prefix string, fields []string) map[string]bool {
	out := x.flags(prefix, fields, func(e Entry) bool { return e.Overwrite })
	if g, ok := out["geog"]; ok {
		for _, k := range []string{"coordlo", "coordla", "ns", "ew"} {
			out[k] = g
		}
	}
	return out
}

func (x *Index) flags(prefix string, fields []string, pick func(Entry) bool) map[string]bool {
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		matches := x.Find(prefix, f)
		out[f] = len(matches) == 1 && pick(matches[0])
	}
	return out
}

func containsBounded(s, q string) bool {
	return indexBounded(s, q) >= 0
}

// indexBounded returns the first index of q in s where q is not glued to a
// word character on either side, or -1.
func indexBounded(s, q string) int {
	if q == "" {
		return -1
	}
	from := 0
	for from <= len(s)-len(q) {
		i := strings.Index(s[from:], q)
		if i < 0 {
			return -1
		}
		i += from
		if boundaryBefore(s, i, q) && boundaryAfter(s, i+len(q), q) {
			return i
		}
		from = i + 1
	}
	return -1
}

func boundaryBefore(s string, i int, q string) bool {
	first, _ := utf8.DecodeRuneInString(q)
	if !isWord(first) || i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWord(prev)
}

func boundaryAfter(s string, end int, q string) bool {
	last, _ := utf8.DecodeLastRuneInString(q)
	if !isWord(last) || end >= len(s) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	return !isWord(next)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
