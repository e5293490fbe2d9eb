package params

import (
	"fmt"
	"strings"

	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// Finalize drops every named chronology or sample-age entity whose age fields
// are all empty, scalar or per-row alike. A collection left with no entities
// is removed. Other keys are untouched.
func Finalize(acc *value.Map, ageFields []string) *value.Map {
	for _, g := range []template.GroupKind{template.GroupChronologies, template.GroupSampleAges} {
		coll, ok := acc.Value(g.Key()).Group()
		if !ok {
			continue
		}
		for _, name := range coll.Keys() {
			entity, ok := coll.Value(name).Group()
			if !ok || undated(entity, ageFields) {
				coll.Delete(name)
			}
		}
		if coll.Len() == 0 {
			acc.Delete(g.Key())
		}
	}
	return acc
}

func undated(entity *value.Map, ageFields []string) bool {
	for _, f := range ageFields {
		if !entity.Value(f).Empty() {
			return false
		}
	}
	return true
}

// renderNotes replaces the labeled notes collection with a single value. One
// contributing column passes through unchanged; several are joined as
// "column: text" pairs, row by row when any of them is per-row.
func renderNotes(acc *value.Map) {
	notes, ok := acc.Value("notes").Group()
	if !ok {
		return
	}
	keys := notes.Keys()
	if len(keys) == 1 {
		acc.Set("notes", notes.Value(keys[0]))
		return
	}

	rows := 0
	for _, k := range keys {
		if seq, ok := notes.Value(k).Sequence(); ok && len(seq) > rows {
			rows = len(seq)
		}
	}
	if rows == 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			sc, _ := notes.Value(k).Scalar()
			parts = append(parts, label(k, sc))
		}
		acc.Set("notes", value.Scalar(strings.Join(parts, "; ")))
		return
	}

	out := make([]any, rows)
	for i := range rows {
		var parts []string
		for _, k := range keys {
			v := notes.Value(k)
			var el any
			if seq, ok := v.Sequence(); ok {
				if i < len(seq) {
					el = seq[i]
				}
			} else {
				el, _ = v.Scalar()
			}
			if el != nil {
				parts = append(parts, label(k, el))
			}
		}
		if len(parts) > 0 {
			out[i] = strings.Join(parts, "; ")
		}
	}
	acc.Set("notes", value.Sequence(out))
}

func label(column string, v any) string {
	return fmt.Sprintf("%s: %v", column, v)
}
