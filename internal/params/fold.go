package params

import (
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// fold writes one coerced entry value into the accumulator according to the
// entry's role. Empty values never create nested groups and never overwrite
// data already resolved under the same key.
func fold(acc *value.Map, key string, e template.Entry, v value.Value) {
	switch e.Role() {
	case template.RoleNotes:
		foldNotes(acc, key, e, v)
	case template.RoleGrouped:
		foldGrouped(acc, key, e, v)
	case template.RoleTaxon:
		foldTaxon(acc, e, v)
	default:
		if v.Empty() {
			acc.SetDefault(key, value.Null())
			return
		}
		acc.Set(key, v)
	}
}

// foldNotes collects notes from every contributing column, labeled by the
// column they came from. renderNotes flattens the collection at the end.
func foldNotes(acc *value.Map, key string, e template.Entry, v value.Value) {
	if v.Empty() {
		acc.SetDefault(key, value.Null())
		return
	}
	acc.Subgroup(key).Set(e.Column, v)
}

func foldGrouped(acc *value.Map, key string, e template.Entry, v value.Value) {
	if v.Empty() {
		acc.SetDefault(key, value.Null())
		return
	}
	if e.ChronologyName == "" {
		acc.Set(e.Field(), v)
		return
	}

	group := e.Group()
	entity := acc.Subgroup(group.Key()).Subgroup(e.ChronologyName)
	entity.Set(key, v)
	if key == "age" && group == template.GroupChronologies {
		entity.Set("isdefault", value.Scalar(e.Default))
	}
}

func foldTaxon(acc *value.Map, e template.Entry, v value.Value) {
	if v.Empty() {
		return
	}
	taxon := acc.Subgroup(e.TaxonName)
	taxon.Set("value", v)
	if e.UnitColumn != "" {
		taxon.Set("unitcolumn", value.Scalar(e.UnitColumn))
	}
	if e.UncertaintyUnit != "" {
		taxon.Set("uncertaintyunit", value.Scalar(e.UncertaintyUnit))
	}
	if e.UncertaintyBasis != "" {
		taxon.Set("uncertaintybasis", value.Scalar(e.UncertaintyBasis))
	}
}
