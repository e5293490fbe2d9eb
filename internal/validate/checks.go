package validate

import (
	"slices"

	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/neotoma"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// checkColumns compares the template's source columns with the file header.
// Mismatches are notes: optional columns may be absent and extra columns are
// ignored.
func (v *Validator) checkColumns(sec *Section, ds *dataset.Dataset) {
	var mapped []string
	for _, e := range v.res.Index().Entries() {
		if e.Column != "" && !slices.Contains(mapped, e.Column) {
			mapped = append(mapped, e.Column)
		}
	}

	clean := true
	for _, c := range mapped {
		if !ds.HasColumn(c) {
			sec.Note("Template column %q is not in the file.", c)
			clean = false
		}
	}
	for _, c := range ds.Columns {
		if !slices.Contains(mapped, c) {
			sec.Note("File column %q is not described by the template.", c)
			clean = false
		}
	}
	if clean {
		sec.Pass("File columns match the template.")
	}
}

func (v *Validator) checkSite(sec *Section, ds *dataset.Dataset) *value.Map {
	const table = "ndb.sites"
	site := v.resolve(sec, ds, table, SiteFields)
	if site == nil {
		return nil
	}
	v.required(sec, table, SiteFields, site)

	if name, ok := text(site.Value("sitename")); ok {
		sec.Pass("Site name %q provided.", name)
	} else {
		sec.Fail("A site name must be provided.")
	}

	switch c, ok := coordinates(site.Value("geog")); {
	case !ok:
		sec.Note("No site coordinates provided.")
	case !neotoma.ValidCoordinates(c):
		sec.Fail("Coordinates (%g, %g) are out of range.", c.Lat, c.Long)
	default:
		sec.Pass("Coordinates (%g, %g) are valid.", c.Lat, c.Long)
		sec.Note("This set is expected to be in the %s hemisphere.", neotoma.Hemisphere(c))
	}

	if sec.Valid() {
		sec.Pass("Site can be created.")
	}
	return site
}

func (v *Validator) checkCollectionUnit(sec *Section, ds *dataset.Dataset) *value.Map {
	const table = "ndb.collectionunits"
	cu := v.resolveDated(sec, ds, table, "colldate", CollectionUnitFields)
	if cu == nil {
		return nil
	}
	v.required(sec, table, CollectionUnitFields, cu)

	switch h, ok := text(cu.Value("handle")); {
	case !ok:
		sec.Fail("A collection unit handle must be provided.")
	case len([]rune(h)) > maxHandle:
		sec.Fail("Handle %q is longer than %d characters.", h, maxHandle)
	default:
		sec.Pass("Handle %q provided.", h)
	}

	if sc, ok := cu.Value("colldate").Scalar(); ok {
		if d, ok := sc.(value.Date); ok {
			sec.Pass("Collection date %s is valid.", d)
		}
	}

	if c, ok := coordinates(cu.Value("geog")); ok && !neotoma.ValidCoordinates(c) {
		sec.Fail("Collection unit coordinates (%g, %g) are out of range.", c.Lat, c.Long)
	}

	if sec.Valid() {
		sec.Pass("Collection unit can be created.")
	}
	return cu
}

func (v *Validator) checkAnalysisUnits(sec *Section, ds *dataset.Dataset) *value.Map {
	au := v.resolve(sec, ds, "ndb.analysisunits", AnalysisUnitFields)
	if au == nil {
		return nil
	}
	v.required(sec, "ndb.analysisunits", AnalysisUnitFields, au)

	for _, f := range AnalysisUnitFields {
		if au.Value(f).Empty() {
			sec.Note("%s has no values.", f)
		} else {
			sec.Pass("%s has values.", f)
		}
	}

	depth, thickness := au.Value("depth"), au.Value("thickness")
	dseq, dok := depth.Sequence()
	ts, tok := thickness.Sequence()
	if dok && tok && len(dseq) != len(ts) {
		sec.Fail("depth has %d rows but thickness has %d.", len(dseq), len(ts))
	}
	for i := range rows(thickness) {
		if t, ok := number(at(thickness, i)); ok && t < 0 {
			sec.Fail("Row %d: thickness %g is negative.", i, t)
		}
	}

	if sec.Valid() {
		sec.Pass("%s can be created.", plural(max(rows(depth), 1), "analysis unit", "analysis units"))
	}
	return au
}

func (v *Validator) checkChronologies(sec *Section, ds *dataset.Dataset) *value.Map {
	chron := v.resolveDated(sec, ds, "ndb.chronologies", "age", ChronologyFields)
	if chron == nil {
		return nil
	}

	if t := chron.Value("agetypeid"); t.Empty() {
		sec.Note("No age type provided.")
	} else {
		sec.Pass("Age type %s provided.", t)
	}

	named, ok := chron.Value(template.GroupChronologies.Key()).Group()
	if !ok {
		if chron.Value("age").Empty() && chron.Value("ageboundyounger").Empty() && chron.Value("ageboundolder").Empty() {
			sec.Note("No ages provided.")
			return chron
		}
		if _, _, err := neotoma.AgeBounds(chron); err != nil {
			sec.Fail("Chronology: %v.", err)
		} else {
			sec.Pass("Chronology can be created.")
		}
		return chron
	}

	defaults := 0
	for _, name := range named.Keys() {
		c, _ := named.Value(name).Group()
		if sc, ok := c.Value("isdefault").Scalar(); ok && sc == true {
			defaults++
		}
		younger, older, err := neotoma.AgeBounds(c)
		if err != nil {
			sec.Fail("Chronology %s: %v.", name, err)
			continue
		}
		sec.Pass("Chronology %s can be created (ages %s to %s).", name, younger, older)
	}
	switch {
	case defaults == 0:
		sec.Note("No chronology is flagged as default.")
	case defaults > 1:
		sec.Fail("%d chronologies are flagged as default; only one may be.", defaults)
	}
	return chron
}

func (v *Validator) checkSampleAges(sec *Section, ds *dataset.Dataset) *value.Map {
	sa := v.resolve(sec, ds, "ndb.sampleages", SampleAgeFields)
	if sa == nil {
		return nil
	}

	checked := 0
	if named, ok := sa.Value(template.GroupSampleAges.Key()).Group(); ok {
		for _, name := range named.Keys() {
			entity, _ := named.Value(name).Group()
			checkAgeOrder(sec, name, entity)
			checked++
		}
	}
	if !sa.Value("ageyounger").Empty() || !sa.Value("ageolder").Empty() || !sa.Value("age").Empty() {
		checkAgeOrder(sec, "Sample", sa)
		checked++
	}
	if checked == 0 {
		sec.Note("No sample ages provided.")
	}
	return sa
}

// checkAgeOrder fails every row whose younger age exceeds its older age.
// Ages are years before present, so younger is the smaller number.
func checkAgeOrder(sec *Section, name string, m *value.Map) {
	younger, older := m.Value("ageyounger"), m.Value("ageolder")
	ordered := true
	for i := range rows(younger, older) {
		y, yok := number(at(younger, i))
		o, ook := number(at(older, i))
		if yok && ook && y > o {
			sec.Fail("%s row %d: ageyounger %g is older than ageolder %g.", name, i, y, o)
			ordered = false
		}
	}
	if ordered {
		sec.Pass("%s ages are consistent.", name)
	}
}

// checkTaxa resolves every taxon column of a wide-format file.
func (v *Validator) checkTaxa(sec *Section, ds *dataset.Dataset) *value.Map {
	var columns []string
	for _, e := range v.res.Index().Entries() {
		if e.Role() == template.RoleTaxon && !slices.Contains(columns, e.Column) {
			columns = append(columns, e.Column)
		}
	}
	if len(columns) == 0 {
		sec.Note("The template maps no taxa.")
		return nil
	}

	taxa, err := v.res.ResolveColumns(ds, columns...)
	if err != nil {
		sec.Fail("%s", Describe(err))
		return nil
	}

	for _, c := range columns {
		if !ds.HasColumn(c) {
			sec.Note("Taxon column %q is not in the file.", c)
		}
	}

	counted := 0
	for _, name := range taxa.Keys() {
		taxon, ok := taxa.Value(name).Group()
		if !ok {
			continue
		}
		counted++
		vals := taxon.Value("value")
		for i := range rows(vals) {
			if n, ok := number(at(vals, i)); ok && n < 0 {
				sec.Fail("%s row %d: value %g is negative.", name, i, n)
			}
		}
	}
	if counted == 0 {
		sec.Note("No taxon has values.")
		return taxa
	}
	sec.Pass("%s with values.", plural(counted, "taxon", "taxa"))
	return taxa
}
