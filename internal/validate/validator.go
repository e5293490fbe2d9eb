// Package validate checks an upload file against its template before anything
// is written to Neotoma. Each table gets its own report section; resolver
// errors become failed lines instead of aborting the run.
package validate

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/coerce"
	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/neotoma"
	"github.com/neotomadb/neotoma-loader/internal/params"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// Field lists resolved per table.
var (
	SiteFields = []string{"sitename", "altitude", "area", "sitedescription", "notes", "geog"}

	CollectionUnitFields = []string{
		"handle", "core", "colltypeid", "depenvtid", "collunitname", "colldate", "colldevice",
		"gpsaltitude", "gpserror", "waterdepth", "substrateid", "slopeaspect", "slopeangle",
		"location", "notes", "geog",
	}

	AnalysisUnitFields = []string{"analysisunitname", "depth", "thickness", "faciesid", "mixed", "igsn", "notes"}

	ChronologyFields = []string{
		"age", "agetypeid", "contactid", "dateprepared", "agemodel",
		"ageboundyounger", "ageboundolder", "notes",
	}

	SampleAgeFields = []string{"age", "ageyounger", "ageolder"}
)

// maxHandle is the width of ndb.collectionunits.handle.
const maxHandle = 10

// Resolved holds the parameter sets a run produced. Tables whose check could
// not resolve are nil.
type Resolved struct {
	Site           *value.Map `json:"site,omitempty"`
	CollectionUnit *value.Map `json:"collectionunit,omitempty"`
	AnalysisUnits  *value.Map `json:"analysisunits,omitempty"`
	Chronologies   *value.Map `json:"chronologies,omitempty"`
	SampleAges     *value.Map `json:"sampleages,omitempty"`
	Taxa           *value.Map `json:"taxa,omitempty"`
}

// Batch returns the parts the uploader inserts.
func (r *Resolved) Batch() neotoma.Batch {
	return neotoma.Batch{Site: r.Site, CollectionUnit: r.CollectionUnit, Chronologies: r.Chronologies}
}

// Validator runs the table checks for one template.
type Validator struct {
	res *params.Resolver
	log *zap.Logger
}

// New returns a Validator resolving through res.
func New(res *params.Resolver) *Validator {
	return &Validator{res: res, log: zap.L().With(zap.String("component", "validate"))}
}

// Run validates ds. Checks run in table order and never stop early, so the
// report lists every problem in the file.
func (v *Validator) Run(ds *dataset.Dataset) (*Report, *Resolved) {
	rep := &Report{}
	out := &Resolved{}

	v.checkColumns(rep.Section("Columns"), ds)
	out.Site = v.checkSite(rep.Section("Site"), ds)
	out.CollectionUnit = v.checkCollectionUnit(rep.Section("CollectionUnit"), ds)
	out.AnalysisUnits = v.checkAnalysisUnits(rep.Section("AnalysisUnits"), ds)
	out.Chronologies = v.checkChronologies(rep.Section("Chronologies"), ds)
	out.SampleAges = v.checkSampleAges(rep.Section("SampleAges"), ds)
	out.Taxa = v.checkTaxa(rep.Section("Taxa"), ds)

	v.log.Debug("validation finished",
		zap.Bool("valid", rep.Valid()),
		zap.Int("failures", rep.Failures()),
	)
	return rep, out
}

// resolve resolves fields for table, recording any error on sec.
func (v *Validator) resolve(sec *Section, ds *dataset.Dataset, table string, fields []string) *value.Map {
	m, err := v.res.Resolve(ds, table, fields...)
	if err != nil {
		sec.Fail("%s", Describe(err))
		return nil
	}
	return m
}

// resolveDated is resolve with a fallback for dateField: when one of its
// columns fails date parsing, the field is dropped, the rest re-resolved, and
// the field set to the year recovered from the first row.
func (v *Validator) resolveDated(sec *Section, ds *dataset.Dataset, table, dateField string, fields []string) *value.Map {
	m, err := v.res.Resolve(ds, table, fields...)
	if err == nil {
		return m
	}

	var dateErr *coerce.DateParseError
	if !errors.As(err, &dateErr) || !v.maps(table, dateField, dateErr.Column) {
		sec.Fail("%s", Describe(err))
		return nil
	}

	rest := slices.DeleteFunc(slices.Clone(fields), func(f string) bool { return f == dateField })
	m, err = v.res.Resolve(ds, table, rest...)
	if err != nil {
		sec.Fail("%s", Describe(err))
		return nil
	}

	raw := ""
	if ds.Len() > 0 {
		raw = ds.Rows[0][dateErr.Column]
	}
	fb := coerce.YearFallback(raw)
	m.Set(dateField, fb)
	sec.Note("%s %q is not a YYYY-MM-DD date; using %s.", dateField, raw, fb)
	return m
}

// maps reports whether column feeds field under table.
func (v *Validator) maps(table, field, column string) bool {
	for _, e := range v.res.Index().Find(template.NormalizePrefix(table), field) {
		if e.Column == column {
			return true
		}
	}
	return false
}

// required fails every template-required field that resolved empty.
func (v *Validator) required(sec *Section, table string, fields []string, m *value.Map) {
	req := v.res.Index().Required(template.NormalizePrefix(table), fields)
	for _, f := range fields {
		if req[f] && m.Value(template.LastSegment(f)).Empty() {
			sec.Fail("%s is required but has no value.", f)
		}
	}
}

// Describe reduces a resolver error to the message of its typed cause.
func Describe(err error) string {
	var (
		conflict *dataset.ConflictingValuesError
		dateErr  *coerce.DateParseError
		typeErr  *coerce.TypeCoercionError
		cfgErr   *template.ConfigurationError
	)
	switch {
	case errors.As(err, &conflict):
		return conflict.Error()
	case errors.As(err, &dateErr):
		return dateErr.Error()
	case errors.As(err, &typeErr):
		return typeErr.Error()
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	default:
		return err.Error()
	}
}

// text returns the first non-blank string in v.
func text(v value.Value) (string, bool) {
	if seq, ok := v.Sequence(); ok {
		for _, el := range seq {
			if s, ok := el.(string); ok && s != "" {
				return s, true
			}
		}
		return "", false
	}
	sc, ok := v.Scalar()
	if !ok {
		return "", false
	}
	s, ok := sc.(string)
	return s, ok && s != ""
}

func coordinates(v value.Value) (value.Coordinates, bool) {
	sc, ok := v.Scalar()
	if !ok {
		return value.Coordinates{}, false
	}
	c, ok := sc.(value.Coordinates)
	return c, ok
}

func number(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// at returns row i of v. Scalars apply to every row.
func at(v value.Value, i int) any {
	if seq, ok := v.Sequence(); ok {
		if i < len(seq) {
			return seq[i]
		}
		return nil
	}
	sc, _ := v.Scalar()
	return sc
}

func rows(vs ...value.Value) int {
	n := 0
	for _, v := range vs {
		if seq, ok := v.Sequence(); ok {
			n = max(n, len(seq))
		} else if !v.IsNull() {
			n = max(n, 1)
		}
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
