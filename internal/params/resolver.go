// Package params resolves template fields against a dataset into typed,
// correctly shaped parameter sets for Neotoma inserts.
//
// Resolution runs in two stages: the requested field list is expanded once
// against the template index, then every expanded field is extracted,
// coerced and folded into an ordered accumulator. Nested chronology and
// sample-age groups without any dated content are dropped before returning.
package params

import (
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/coerce"
	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// DefaultAgeFields are the fields that make a chronology or sample-age group
// worth keeping.
var DefaultAgeFields = []string{"age", "ageyounger", "ageolder", "ageboundolder", "ageboundyounger"}

// Resolver resolves fields against one template index. It holds no mutable
// state and may be shared between goroutines.
type Resolver struct {
	index     *template.Index
	ageFields []string
	log       *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAgeFields overrides the fields checked when dropping undated groups.
func WithAgeFields(fields ...string) Option {
	return func(r *Resolver) {
		if len(fields) > 0 {
			r.ageFields = append([]string(nil), fields...)
		}
	}
}

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver returns a Resolver over idx.
func NewResolver(idx *template.Index, opts ...Option) (*Resolver, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, &template.ConfigurationError{Reason: "resolver needs a non-empty metadata index"}
	}
	r := &Resolver{
		index:     idx,
		ageFields: DefaultAgeFields,
		log:       zap.L().With(zap.String("component", "params")),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Index returns the metadata index the resolver reads.
func (r *Resolver) Index() *template.Index { return r.index }

// Resolve resolves fields for a single table prefix such as "ndb.sites".
// Fields the template does not map resolve to Null.
func (r *Resolver) Resolve(ds *dataset.Dataset, table string, fields ...string) (*value.Map, error) {
	prefix := template.NormalizePrefix(table)
	expanded := r.index.Expand(prefix, fields)

	acc := value.NewMap()
	for _, f := range expanded {
		if err := r.resolveField(acc, ds, f, r.index.Find(prefix, f)); err != nil {
			return nil, err
		}
	}
	return r.finish(acc), nil
}

// ResolveTables resolves the same fields independently against each table.
func (r *Resolver) ResolveTables(ds *dataset.Dataset, tables []string, fields ...string) ([]*value.Map, error) {
	out := make([]*value.Map, 0, len(tables))
	for _, t := range tables {
		m, err := r.Resolve(ds, t, fields...)
		if err != nil {
			return nil, eris.Wrapf(err, "params: table %s", t)
		}
		out = append(out, m)
	}
	return out, nil
}

// ResolveColumns resolves wide-format datasets, where each requested name is
// a source column (a taxon, a variable) rather than a Neotoma field.
func (r *Resolver) ResolveColumns(ds *dataset.Dataset, columns ...string) (*value.Map, error) {
	acc := value.NewMap()
	for _, c := range columns {
		if err := r.resolveField(acc, ds, c, r.index.ByColumn(c)); err != nil {
			return nil, err
		}
	}
	return r.finish(acc), nil
}

func (r *Resolver) resolveField(acc *value.Map, ds *dataset.Dataset, field string, entries []template.Entry) error {
	key := template.LastSegment(field)
	if len(entries) == 0 {
		acc.SetDefault(key, value.Null())
		return nil
	}

	for _, e := range entries {
		raw, err := ds.Extract(e.Column, !e.Rowwise)
		if err != nil {
			var missing *dataset.MissingColumnError
			if errors.As(err, &missing) {
				r.log.Debug("params: skipping entry with missing column",
					zap.String("field", field),
					zap.String("column", e.Column),
				)
				continue
			}
			return eris.Wrapf(err, "params: field %s", field)
		}

		v := value.Null()
		if !raw.Blank() {
			v, err = coerce.Apply(e, raw)
			if err != nil {
				return eris.Wrapf(err, "params: field %s", field)
			}
		}
		fold(acc, key, e, v)
	}
	return nil
}

func (r *Resolver) finish(acc *value.Map) *value.Map {
	Finalize(acc, r.ageFields)
	renderNotes(acc)
	return acc
}
