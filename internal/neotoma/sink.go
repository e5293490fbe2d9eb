// Package neotoma writes resolved parameter sets to a Neotoma database
// through its ts.* stored procedures.
package neotoma

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/neotomadb/neotoma-loader/internal/db"
	"github.com/neotomadb/neotoma-loader/internal/resilience"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// DefaultSchema holds the Neotoma insert procedures.
const DefaultSchema = "ts"

var paramName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Sink calls stored procedures with named arguments. A Sink returned inside
// InTx is bound to that transaction.
type Sink struct {
	pool   db.Pool
	schema string
	retry  resilience.RetryConfig
}

// NewSink returns a Sink calling procedures in schema (DefaultSchema when
// empty).
func NewSink(pool db.Pool, schema string) *Sink {
	if schema == "" {
		schema = DefaultSchema
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("neotoma: transaction")
	return &Sink{pool: pool, schema: schema, retry: retry}
}

// Call runs SELECT schema.proc(_name := $n, ...) with one argument per key
// of args, in key order, and returns the id the procedure produces.
func (s *Sink) Call(ctx context.Context, proc string, args *value.Map) (int64, error) {
	names := args.Keys()
	query, err := buildCall(s.schema, proc, names)
	if err != nil {
		return 0, err
	}

	vals := make([]any, len(names))
	for i, n := range names {
		v, err := encodeArg(args.Value(n))
		if err != nil {
			return 0, eris.Wrapf(err, "neotoma: %s argument %s", proc, n)
		}
		vals[i] = v
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, vals...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "neotoma: call %s.%s", s.schema, proc)
	}
	return id, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil.
// Serialization failures and dropped connections retry the whole function.
func (s *Sink) InTx(ctx context.Context, fn func(ctx context.Context, tx *Sink) error) error {
	return resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return eris.Wrap(err, "neotoma: begin tx")
		}
		if err := fn(ctx, &Sink{pool: tx, schema: s.schema, retry: s.retry}); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return eris.Wrap(err, "neotoma: commit tx")
		}
		return nil
	})
}

func buildCall(schema, proc string, names []string) (string, error) {
	if proc == "" {
		return "", eris.New("neotoma: empty procedure name")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(pgx.Identifier{schema, proc}.Sanitize())
	b.WriteByte('(')
	for i, n := range names {
		if !paramName.MatchString(n) {
			return "", eris.Errorf("neotoma: invalid parameter name %q for %s", n, proc)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "_%s := $%d", n, i+1)
	}
	b.WriteByte(')')
	return b.String(), nil
}

// encodeArg converts a resolved value into a driver argument. Dates become
// time.Time, coordinate pairs EWKB points and sequences slices.
func encodeArg(v value.Value) (any, error) {
	switch v.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindScalar:
		sc, _ := v.Scalar()
		return encodeScalar(sc)
	case value.KindSequence:
		seq, _ := v.Sequence()
		out := make([]any, len(seq))
		for i, el := range seq {
			enc, err := encodeScalar(el)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return nil, eris.New("nested groups cannot be passed as arguments")
	}
}

func encodeScalar(sc any) (any, error) {
	switch x := sc.(type) {
	case value.Date:
		return x.Time(), nil
	case value.Coordinates:
		return EncodePoint(x)
	default:
		return sc, nil
	}
}
