package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/params"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/validlog"
)

// loadResolver reads the template at path and builds a resolver over it.
func loadResolver(path string, ageFields []string) (*params.Resolver, error) {
	if path == "" {
		return nil, eris.New("a template is required (--template)")
	}
	tmpl, err := template.Load(path)
	if err != nil {
		return nil, err
	}
	idx, err := tmpl.Index()
	if err != nil {
		return nil, eris.Wrapf(err, "template %s", path)
	}
	zap.L().Debug("template loaded",
		zap.String("template", path),
		zap.Int("entries", idx.Len()),
	)
	return params.NewResolver(idx, params.WithAgeFields(ageFields...))
}

// initRunStore opens and migrates the validation run history.
func initRunStore(ctx context.Context) (*validlog.SQLiteStore, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "neotoma-runs.db"
		}
		st, err := validlog.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
