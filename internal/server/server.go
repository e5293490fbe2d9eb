// Package server exposes template resolution and validation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/coerce"
	"github.com/neotomadb/neotoma-loader/internal/dataset"
	"github.com/neotomadb/neotoma-loader/internal/params"
	"github.com/neotomadb/neotoma-loader/internal/template"
	"github.com/neotomadb/neotoma-loader/internal/validate"
	"github.com/neotomadb/neotoma-loader/internal/value"
)

// Config configures the HTTP API.
type Config struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	AgeFields      []string
}

// Server routes resolution and validation requests. Each request carries its
// own template metadata and rows; nothing is kept between requests.
type Server struct {
	cfg    Config
	router chi.Router
	log    *zap.Logger
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, log: zap.L().With(zap.String("component", "server"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/validate", s.handleValidate)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	<-errCh
	return nil
}

// ResolveRequest is the body of POST /v1/resolve. Tables resolves the fields
// against several tables; Values treats Fields as source column names.
type ResolveRequest struct {
	Metadata  []template.Entry `json:"metadata"`
	Rows      []dataset.Row    `json:"rows"`
	Fields    []string         `json:"fields"`
	Table     string           `json:"table,omitempty"`
	Tables    []string         `json:"tables,omitempty"`
	Values    bool             `json:"values,omitempty"`
	AgeFields []string         `json:"age_fields,omitempty"`
}

// ResolveResponse carries a single mapping, or one per requested table.
type ResolveResponse struct {
	Params *value.Map   `json:"params,omitempty"`
	Tables []*value.Map `json:"tables,omitempty"`
}

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Metadata []template.Entry `json:"metadata"`
	Rows     []dataset.Row    `json:"rows"`
	Columns  []string         `json:"columns,omitempty"`
}

// ValidateResponse reports the validation outcome.
type ValidateResponse struct {
	Valid    bool                `json:"valid"`
	Failures int                 `json:"failures"`
	Sections []*validate.Section `json:"sections"`
	Log      string              `json:"log"`
}

// ErrorBody is the error payload of every endpoint.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, ErrorBody{Kind: "bad_request", Message: "fields is required"})
		return
	}

	res, err := s.resolver(req.Metadata, req.AgeFields)
	if err != nil {
		s.fail(w, err)
		return
	}
	ds := dataset.FromRows(req.Rows)

	var resp ResolveResponse
	switch {
	case req.Values:
		resp.Params, err = res.ResolveColumns(ds, req.Fields...)
	case len(req.Tables) > 0:
		resp.Tables, err = res.ResolveTables(ds, req.Tables, req.Fields...)
	default:
		resp.Params, err = res.Resolve(ds, req.Table, req.Fields...)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.resolver(req.Metadata, nil)
	if err != nil {
		s.fail(w, err)
		return
	}

	ds := dataset.FromRows(req.Rows)
	if len(req.Columns) > 0 {
		ds.Columns = req.Columns
	}
	rep, _ := validate.New(res).Run(ds)
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    rep.Valid(),
		Failures: rep.Failures(),
		Sections: rep.Sections,
		Log:      rep.String(),
	})
}

func (s *Server) resolver(entries []template.Entry, ageFields []string) (*params.Resolver, error) {
	idx, err := template.NewIndex(entries)
	if err != nil {
		return nil, err
	}
	if len(ageFields) == 0 {
		ageFields = s.cfg.AgeFields
	}
	return params.NewResolver(idx, params.WithAgeFields(ageFields...))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorBody{Kind: "bad_request", Message: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// fail maps a resolution error to its payload kind and status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	body, status := Classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("kind", body.Kind), zap.Error(err))
	}
	writeError(w, status, body)
}

// Classify returns the error payload and HTTP status for err.
func Classify(err error) (ErrorBody, int) {
	var (
		cfgErr   *template.ConfigurationError
		conflict *dataset.ConflictingValuesError
		dateErr  *coerce.DateParseError
		typeErr  *coerce.TypeCoercionError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ErrorBody{Kind: "configuration", Message: cfgErr.Error()}, http.StatusBadRequest
	case errors.As(err, &conflict):
		return ErrorBody{Kind: "conflicting_values", Message: conflict.Error()}, http.StatusUnprocessableEntity
	case errors.As(err, &dateErr):
		return ErrorBody{Kind: "date_parse", Message: dateErr.Error()}, http.StatusUnprocessableEntity
	case errors.As(err, &typeErr):
		return ErrorBody{Kind: "type_coercion", Message: typeErr.Error()}, http.StatusUnprocessableEntity
	default:
		return ErrorBody{Kind: "internal", Message: err.Error()}, http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	writeJSON(w, status, errorResponse{Error: body})
}
