package validlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// RunStatus is the lifecycle state of a validation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusValid   RunStatus = "valid"
	RunStatusInvalid RunStatus = "invalid"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one validation of one data file.
type Run struct {
	ID          string     `json:"id"`
	File        string     `json:"file"`
	Template    string     `json:"template"`
	Hash        string     `json:"hash"`
	Status      RunStatus  `json:"status"`
	Errors      int        `json:"errors"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	File   string    `json:"file,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// SQLiteStore records validation runs in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS validation_runs (
	id           TEXT PRIMARY KEY,
	file         TEXT NOT NULL,
	template     TEXT NOT NULL,
	hash         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	errors       INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_validation_runs_file ON validation_runs(file);
CREATE INDEX IF NOT EXISTS idx_validation_runs_status ON validation_runs(status);
`

// Migrate creates the run table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Start records a running validation and returns it.
func (s *SQLiteStore) Start(ctx context.Context, file, template, hash string) (*Run, error) {
	r := &Run{
		ID:        uuid.New().String(),
		File:      file,
		Template:  template,
		Hash:      hash,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_runs (id, file, template, hash, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.File, r.Template, r.Hash, string(r.Status), r.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start run for %s", file)
	}
	return r, nil
}

// Complete marks a run valid or invalid with its failure count.
func (s *SQLiteStore) Complete(ctx context.Context, runID string, valid bool, errCount int) error {
	status := RunStatusValid
	if !valid {
		status = RunStatusInvalid
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_runs SET status = ?, errors = ?, completed_at = ? WHERE id = ?`,
		string(status), errCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// Fail marks a run that could not finish.
func (s *SQLiteStore) Fail(ctx context.Context, runID, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE validation_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const runColumns = `id, file, template, hash, status, errors, error, started_at, completed_at`

// GetRun returns one run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM validation_runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM validation_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.File != "" {
		query += ` AND file = ?`
		args = append(args, filter.File)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var status string
	var errMsg sql.NullString
	var completed sql.NullTime

	err := row.Scan(&r.ID, &r.File, &r.Template, &r.Hash, &status, &r.Errors, &errMsg, &r.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
