package validlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.Start(ctx, "data/site.csv", "template.yml", "abc")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, st.Complete(ctx, run.ID, false, 3))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusInvalid, got.Status)
	assert.Equal(t, 3, got.Errors)
	assert.Equal(t, "template.yml", got.Template)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLite_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.Start(ctx, "data/site.csv", "template.yml", "abc")
	require.NoError(t, err)
	require.NoError(t, st.Fail(ctx, run.ID, "csv: read line 3"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "csv: read line 3", got.Error)
}

func TestSQLite_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, st.Complete(ctx, "nope", true, 0))
	assert.Error(t, st.Fail(ctx, "nope", "x"))

	_, err := st.GetRun(ctx, "nope")
	assert.ErrorContains(t, err, "run not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.Start(ctx, "a.csv", "t.yml", "1")
	require.NoError(t, err)
	require.NoError(t, st.Complete(ctx, a.ID, true, 0))
	b, err := st.Start(ctx, "b.csv", "t.yml", "2")
	require.NoError(t, err)
	require.NoError(t, st.Complete(ctx, b.ID, false, 1))
	_, err = st.Start(ctx, "a.csv", "t.yml", "3")
	require.NoError(t, err)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	valid, err := st.ListRuns(ctx, RunFilter{Status: RunStatusValid})
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, a.ID, valid[0].ID)

	forA, err := st.ListRuns(ctx, RunFilter{File: "a.csv", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, forA, 1)
}
