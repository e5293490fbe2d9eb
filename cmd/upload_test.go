//go:build !integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neotomadb/neotoma-loader/internal/validlog"
)

func idRows(id int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id"}).AddRow(id)
}

func TestPrepareUpload(t *testing.T) {
	res := lakeResolver(t)
	data := writeFile(t, t.TempDir(), "lake.csv", lakeCSV)
	logDir := t.TempDir()

	resolved, err := prepareUpload(context.Background(), res, data, logDir)
	require.NoError(t, err)
	require.NotNil(t, resolved.Site)
	assert.Equal(t, "Mirror Lake", resolved.Site.Value("sitename").String())
	assert.FileExists(t, validlog.LogPath(logDir, data))
}

func TestPrepareUpload_Invalid(t *testing.T) {
	res := lakeResolver(t)
	data := writeFile(t, t.TempDir(), "bad.csv", badLakeCSV)
	logDir := t.TempDir()

	_, err := prepareUpload(context.Background(), res, data, logDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed 1 checks")

	failed := validlog.FailedLogPath(logDir, data)
	assert.Contains(t, err.Error(), failed)
	body, err := os.ReadFile(failed)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Valid: FALSE")
}

func TestPrepareUpload_MissingFile(t *testing.T) {
	res := lakeResolver(t)
	_, err := prepareUpload(context.Background(), res, filepath.Join(t.TempDir(), "nope.csv"), t.TempDir())
	assert.Error(t, err)
}

func TestUploadBatch(t *testing.T) {
	ctx := context.Background()
	res := lakeResolver(t)
	data := writeFile(t, t.TempDir(), "lake.csv", lakeCSV)
	resolved, err := prepareUpload(ctx, res, data, t.TempDir())
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("insertsite").WillReturnRows(idRows(42))
	mock.ExpectQuery("insertcollectionunit").WillReturnRows(idRows(7))
	mock.ExpectQuery("insertchronology").WillReturnRows(idRows(11))
	mock.ExpectCommit()

	var buf bytes.Buffer
	require.NoError(t, uploadBatch(ctx, mock, "ts", resolved, 0, &buf))
	assert.JSONEq(t, `{"siteid":42,"collectionunitid":7,"chronologyids":[11]}`, buf.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadBatch_WarnsNearby(t *testing.T) {
	ctx := context.Background()
	res := lakeResolver(t)
	data := writeFile(t, t.TempDir(), "lake.csv", lakeCSV)
	resolved, err := prepareUpload(ctx, res, data, t.TempDir())
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM ndb.sites").
		WithArgs(pgxmock.AnyArg(), 500.0, 5).
		WillReturnRows(pgxmock.NewRows([]string{"siteid", "sitename", "dist"}).
			AddRow(int64(3), "Mirror Lake", 40.0))
	mock.ExpectBegin()
	mock.ExpectQuery("insertsite").WillReturnRows(idRows(42))
	mock.ExpectQuery("insertcollectionunit").WillReturnRows(idRows(7))
	mock.ExpectQuery("insertchronology").WillReturnRows(idRows(11))
	mock.ExpectCommit()

	var buf bytes.Buffer
	require.NoError(t, uploadBatch(ctx, mock, "ts", resolved, 500, &buf))
	assert.NoError(t, mock.ExpectationsWereMet())
}
