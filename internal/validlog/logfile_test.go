package validlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.csv")
	writeFile(t, path, "hello")

	got, err := Hash(path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)

	_, err = Hash(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLogPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("logs", "site.csv.valid.log"), LogPath("logs", "data/site.csv"))
	assert.Equal(t, filepath.Join("logs", "not_validated", "site.csv.valid.log"), FailedLogPath("logs", "data/site.csv"))
}

func TestCheckHash(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "site.csv")
	logDir := filepath.Join(dir, "logs")
	writeFile(t, data, "hello")

	hc, err := CheckHash(logDir, data)
	require.NoError(t, err)
	assert.False(t, hc.Unchanged)

	writeFile(t, LogPath(logDir, data), "5d41402abc4b2a76b9719d911017c592\nValid: TRUE\n")
	hc, err = CheckHash(logDir, data)
	require.NoError(t, err)
	assert.True(t, hc.Unchanged)

	writeFile(t, data, "hello again")
	hc, err = CheckHash(logDir, data)
	require.NoError(t, err)
	assert.False(t, hc.Unchanged)
}

func TestCheckPrior(t *testing.T) {
	tests := []struct {
		name       string
		failed     bool
		log        string
		strict     bool
		wantPass   bool
		wantErrors int
	}{
		{"clean", false, "abc\nValid: TRUE\n✔ Site name present.\n", false, true, 0},
		{"failures", false, "abc\nValid: FALSE\n✗ Sitename missing.\n  ✗ Coordinates out of range.\n", false, false, 2},
		{"strict counts verdict", false, "abc\nValid: FALSE\n? No age type provided.\n", true, false, 1},
		{"lenient ignores verdict", false, "abc\nValid: FALSE\n", false, true, 0},
		{"not validated", true, "abc\n✗ Depths are not aligned.\n", false, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logDir := t.TempDir()
			path := LogPath(logDir, "site.csv")
			if tt.failed {
				path = FailedLogPath(logDir, "site.csv")
			}
			writeFile(t, path, tt.log)

			got, err := CheckPrior(logDir, "site.csv", tt.strict)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPass, got.Pass)
			assert.Equal(t, tt.wantErrors, got.Errors)
		})
	}
}

func TestCheckPrior_NoLog(t *testing.T) {
	got, err := CheckPrior(t.TempDir(), "site.csv", true)
	require.NoError(t, err)
	assert.True(t, got.Pass)
	assert.Equal(t, "No prior log file exists.", got.Message)
}

func TestCheckPrior_RemovesCleanFailedLog(t *testing.T) {
	logDir := t.TempDir()
	path := FailedLogPath(logDir, "site.csv")
	writeFile(t, path, "abc\n✔ all good\n")

	got, err := CheckPrior(logDir, "site.csv", false)
	require.NoError(t, err)
	assert.True(t, got.Pass)
	assert.NoFileExists(t, path)
}

func TestWrite(t *testing.T) {
	logDir := t.TempDir()

	path, err := Write(logDir, "data/site.csv", "abc", false, "Valid: FALSE\n✗ Sitename missing.\n")
	require.NoError(t, err)
	assert.Equal(t, FailedLogPath(logDir, "site.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc\nValid: FALSE\n✗ Sitename missing.\n", string(b))

	path, err = Write(logDir, "data/site.csv", "def", true, "Valid: TRUE")
	require.NoError(t, err)
	assert.Equal(t, LogPath(logDir, "site.csv"), path)
	assert.NoFileExists(t, FailedLogPath(logDir, "site.csv"))
}
