//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/neotomadb/neotoma-loader/internal/validlog"
)

func sampleRuns() []validlog.Run {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := func(d time.Duration) *time.Time {
		t := start.Add(d)
		return &t
	}
	return []validlog.Run{
		{ID: "0a1b2c3d-0000-4000-8000-000000000001", File: "mirror.csv", Status: validlog.RunStatusValid, StartedAt: start, CompletedAt: done(2 * time.Second)},
		{ID: "0a1b2c3d-0000-4000-8000-000000000002", File: "tarleton.csv", Status: validlog.RunStatusInvalid, Errors: 3, StartedAt: start, CompletedAt: done(4 * time.Second)},
		{ID: "0a1b2c3d-0000-4000-8000-000000000003", File: "/data/uploads/2026/march/very/deep/path/to/a/file.csv", Status: validlog.RunStatusFailed, Error: "open: no such file", StartedAt: start.Add(-48 * time.Hour)},
		{ID: "short", File: "pending.csv", Status: validlog.RunStatusRunning, StartedAt: start},
	}
}

func TestComputeRunStats(t *testing.T) {
	s := computeRunStats(sampleRuns())

	assert.Equal(t, runStats{
		Total:      4,
		Valid:      1,
		Invalid:    1,
		Failed:     1,
		Running:    1,
		Checks:     3,
		AvgDurSecs: 3,
	}, s)
}

func TestComputeRunStats_Empty(t *testing.T) {
	assert.Equal(t, runStats{}, computeRunStats(nil))
}

func TestStartedAfter(t *testing.T) {
	runs := sampleRuns()
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got := startedAfter(runs, cutoff)
	assert.Len(t, got, 3)
	for _, r := range got {
		assert.NotEqual(t, validlog.RunStatusFailed, r.Status)
	}
	assert.Empty(t, startedAfter(runs, cutoff.Add(72*time.Hour)))
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "0a1b2c3d ")
	assert.NotContains(t, out, "0a1b2c3d-0000")
	assert.Contains(t, out, "mirror.csv")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "invalid")
	assert.Contains(t, out, "2026-03-01 12:00")
	assert.Contains(t, out, "2s")
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 2, Valid: 1, Invalid: 1, Checks: 4, AvgDurSecs: 1.5})
	out := buf.String()

	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "Failed checks:")
	assert.Contains(t, out, "1.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "0a1b2c3d", truncateID("0a1b2c3d-0000-4000-8000-000000000001"))
	assert.Equal(t, "short", truncateID("short"))
}
