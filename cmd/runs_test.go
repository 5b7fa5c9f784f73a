package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edinet-screener/internal/model"
)

func TestPrintRuns(t *testing.T) {
	created := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID: "run-2", Status: model.RunStatusFailed, CreatedAt: created,
			Stats: &model.RunStats{Companies: 3, Error: "edinet: list documents: 401"},
		},
		{
			ID: "run-1", Status: model.RunStatusComplete, CreatedAt: created,
			Stats: &model.RunStats{Companies: 10, Saved: 8, Skipped: 1, Failed: 1},
		},
		{ID: "run-0", Status: model.RunStatusRunning, CreatedAt: created},
	}

	var out bytes.Buffer
	require.NoError(t, printRuns(&out, runs))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "failed")
	assert.Contains(t, lines[1], "401")
	assert.Equal(t, []string{"run-1", "complete"}, strings.Fields(lines[2])[:2])
	assert.Contains(t, strings.Fields(lines[2]), "8")
	assert.Contains(t, lines[3], "running")
}

func TestPrintRuns_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRuns(&out, nil))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}
