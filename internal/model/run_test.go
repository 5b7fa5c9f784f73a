package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStats_Status(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RunStatusComplete, RunStats{Saved: 3}.Status())
	assert.Equal(t, RunStatusFailed, RunStats{Error: "edinet: build index: context canceled"}.Status())
}

func TestReportRow_NullableJSON(t *testing.T) {
	t.Parallel()

	ncav := int64(-1200)
	b, err := json.Marshal(ReportRow{EDINETCode: "E00001", NCAV: &ncav})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, float64(-1200), m["ncav"])
	assert.Nil(t, m["is_cf_increasing"], "unknown signals encode as null")
	assert.Contains(t, m, "is_cf_increasing")
	assert.NotContains(t, m, "ticker")
}
