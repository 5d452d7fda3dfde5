package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_GoldenText(t *testing.T) {
	path := writeProgram(t, chainProgram)

	out, err := execute("stats", path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "stats_chain", []byte(out))
}

func TestStats_JSONOutput(t *testing.T) {
	path := writeProgram(t, chainProgram)

	out, err := execute("--format", "json", "stats", path, "--repeat", "4")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Runs)
	assert.Len(t, resp.Data.Plans, 2, "repeats reuse the stored plans")
	assert.Equal(t, 3, resp.Data.Operations)
	assert.Equal(t, 2, resp.Data.Fused)
	assert.InDelta(t, 2.0/3.0, resp.Data.FusionRatio, 1e-9)
	assert.Equal(t, 1, resp.Data.KindCounts["init"])
	assert.Equal(t, 1, resp.Data.KindCounts["mul_scalar"])
}
