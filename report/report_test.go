package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/heatsim/heatsim/block"
)

func TestWriteSingleRankOmitsPerRankFields(t *testing.T) {
	l := Line{Rows: 1024, Cols: 1024, Timesteps: 10, Layout: block.ProcessLayout{Px: 1, Py: 1}, Elapsed: time.Second}

	var buf bytes.Buffer
	Write(&buf, l)

	out := buf.String()
	assert.Contains(t, out, "rows, 1024, cols, 1024, total, 1048576, bs, 1024, threads,")
	assert.NotContains(t, out, "rows_per_rank")
	assert.NotContains(t, out, "ranks,")
}

func TestWriteMultiRankIncludesPerRankFields(t *testing.T) {
	l := Line{Rows: 2048, Cols: 2048, Timesteps: 50, Layout: block.ProcessLayout{Px: 2, Py: 2}, Elapsed: time.Second}

	var buf bytes.Buffer
	Write(&buf, l)

	out := buf.String()
	assert.Contains(t, out, "rows_per_rank, 512")
	assert.Contains(t, out, "total_per_rank, 1048576")
	assert.Contains(t, out, "ranks, 4")
}

func TestMCUPS(t *testing.T) {
	l := Line{Rows: 1000, Cols: 1000, Timesteps: 1, Elapsed: time.Second}
	assert.InDelta(t, 1.0, l.MCUPS(), 1e-9)
}
