package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsim/heatsim/block"
	"github.com/heatsim/heatsim/source"
	"github.com/heatsim/heatsim/transport"
)

func TestBootstrapRejectsBadRank(t *testing.T) {
	pl := block.ProcessLayout{Px: 2, Py: 2}
	_, err := Bootstrap[float64](4, pl, 2*block.BSX, 2*block.BSY, nil)
	assert.Error(t, err)
}

func TestBootstrapRejectsIndivisibleShape(t *testing.T) {
	pl := block.ProcessLayout{Px: 2, Py: 2}
	_, err := Bootstrap[float64](0, pl, 2*block.BSX+1, 2*block.BSY, nil)
	assert.Error(t, err)
}

func TestBootstrapComputesLocalShape(t *testing.T) {
	pl := block.ProcessLayout{Px: 2, Py: 2}
	w, err := Bootstrap[float64](3, pl, 4*block.BSX, 2*block.BSY, nil)
	require.NoError(t, err)
	assert.Equal(t, block.Rank2D{Rx: 1, Ry: 1}, w.Rank2D)
	assert.Equal(t, 2, w.Grid.NBX)
	assert.Equal(t, 1, w.Grid.NBY)
}

// bootstrapAll builds and wires every rank of pl on a shared fabric.
func bootstrapAll(t *testing.T, pl block.ProcessLayout, rows, cols int, sources []source.HeatSource) []*Worker[float64] {
	t.Helper()
	fabric := transport.NewFabric()
	workers := make([]*Worker[float64], pl.Size())
	for rank := 0; rank < pl.Size(); rank++ {
		w, err := Bootstrap[float64](rank, pl, rows, cols, sources)
		require.NoError(t, err)
		workers[rank] = w
	}
	for _, w := range workers {
		w.Wire(fabric)
	}
	return workers
}

func TestZeroSourcesStayZero(t *testing.T) {
	pl := block.ProcessLayout{Px: 1, Py: 1}
	workers := bootstrapAll(t, pl, 2*block.BSX, 2*block.BSY, nil)

	_, err := RunAll(workers, 3)
	require.NoError(t, err)

	g := workers[0].Grid
	for bx := 0; bx < g.NBX; bx++ {
		for by := 0; by < g.NBY; by++ {
			tile := g.At(bx, by)
			for x := 0; x < block.BSX; x += 257 {
				for y := 0; y < block.BSY; y += 317 {
					assert.Zero(t, tile[x][y])
				}
			}
		}
	}
}

func TestPartitionEquivalence(t *testing.T) {
	const rows, cols = 2 * block.BSX, 2 * block.BSY
	sources := []source.HeatSource{{Row: 0.3, Col: 0.7, Range: 0.2, Temperature: 5.0}}

	single := bootstrapAll(t, block.ProcessLayout{Px: 1, Py: 1}, rows, cols, sources)
	_, err := RunAll(single, 3)
	require.NoError(t, err)
	globalGrid := single[0].Grid

	quad := bootstrapAll(t, block.ProcessLayout{Px: 2, Py: 2}, rows, cols, sources)
	_, err = RunAll(quad, 3)
	require.NoError(t, err)

	for _, w := range quad {
		bx, by := w.Rank2D.Rx, w.Rank2D.Ry
		globalTile := globalGrid.At(bx, by)
		localTile := w.Grid.At(0, 0)
		for x := 0; x < block.BSX; x += 257 {
			for y := 0; y < block.BSY; y += 317 {
				assert.InDelta(t, globalTile[x][y], localTile[x][y], 1e-9,
					"rank(%d,%d) cell(%d,%d)", bx, by, x, y)
			}
		}
	}

	gathered := Gather(quad)
	require.Equal(t, globalGrid.NBX, gathered.NBX)
	require.Equal(t, globalGrid.NBY, gathered.NBY)
	for bx := 0; bx < gathered.NBX; bx++ {
		for by := 0; by < gathered.NBY; by++ {
			want := globalGrid.At(bx, by)
			got := gathered.At(bx, by)
			for x := 0; x < block.BSX; x += 257 {
				for y := 0; y < block.BSY; y += 317 {
					assert.InDelta(t, want[x][y], got[x][y], 1e-9, "gathered tile(%d,%d) cell(%d,%d)", bx, by, x, y)
				}
			}
		}
	}
}
