package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsim/heatsim/block"
	"github.com/heatsim/heatsim/kernel"
	"github.com/heatsim/heatsim/source"
)

func TestRunSweepMatchesSequentialRowMajor(t *testing.T) {
	pl := block.ProcessLayout{Px: 1, Py: 1}
	rank2D := block.Rank2D{Rx: 0, Ry: 0}
	const nbx, nby = 2, 3

	gWave := block.NewGrid[float64](nbx, nby)
	hWave := block.NewHalos[float64](nbx, nby)
	gSeq := block.NewGrid[float64](nbx, nby)
	hSeq := block.NewHalos[float64](nbx, nby)

	sources := []source.HeatSource{{Row: 0.3, Col: 0.6, Range: 0.5, Temperature: 3.0}}
	source.SeedHalos[float64](hWave, nbx, nby, nbx*block.BSX, nby*block.BSY, rank2D, pl, sources)
	source.SeedHalos[float64](hSeq, nbx, nby, nbx*block.BSX, nby*block.BSY, rank2D, pl, sources)

	for sweep := 0; sweep < 3; sweep++ {
		_, err := RunSweep(gWave, hWave, rank2D, pl)
		require.NoError(t, err)

		for bx := 0; bx < nbx; bx++ {
			for by := 0; by < nby; by++ {
				kernel.SolveBlock(gSeq, hSeq, bx, by, rank2D, pl)
			}
		}
	}

	for bx := 0; bx < nbx; bx++ {
		for by := 0; by < nby; by++ {
			wave := gWave.At(bx, by)
			seq := gSeq.At(bx, by)
			for x := 0; x < block.BSX; x += 173 {
				for y := 0; y < block.BSY; y += 211 {
					assert.Equal(t, seq[x][y], wave[x][y], "tile(%d,%d) cell(%d,%d) wavefront vs sequential", bx, by, x, y)
				}
			}
		}
	}
}

func TestDiagonalTasksCoverage(t *testing.T) {
	const nbx, nby = 3, 4
	seen := map[[2]int]bool{}
	for d := 0; d <= nbx+nby-2; d++ {
		for _, tk := range diagonalTasks(nbx, nby, d) {
			assert.Falsef(t, seen[tk], "tile %v scheduled twice", tk)
			seen[tk] = true
		}
	}
	assert.Len(t, seen, nbx*nby)
}
