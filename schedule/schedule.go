// Package schedule runs one sweep of the block kernel across a worker's
// local tile grid. It declares the same read/write dependency every tile
// task has on its in-slab neighbours implicitly, by construction: tiles on
// the same anti-diagonal of the block grid (bx+by constant) never depend
// on each other, only on the diagonal before them, so running diagonals
// in order and tiles within a diagonal in parallel is a conformant
// wavefront schedule for the four-neighbour dependency relation in
// spec.md §4.2.
package schedule

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/heatsim/heatsim/block"
	"github.com/heatsim/heatsim/kernel"
)

// RunSweep updates every tile of g exactly once, respecting the diagonal
// wavefront order, and returns the summed per-tile residual (sum of
// squared deltas). Tiles within one wavefront batch run on a bounded pool
// of runtime.GOMAXPROCS(0) goroutines; the pool barrier between batches is
// itself the dependency edge between one diagonal and the next. No task
// of a later diagonal starts before every task of the diagonal before it
// has completed.
func RunSweep[T block.Float](g *block.Grid[T], h *block.Halos[T], rank2D block.Rank2D, pl block.ProcessLayout) (float64, error) {
	numWorkers := runtime.GOMAXPROCS(0)

	var residualMu sync.Mutex
	var residual float64

	minDiag := 0
	maxDiag := g.NBX + g.NBY - 2
	for d := minDiag; d <= maxDiag; d++ {
		tasks := diagonalTasks(g.NBX, g.NBY, d)
		if len(tasks) == 0 {
			continue
		}

		work := make(chan [2]int, len(tasks))
		for _, tk := range tasks {
			work <- tk
		}
		close(work)

		workers := numWorkers
		if workers > len(tasks) {
			workers = len(tasks)
		}

		eg, _ := errgroup.WithContext(context.Background())
		for i := 0; i < workers; i++ {
			eg.Go(func() error {
				for tk := range work {
					r := kernel.SolveBlock(g, h, tk[0], tk[1], rank2D, pl)
					residualMu.Lock()
					residual += r
					residualMu.Unlock()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return residual, err
		}
	}
	return residual, nil
}

// diagonalTasks returns every (bx, by) with bx+by == d, bx in [0,nbx) and
// by in [0,nby) — the wavefront batch for diagonal d.
func diagonalTasks(nbx, nby, d int) [][2]int {
	loBx := d - (nby - 1)
	if loBx < 0 {
		loBx = 0
	}
	hiBx := d
	if hiBx > nbx-1 {
		hiBx = nbx - 1
	}
	if loBx > hiBx {
		return nil
	}
	tasks := make([][2]int, 0, hiBx-loBx+1)
	for bx := loBx; bx <= hiBx; bx++ {
		tasks = append(tasks, [2]int{bx, d - bx})
	}
	return tasks
}
