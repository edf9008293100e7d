// Package worker bootstraps one rank's local state from the global domain
// configuration and process layout, wires it to its neighbours on a
// transport fabric, and drives its per-timestep sweep loop.
package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/heatsim/heatsim/block"
	"github.com/heatsim/heatsim/schedule"
	"github.com/heatsim/heatsim/source"
	"github.com/heatsim/heatsim/transport"
)

// Worker is one rank's complete local state: its position in the process
// layout, its tile grid and halo rings, and its links to the (up to four)
// neighbouring ranks.
type Worker[T block.Float] struct {
	Rank2D    block.Rank2D
	Layout    block.ProcessLayout
	Grid      *block.Grid[T]
	Halos     *block.Halos[T]
	Neighbors transport.Neighbors
}

// Bootstrap computes rank's local block shape from the global domain size
// and process layout, allocates its grid and halo rings, and seeds the
// edge-facing halos from sources. rows and cols must already satisfy the
// block-divisibility invariant; that rounding is config.Refine's job, not
// this one's — Bootstrap rejects a shape that does not.
func Bootstrap[T block.Float](rank int, pl block.ProcessLayout, rows, cols int, sources []source.HeatSource) (*Worker[T], error) {
	if rank < 0 || rank >= pl.Size() {
		return nil, fmt.Errorf("worker: rank %d out of range for process layout %dx%d", rank, pl.Px, pl.Py)
	}
	if rows%(pl.Px*block.BSX) != 0 || cols%(pl.Py*block.BSY) != 0 {
		return nil, fmt.Errorf("worker: rows=%d cols=%d do not satisfy the %dx%d block-divisibility invariant", rows, cols, pl.Px, pl.Py)
	}

	rank2D := block.RankToRank2D(rank, pl)
	nbx := rows / (pl.Px * block.BSX)
	nby := cols / (pl.Py * block.BSY)

	g := block.NewGrid[T](nbx, nby)
	h := block.NewHalos[T](nbx, nby)
	source.SeedHalos(h, nbx, nby, rows, cols, rank2D, pl, sources)

	return &Worker[T]{Rank2D: rank2D, Layout: pl, Grid: g, Halos: h}, nil
}

// Wire attaches w's neighbour links on fabric, leaving a direction nil
// wherever w sits on that edge of the global domain.
func (w *Worker[T]) Wire(fabric *transport.Fabric) {
	self := w.Rank2D.Linear(w.Layout)

	var nb transport.Neighbors
	if !w.Rank2D.AtNorthEdge() {
		nb.North = fabric.Link(self, w.Rank2D.North().Linear(w.Layout))
	}
	if !w.Rank2D.AtSouthEdge(w.Layout) {
		nb.South = fabric.Link(self, w.Rank2D.South().Linear(w.Layout))
	}
	if !w.Rank2D.AtWestEdge() {
		nb.West = fabric.Link(self, w.Rank2D.West().Linear(w.Layout))
	}
	if !w.Rank2D.AtEastEdge(w.Layout) {
		nb.East = fabric.Link(self, w.Rank2D.East().Linear(w.Layout))
	}
	w.Neighbors = nb
}

// Run executes timesteps sweeps — pre-sweep halo exchange, local wavefront
// sweep, post-sweep halo exchange, in that order, every iteration — and
// returns the residual of the final sweep.
func (w *Worker[T]) Run(timesteps int) (float64, error) {
	rank := w.Rank2D.Linear(w.Layout)

	var residual float64
	for t := 0; t < timesteps; t++ {
		if err := transport.PreSweep(w.Grid, w.Halos, w.Rank2D, w.Layout, w.Neighbors); err != nil {
			return residual, fmt.Errorf("worker: rank %d pre-sweep at timestep %d: %w", rank, t, err)
		}

		r, err := schedule.RunSweep(w.Grid, w.Halos, w.Rank2D, w.Layout)
		if err != nil {
			return residual, fmt.Errorf("worker: rank %d sweep %d: %w", rank, t, err)
		}
		residual = r

		if err := transport.PostSweep(w.Grid, w.Halos, w.Rank2D, w.Layout, w.Neighbors); err != nil {
			return residual, fmt.Errorf("worker: rank %d post-sweep at timestep %d: %w", rank, t, err)
		}
	}
	return residual, nil
}

// Gather assembles the global grid from every worker's local slab,
// mapping each worker's local tile (bx, by) to the global tile
// (rank2D.Rx*nbx+bx, rank2D.Ry*nby+by) — the block-reorder the
// distributed image writer needs, realized directly over Grid.At instead
// of a flat-array pivot formula. It returns nil for an empty slice.
func Gather[T block.Float](workers []*Worker[T]) *block.Grid[T] {
	if len(workers) == 0 {
		return nil
	}

	pl := workers[0].Layout
	nbx := workers[0].Grid.NBX
	nby := workers[0].Grid.NBY

	global := block.NewGrid[T](pl.Px*nbx, pl.Py*nby)
	for _, w := range workers {
		for bx := 0; bx < nbx; bx++ {
			for by := 0; by < nby; by++ {
				*global.At(w.Rank2D.Rx*nbx+bx, w.Rank2D.Ry*nby+by) = *w.Grid.At(bx, by)
			}
		}
	}
	return global
}

// RunAll drives every worker's Run concurrently, one goroutine per rank —
// the in-process stand-in for the coordinated job of Px*Py processes the
// halo-exchange protocol assumes — and returns each rank's final residual
// in rank order. Workers must already be wired to a shared Fabric.
func RunAll[T block.Float](workers []*Worker[T], timesteps int) ([]float64, error) {
	residuals := make([]float64, len(workers))

	eg, _ := errgroup.WithContext(context.Background())
	for i, w := range workers {
		eg.Go(func() error {
			r, err := w.Run(timesteps)
			residuals[i] = r
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return residuals, err
	}
	return residuals, nil
}
