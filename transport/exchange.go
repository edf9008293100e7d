package transport

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/heatsim/heatsim/block"
)

// Neighbors holds a worker's four possible Links. A nil field means the
// worker has no neighbour in that direction (it sits on that edge of the
// global domain).
type Neighbors struct {
	North, South, West, East Link
}

// PreSweep performs every receive (and the north and west edges'
// send-then-receive handshakes) that must complete before sweep t's local
// kernel may run:
//
//   - North: send this worker's current first row, one row-tile per by, to
//     the north neighbour (its South leg receives it), then receive the
//     fresh top halo, one row-tile per by.
//   - West: send this worker's current left halo (its own west-edge
//     column, staged by the previous sweep's kernel mirror) to the west
//     neighbour, then receive that neighbour's fresh east column back —
//     the west neighbour's newly computed east column becomes this
//     worker's new west halo.
//   - South: receive the south neighbour's current first row into the
//     bottom halo (stale data, by construction — the south neighbour
//     sends it before running its own sweep t).
//   - East: receive the east neighbour's current left halo into the right
//     halo.
//
// The four legs touch disjoint halo buffers, so they run concurrently;
// PreSweep returns the first error any leg reports (a peer-size/tag
// mismatch is fatal per the halo-exchange failure model).
func PreSweep[T block.Float](g *block.Grid[T], h *block.Halos[T], rank2D block.Rank2D, pl block.ProcessLayout, nb Neighbors) error {
	nby := g.NBY
	nbx := g.NBX

	eg, _ := errgroup.WithContext(context.Background())

	if nb.North != nil {
		eg.Go(func() error {
			for by := 0; by < nby; by++ {
				firstRow := g.At(0, by)[0]
				if err := nb.North.Send(by, rowToSlice(&firstRow)); err != nil {
					return err
				}
			}
			for by := 0; by < nby; by++ {
				dst := make([]float64, block.BSY)
				if err := nb.North.Recv(by, dst); err != nil {
					return err
				}
				sliceToRow(&h.Row[block.Top][by], dst)
			}
			return nil
		})
	}

	if nb.West != nil {
		eg.Go(func() error {
			for bx := 0; bx < nbx; bx++ {
				col := h.Col[block.Left][bx]
				if err := nb.West.Send(bx+nby, colToSlice(&col)); err != nil {
					return err
				}
			}
			for bx := 0; bx < nbx; bx++ {
				dst := make([]float64, block.BSX)
				if err := nb.West.Recv(bx+nby, dst); err != nil {
					return err
				}
				sliceToCol(&h.Col[block.Left][bx], dst)
			}
			return nil
		})
	}

	if nb.South != nil {
		eg.Go(func() error {
			for by := 0; by < nby; by++ {
				dst := make([]float64, block.BSY)
				if err := nb.South.Recv(by, dst); err != nil {
					return err
				}
				sliceToRow(&h.Row[block.Bottom][by], dst)
			}
			return nil
		})
	}

	if nb.East != nil {
		eg.Go(func() error {
			for bx := 0; bx < nbx; bx++ {
				dst := make([]float64, block.BSX)
				if err := nb.East.Recv(bx+nby, dst); err != nil {
					return err
				}
				sliceToCol(&h.Col[block.Right][bx], dst)
			}
			return nil
		})
	}

	return eg.Wait()
}

// PostSweep sends the two outbound halo updates produced by sweep t's
// kernel run:
//
//   - South: the last row of each bottom-edge tile.
//   - East: the right halo (populated by the kernel's boundary mirror).
//
// The two legs are independent and run concurrently.
func PostSweep[T block.Float](g *block.Grid[T], h *block.Halos[T], rank2D block.Rank2D, pl block.ProcessLayout, nb Neighbors) error {
	nby := g.NBY
	nbx := g.NBX

	eg, _ := errgroup.WithContext(context.Background())

	if nb.South != nil {
		eg.Go(func() error {
			for by := 0; by < nby; by++ {
				lastRow := g.At(g.NBX-1, by)[block.BSX-1]
				if err := nb.South.Send(by, rowToSlice(&lastRow)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if nb.East != nil {
		eg.Go(func() error {
			for bx := 0; bx < nbx; bx++ {
				col := h.Col[block.Right][bx]
				if err := nb.East.Send(bx+nby, colToSlice(&col)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return eg.Wait()
}

func rowToSlice[T block.Float](r *block.Row[T]) []float64 {
	out := make([]float64, block.BSY)
	for i, v := range r {
		out[i] = float64(v)
	}
	return out
}

func sliceToRow[T block.Float](dst *block.Row[T], src []float64) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

func colToSlice[T block.Float](c *block.Col[T]) []float64 {
	out := make([]float64, block.BSX)
	for i, v := range c {
		out[i] = float64(v)
	}
	return out
}

func sliceToCol[T block.Float](dst *block.Col[T], src []float64) {
	for i, v := range src {
		dst[i] = T(v)
	}
}
