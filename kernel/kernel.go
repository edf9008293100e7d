// Package kernel implements the per-tile Gauss–Seidel stencil update: the
// core numeric operation of the simulation.
package kernel

import "github.com/heatsim/heatsim/block"

// SolveBlock updates every cell of tile (bx, by) in g to
// 0.25 * (north + south + west + east), honoring g's halo rings for cells
// on the worker's boundary. Cells are visited in lexicographic (x, y)
// order so north and west neighbours observe this sweep's new values
// while south and east observe the previous sweep's values — the
// Gauss–Seidel ordering invariant.
//
// When the tile sits on the worker's east or west edge and the worker has
// a live neighbour across that edge (i.e. is not itself on that edge of
// the global domain), the newly written boundary column is mirrored into
// the outgoing halo buffer so the post-sweep send can ship it without a
// second pass over the tile.
//
// SolveBlock returns the sum of squared deltas between old and new cell
// values, for callers that want a residual.
func SolveBlock[T block.Float](g *block.Grid[T], h *block.Halos[T], bx, by int, rank2D block.Rank2D, pl block.ProcessLayout) float64 {
	target := g.At(bx, by)
	nbx, nby := g.NBX, g.NBY

	var haloTop *block.Row[T]
	if bx == 0 {
		haloTop = &h.Row[block.Top][by]
	} else {
		top := g.At(bx-1, by)
		haloTop = &top[block.BSX-1]
	}

	var haloBottom *block.Row[T]
	if bx == nbx-1 {
		haloBottom = &h.Row[block.Bottom][by]
	} else {
		bottom := g.At(bx+1, by)
		haloBottom = &bottom[0]
	}

	var leftBlock, rightBlock *block.Tile[T]
	if by > 0 {
		leftBlock = g.At(bx, by-1)
	}
	if by < nby-1 {
		rightBlock = g.At(bx, by+1)
	}

	var residual float64
	for x := 0; x < block.BSX; x++ {
		var topRow, bottomRow *block.Row[T]
		if x > 0 {
			topRow = &target[x-1]
		} else {
			topRow = haloTop
		}
		if x < block.BSX-1 {
			bottomRow = &target[x+1]
		} else {
			bottomRow = haloBottom
		}

		var haloLeftElem, haloRightElem T
		if by == 0 {
			haloLeftElem = h.Col[block.Left][bx][x]
		} else {
			haloLeftElem = leftBlock[x][block.BSY-1]
		}
		if by == nby-1 {
			haloRightElem = h.Col[block.Right][bx][x]
		} else {
			haloRightElem = rightBlock[x][0]
		}

		for y := 0; y < block.BSY; y++ {
			var leftElem, rightElem T
			if y > 0 {
				leftElem = target[x][y-1]
			} else {
				leftElem = haloLeftElem
			}
			if y < block.BSY-1 {
				rightElem = target[x][y+1]
			} else {
				rightElem = haloRightElem
			}

			value := T(0.25) * (topRow[y] + bottomRow[y] + leftElem + rightElem)
			diff := float64(value - target[x][y])
			residual += diff * diff

			// Stage the new boundary value for the post-sweep send. The
			// guard on ry (not rx) is deliberate: the mirror fires when
			// this worker has a live neighbour across the edge, which is
			// a process-layout-y question for the east/west edges.
			if by == nby-1 && y == block.BSY-1 && !rank2D.AtEastEdge(pl) {
				h.Col[block.Right][bx][x] = value
			}
			if by == 0 && y == 0 && !rank2D.AtWestEdge() {
				h.Col[block.Left][bx][x] = value
			}

			target[x][y] = value
		}
	}
	return residual
}
