// Package source seeds a worker's outer halos from a set of analytic heat
// sources. Seeding only touches halo rings that face an edge of the global
// domain; halos facing a neighbour worker are left at zero and are
// overwritten by the first halo exchange.
package source

import (
	"math"

	"github.com/heatsim/heatsim/block"
)

// HeatSource is an immutable additive heat contribution centered at
// normalized coordinates (Row, Col) with falloff Range and peak
// Temperature.
type HeatSource struct {
	Row         float64
	Col         float64
	Range       float64
	Temperature float64
}

// SeedHalos fills the edge-facing halo buffers of a worker at rank2D in
// process layout pl, whose local slab spans nbx x nby tiles (so
// numRows = nbx*BSX, numCols = nby*BSY local cells), against a domain of
// totalRows x totalCols global cells. Contributions from all sources are
// additive; halos not facing a domain edge are left untouched.
func SeedHalos[T block.Float](h *block.Halos[T], nbx, nby, totalRows, totalCols int, rank2D block.Rank2D, pl block.ProcessLayout, sources []HeatSource) {
	numRows := nbx * block.BSX
	numCols := nby * block.BSY
	rowOffset := nbx * rank2D.Rx * block.BSX
	colOffset := nby * rank2D.Ry * block.BSY

	for _, src := range sources {
		if rank2D.AtNorthEdge() {
			seedRowHalo(h.Row[block.Top], numCols, colOffset, totalCols, func(u float64) float64 {
				return math.Sqrt(sq(u-src.Col) + sq(src.Row))
			}, src)
		}
		if rank2D.AtSouthEdge(pl) {
			seedRowHalo(h.Row[block.Bottom], numCols, colOffset, totalCols, func(u float64) float64 {
				return math.Sqrt(sq(1-src.Row) + sq(u-src.Col))
			}, src)
		}
		if rank2D.AtWestEdge() {
			seedColHalo(h.Col[block.Left], numRows, rowOffset, totalRows, func(v float64) float64 {
				return math.Sqrt(sq(src.Col) + sq(v-src.Row))
			}, src)
		}
		if rank2D.AtEastEdge(pl) {
			seedColHalo(h.Col[block.Right], numRows, rowOffset, totalRows, func(v float64) float64 {
				return math.Sqrt(sq(1-src.Col) + sq(v-src.Row))
			}, src)
		}
	}
}

func sq(v float64) float64 { return v * v }

// seedRowHalo adds src's contribution to every cell of a row-shaped halo
// ring (numCols logical cells split across block.BSY-wide tiles), where
// dist is a function of the cell's normalized global column coordinate.
func seedRowHalo[T block.Float](halo []block.Row[T], numCols, colOffset, totalCols int, dist func(u float64) float64, src HeatSource) {
	for y := 0; y < numCols; y++ {
		u := float64(colOffset+y) / float64(totalCols)
		d := dist(u)
		if d > src.Range {
			continue
		}
		row := &halo[y/block.BSY]
		row[y%block.BSY] += T((src.Range - d) / src.Range * src.Temperature)
	}
}

// seedColHalo adds src's contribution to every cell of a column-shaped
// halo ring (numRows logical cells split across block.BSX-tall tiles),
// where dist is a function of the cell's normalized global row coordinate.
func seedColHalo[T block.Float](halo []block.Col[T], numRows, rowOffset, totalRows int, dist func(v float64) float64, src HeatSource) {
	for x := 0; x < numRows; x++ {
		v := float64(rowOffset+x) / float64(totalRows)
		d := dist(v)
		if d > src.Range {
			continue
		}
		col := &halo[x/block.BSX]
		col[x%block.BSX] += T((src.Range - d) / src.Range * src.Temperature)
	}
}
