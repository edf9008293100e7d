// Package image renders a temperature field as a PPM P3 ASCII image: a
// fixed 1024-entry colour palette and a row-major writer over a
// block.Grid.
package image

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/heatsim/heatsim/block"
)

// RGB is one palette entry.
type RGB struct {
	R, G, B uint8
}

// Palette builds the 1024-entry colour ramp: four piecewise-linear
// segments running red (index 1023, the maximum) through yellow, green
// and cyan down to blue (index 0, the minimum).
func Palette() [1024]RGB {
	var pal [1024]RGB
	n := 1023
	for i := 0; i < 256; i++ {
		pal[n] = RGB{R: 255, G: uint8(i), B: 0}
		n--
	}
	for i := 0; i < 256; i++ {
		pal[n] = RGB{R: uint8(255 - i), G: 255, B: 0}
		n--
	}
	for i := 0; i < 256; i++ {
		pal[n] = RGB{R: 0, G: 255, B: uint8(i)}
		n--
	}
	for i := 0; i < 256; i++ {
		pal[n] = RGB{R: 0, G: uint8(255 - i), B: 255}
		n--
	}
	return pal
}

// WritePPM writes g as a PPM P3 ASCII image to w: header
// "P3\n<cols> <rows>\n255\n" followed by one RGB triple per cell,
// row-major, each row terminated by a newline. Each cell is linearly
// rescaled against g's own min/max into a palette index; a field with
// zero span maps every cell to index 0.
func WritePPM[T block.Float](w io.Writer, g *block.Grid[T]) error {
	numRows := g.NBX * block.BSX
	numCols := g.NBY * block.BSY

	min, max := scanMinMax(g)
	span := max - min
	pal := Palette()

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", numCols, numRows); err != nil {
		return err
	}

	for x := 0; x < numRows; x++ {
		bx, lx := x/block.BSX, x%block.BSX
		for y := 0; y < numCols; y++ {
			by, ly := y/block.BSY, y%block.BSY
			v := float64(g.At(bx, by)[lx][ly])

			k := 0
			if span != 0 {
				k = int(1023.0 * (v - min) / span)
			}
			c := pal[k]
			if _, err := fmt.Fprintf(bw, "%d %d %d  ", c.R, c.G, c.B); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func scanMinMax[T block.Float](g *block.Grid[T]) (float64, float64) {
	min := math.MaxFloat64
	max := -math.MaxFloat64
	for bx := 0; bx < g.NBX; bx++ {
		for by := 0; by < g.NBY; by++ {
			tile := g.At(bx, by)
			for x := 0; x < block.BSX; x++ {
				for y := 0; y < block.BSY; y++ {
					v := float64(tile[x][y])
					if v > max {
						max = v
					}
					if v < min {
						min = v
					}
				}
			}
		}
	}
	return min, max
}
