// Package report formats the single end-of-run performance line printed
// to stdout by rank 0.
package report

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/heatsim/heatsim/block"
)

// Line is the data behind one CSV report; Write formats it.
type Line struct {
	Rows, Cols int
	Timesteps  int
	Layout     block.ProcessLayout
	Elapsed    time.Duration
}

// MCUPS returns the throughput metric: million cell updates per second.
func (l Line) MCUPS() float64 {
	total := float64(l.Rows) * float64(l.Cols) * float64(l.Timesteps)
	return total / l.Elapsed.Seconds() / 1e6
}

// Write prints the CSV line. Field order follows the distributed report:
// rows, cols, rows_per_rank, total, total_per_rank, bs, ranks, threads,
// timesteps, time, performance. A single-rank run (Layout.Size() == 1)
// omits the three per-rank fields, matching the single-process variant's
// shorter line.
func Write(w io.Writer, l Line) {
	total := int64(l.Rows) * int64(l.Cols)
	threads := runtime.GOMAXPROCS(0)

	if l.Layout.Size() == 1 {
		fmt.Fprintf(w, "rows, %d, cols, %d, total, %d, bs, %d, threads, %d, timesteps, %d, time, %f, performance, %f\n",
			l.Rows, l.Cols, total, block.BSX, threads, l.Timesteps, l.Elapsed.Seconds(), l.MCUPS())
		return
	}

	ranks := l.Layout.Size()
	fmt.Fprintf(w, "rows, %d, cols, %d, rows_per_rank, %d, total, %d, total_per_rank, %d, bs, %d, ranks, %d, threads, %d, timesteps, %d, time, %f, performance, %f\n",
		l.Rows, l.Cols, l.Rows/ranks, total, total/int64(ranks), block.BSX, ranks, threads, l.Timesteps, l.Elapsed.Seconds(), l.MCUPS())
}
