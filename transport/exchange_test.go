package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/heatsim/heatsim/block"
)

// TestHaloIdempotence checks property 6: two successive halo-exchange
// rounds with no kernel sweep between them leave every halo buffer
// unchanged from the state reached after the first round.
func TestHaloIdempotence(t *testing.T) {
	pl := block.ProcessLayout{Px: 1, Py: 2}
	rank0 := block.Rank2D{Rx: 0, Ry: 0}
	rank1 := block.Rank2D{Rx: 0, Ry: 1}

	g0 := block.NewGrid[float64](1, 1)
	h0 := block.NewHalos[float64](1, 1)
	g1 := block.NewGrid[float64](1, 1)
	h1 := block.NewHalos[float64](1, 1)

	for i := range h0.Col[block.Right][0] {
		h0.Col[block.Right][0][i] = 9.0
	}
	for i := range h1.Col[block.Left][0] {
		h1.Col[block.Left][0][i] = 4.0
	}

	f := NewFabric()
	nb0 := Neighbors{East: f.Link(0, 1)}
	nb1 := Neighbors{West: f.Link(1, 0)}

	round := func() {
		eg := new(errgroup.Group)
		eg.Go(func() error {
			if err := PreSweep(g0, h0, rank0, pl, nb0); err != nil {
				return err
			}
			return PostSweep(g0, h0, rank0, pl, nb0)
		})
		eg.Go(func() error {
			if err := PreSweep(g1, h1, rank1, pl, nb1); err != nil {
				return err
			}
			return PostSweep(g1, h1, rank1, pl, nb1)
		})
		require.NoError(t, eg.Wait())
	}

	round()
	afterRound1Right := h0.Col[block.Right][0]
	afterRound1Left := h1.Col[block.Left][0]

	round()
	assert.Equal(t, afterRound1Right, h0.Col[block.Right][0], "east halo should be stable after the first round")
	assert.Equal(t, afterRound1Left, h1.Col[block.Left][0], "west halo should be stable after the first round")
}
