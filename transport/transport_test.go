package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFabricRoundTrip(t *testing.T) {
	f := NewFabric()
	a := f.Link(0, 1)
	b := f.Link(1, 0)

	done := make(chan error, 1)
	go func() {
		done <- a.Send(7, []float64{1, 2, 3})
	}()
	require.NoError(t, <-done)

	dst := make([]float64, 3)
	require.NoError(t, b.Recv(7, dst))
	assert.Equal(t, []float64{1, 2, 3}, dst)
}

func TestFabricSizeMismatchIsFatal(t *testing.T) {
	f := NewFabric()
	a := f.Link(0, 1)
	b := f.Link(1, 0)

	go func() {
		_ = a.Send(3, []float64{1, 2, 3})
	}()

	dst := make([]float64, 4)
	err := b.Recv(3, dst)
	assert.Error(t, err)
}

func TestFabricTagMismatchIsFatal(t *testing.T) {
	f := NewFabric()
	a := f.Link(0, 1)
	b := f.Link(1, 0)

	go func() {
		_ = a.Send(3, []float64{1, 2, 3})
	}()

	dst := make([]float64, 3)
	err := b.Recv(9, dst)
	assert.Error(t, err)
}
