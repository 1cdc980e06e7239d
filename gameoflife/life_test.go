package gameoflife

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliveCells(grid []bool, width int) []Cell {
	var out []Cell
	for i, a := range grid {
		if a {
			out = append(out, Cell{X: i % width, Y: i / width})
		}
	}
	return out
}

func TestBlinkerOscillates(t *testing.T) {
	b, err := New(Config{Width: 5, Height: 5, Alive: Blinker(2, 1)})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()

	// Generation 1 is the seed: the vertical bar.
	require.NoError(t, b.Advance(ctx, 1))
	grid, gen := b.Snapshot()
	assert.Equal(t, uint64(1), gen)
	assert.ElementsMatch(t, Blinker(2, 1), aliveCells(grid, 5))

	// One generation later it flips horizontal.
	require.NoError(t, b.Advance(ctx, 1))
	grid, gen = b.Snapshot()
	assert.Equal(t, uint64(2), gen)
	assert.ElementsMatch(t, []Cell{{1, 2}, {2, 2}, {3, 2}}, aliveCells(grid, 5))

	// Period 2: back to the seed.
	require.NoError(t, b.Advance(ctx, 1))
	grid, _ = b.Snapshot()
	assert.ElementsMatch(t, Blinker(2, 1), aliveCells(grid, 5))
}

func TestGliderIsDeterministicAcrossWorkerCounts(t *testing.T) {
	run := func(workers int) []bool {
		b, err := New(Config{Width: 8, Height: 8, Alive: Glider(1, 1), Workers: workers})
		require.NoError(t, err)
		defer b.Close()
		require.NoError(t, b.Advance(context.Background(), 10))
		grid, gen := b.Snapshot()
		require.Equal(t, uint64(10), gen)
		return grid
	}

	assert.Equal(t, run(1), run(8), "generation 10 must not depend on the worker count")
}

func TestRendererReceivesEveryGeneration(t *testing.T) {
	var gens []uint64
	b, err := New(Config{Width: 4, Height: 4, Alive: Blinker(1, 1)},
		WithRenderer(func(grid []bool, gen uint64) { gens = append(gens, gen) }))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Advance(context.Background(), 3))
	assert.Equal(t, []uint64{1, 2, 3}, gens)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Width: 2, Height: 5})
	assert.Error(t, err)

	_, err = New(Config{Width: 5, Height: 5, Alive: []Cell{{9, 0}}})
	assert.Error(t, err)
}
