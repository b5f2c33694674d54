package maze

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/astar-playground/pathfind/engine"
)

func TestGenerateShape(t *testing.T) {
	sizes := []struct{ w, h int }{{3, 3}, {4, 4}, {5, 7}, {30, 30}, {31, 17}, {200, 3}}
	for _, sz := range sizes {
		grid, err := GenerateWith(sz.w, sz.h, rand.New(rand.NewSource(1)))
		require.NoError(t, err, "%dx%d", sz.w, sz.h)
		require.Len(t, grid, sz.h)
		for _, row := range grid {
			require.Len(t, row, sz.w)
		}

		for x := 0; x < sz.w; x++ {
			assert.True(t, grid[0][x], "%dx%d top border at x=%d", sz.w, sz.h, x)
			assert.True(t, grid[sz.h-1][x], "%dx%d bottom border at x=%d", sz.w, sz.h, x)
		}
		for y := 0; y < sz.h; y++ {
			assert.True(t, grid[y][0], "%dx%d left border at y=%d", sz.w, sz.h, y)
			assert.True(t, grid[y][sz.w-1], "%dx%d right border at y=%d", sz.w, sz.h, y)
		}
		assert.False(t, grid[1][1], "%dx%d seed cell", sz.w, sz.h)
	}
}

func TestGeneratePerfect(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		w, h := 5+int(seed)%13, 5+int(seed*7)%11
		grid, err := Generate(Config{Width: w, Height: h, Seed: seed})
		require.NoError(t, err)

		cells := ((w - 1) / 2) * ((h - 1) / 2)
		passages := 0
		for y, row := range grid {
			for x, wall := range row {
				if wall {
					continue
				}
				passages++
				assert.False(t, y%2 == 0 && x%2 == 0, "pillar cell (%d,%d) opened", x, y)
			}
		}

		// A spanning tree over the lattice: every cell plus one opening per edge.
		assert.Equal(t, 2*cells-1, passages, "seed %d %dx%d", seed, w, h)
		assert.Equal(t, passages, Reachable(grid, engine.Coordinate{X: 1, Y: 1}), "seed %d %dx%d", seed, w, h)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(Config{Width: 21, Height: 15, Seed: 99})
	require.NoError(t, err)
	b, err := Generate(Config{Width: 21, Height: 15, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(Config{Width: 21, Height: 15, Seed: 100})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerateBraid(t *testing.T) {
	perfect, err := Generate(Config{Width: 31, Height: 31, Seed: 5})
	require.NoError(t, err)
	braided, err := Generate(Config{Width: 31, Height: 31, Seed: 5, Braid: 1})
	require.NoError(t, err)

	count := func(grid [][]bool) int {
		n := 0
		for _, row := range grid {
			for _, wall := range row {
				if !wall {
					n++
				}
			}
		}
		return n
	}
	assert.Greater(t, count(braided), count(perfect))
	assert.Equal(t, count(braided), Reachable(braided, engine.Coordinate{X: 1, Y: 1}))

	for y, row := range braided {
		for x := range row {
			if x%2 == 0 && y%2 == 0 {
				assert.True(t, braided[y][x], "pillar cell (%d,%d) opened", x, y)
			}
		}
	}
}

func TestGenerateInvalidSize(t *testing.T) {
	for _, sz := range []struct{ w, h int }{{2, 10}, {10, 2}, {0, 0}, {-1, 5}, {engine.MaxGridSize + 1, 5}} {
		_, err := Generate(Config{Width: sz.w, Height: sz.h, Seed: 1})
		assert.ErrorIs(t, err, ErrInvalidSize, "%dx%d", sz.w, sz.h)
	}
}

func TestFarthest(t *testing.T) {
	grid := [][]bool{
		{true, true, true, true, true},
		{true, false, false, false, true},
		{true, true, true, false, true},
		{true, false, false, false, true},
		{true, true, true, true, true},
	}
	far, dist := Farthest(grid, engine.Coordinate{X: 1, Y: 1})
	assert.Equal(t, engine.Coordinate{X: 1, Y: 3}, far)
	assert.Equal(t, 6, dist)
	assert.Equal(t, 7, Reachable(grid, engine.Coordinate{X: 1, Y: 1}))

	t.Run("from a wall", func(t *testing.T) {
		far, dist := Farthest(grid, engine.Coordinate{X: 0, Y: 0})
		assert.Equal(t, engine.Coordinate{X: 0, Y: 0}, far)
		assert.Equal(t, 0, dist)
		assert.Equal(t, 0, Reachable(grid, engine.Coordinate{X: 0, Y: 0}))
	})

	t.Run("out of bounds", func(t *testing.T) {
		assert.Equal(t, 0, Reachable(grid, engine.Coordinate{X: 9, Y: 9}))
	})
}

func TestMazeIsSolvable(t *testing.T) {
	grid, err := Generate(Config{Width: 25, Height: 19, Seed: 3})
	require.NoError(t, err)

	start := engine.Coordinate{X: 1, Y: 1}
	far, _ := Farthest(grid, start)

	eng, err := engine.New(25, 19, engine.WithDestination(far), engine.WithDiagonal(false))
	require.NoError(t, err)
	require.NoError(t, eng.SetFrom(start))
	require.NoError(t, eng.SetBlocks(grid))

	res, err := eng.CalcPath(t.Context(), engine.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeFound, res.Outcome)
}
