package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/zyedidia/generic/queue"
	"github.com/zyedidia/generic/stack"

	"github.com/wricardo/astar-playground/pathfind/engine"
)

// Cell values in a generated layout.
const (
	Wall    = true
	Passage = false
)

// MinSize is the smallest side that still holds one open cell.
const MinSize = 3

var ErrInvalidSize = errors.New("maze: invalid size")

type Config struct {
	Width, Height int

	// Braid is the chance, 0.0 to 1.0, of knocking out each wall that
	// separates two corridors. Zero yields a perfect maze.
	Braid float64

	Seed int64 // Optional (0 = Random)
}

// Generate carves a maze of cfg.Width x cfg.Height. The result is indexed
// [y][x] and true marks a wall.
func Generate(cfg Config) ([][]bool, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	grid, err := GenerateWith(cfg.Width, cfg.Height, rng)
	if err != nil {
		return nil, err
	}
	if cfg.Braid > 0 {
		braid(grid, cfg.Braid, rng)
	}
	return grid, nil
}

// GenerateWith carves a perfect maze using rng. Every even row and column
// and the last row and column start out as walls; the odd lattice cells are
// then joined by a depth-first backtracker seeded at (1,1).
func GenerateWith(width, height int, rng *rand.Rand) ([][]bool, error) {
	if width < MinSize || height < MinSize || width > engine.MaxGridSize || height > engine.MaxGridSize {
		return nil, fmt.Errorf("%w: %dx%d (each side must be between %d and %d)", ErrInvalidSize, width, height, MinSize, engine.MaxGridSize)
	}

	grid := make([][]bool, height)
	for y := range grid {
		grid[y] = make([]bool, width)
		for x := range grid[y] {
			grid[y][x] = y%2 == 0 || x%2 == 0 || y == height-1 || x == width-1
		}
	}

	backtrack(grid, engine.Coordinate{X: 1, Y: 1}, rng)
	return grid, nil
}

var lattice = []engine.Coordinate{{X: -2, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: -2}}

func backtrack(grid [][]bool, start engine.Coordinate, rng *rand.Rand) {
	rows, cols := len(grid), len(grid[0])
	visited := make([][]bool, rows)
	for y := range visited {
		visited[y] = make([]bool, cols)
	}

	s := stack.New[engine.Coordinate]()
	s.Push(start)
	visited[start.Y][start.X] = true

	candidates := make([]engine.Coordinate, 0, 4)
	for s.Size() > 0 {
		curr := s.Pop()

		candidates = candidates[:0]
		for _, d := range lattice {
			n := engine.Coordinate{X: curr.X + d.X, Y: curr.Y + d.Y}
			// Keep a one-cell wall border.
			if n.X > 0 && n.X < cols-1 && n.Y > 0 && n.Y < rows-1 && !visited[n.Y][n.X] {
				candidates = append(candidates, n)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		next := candidates[rng.Intn(len(candidates))]
		grid[(curr.Y+next.Y)/2][(curr.X+next.X)/2] = Passage
		visited[next.Y][next.X] = true
		s.Push(curr)
		s.Push(next)
	}
}

// braid removes walls that sit between two passages in a straight line,
// which adds cycles without opening plazas.
func braid(grid [][]bool, p float64, rng *rand.Rand) {
	rows, cols := len(grid), len(grid[0])
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			if !grid[y][x] {
				continue
			}
			horizontal := x%2 == 0 && y%2 == 1 && !grid[y][x-1] && !grid[y][x+1]
			vertical := y%2 == 0 && x%2 == 1 && !grid[y-1][x] && !grid[y+1][x]
			if (horizontal || vertical) && rng.Float64() < p {
				grid[y][x] = Passage
			}
		}
	}
}

// Reachable counts the passages connected to from, from included.
func Reachable(grid [][]bool, from engine.Coordinate) int {
	dist := distances(grid, from)
	n := 0
	for _, row := range dist {
		for _, d := range row {
			if d >= 0 {
				n++
			}
		}
	}
	return n
}

// Farthest returns the passage with the longest cardinal walk from from
// and that walk's length in cells. Ties go to the first cell in row-major
// order.
func Farthest(grid [][]bool, from engine.Coordinate) (engine.Coordinate, int) {
	dist := distances(grid, from)
	best, far := from, 0
	for y, row := range dist {
		for x, d := range row {
			if d > far {
				best, far = engine.Coordinate{X: x, Y: y}, d
			}
		}
	}
	return best, far
}

var cardinal = []engine.Coordinate{{X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 1, Y: 0}}

// distances runs a breadth-first flood from from; walls and unreachable
// cells stay at -1.
func distances(grid [][]bool, from engine.Coordinate) [][]int {
	rows := len(grid)
	dist := make([][]int, rows)
	for y := range dist {
		dist[y] = make([]int, len(grid[y]))
		for x := range dist[y] {
			dist[y][x] = -1
		}
	}
	if rows == 0 || from.Y < 0 || from.Y >= rows || from.X < 0 || from.X >= len(grid[from.Y]) || grid[from.Y][from.X] {
		return dist
	}

	q := queue.New[engine.Coordinate]()
	q.Enqueue(from)
	dist[from.Y][from.X] = 0
	for !q.Empty() {
		curr := q.Dequeue()
		for _, d := range cardinal {
			n := engine.Coordinate{X: curr.X + d.X, Y: curr.Y + d.Y}
			if n.Y < 0 || n.Y >= rows || n.X < 0 || n.X >= len(grid[n.Y]) {
				continue
			}
			if grid[n.Y][n.X] || dist[n.Y][n.X] >= 0 {
				continue
			}
			dist[n.Y][n.X] = dist[curr.Y][curr.X] + 1
			q.Enqueue(n)
		}
	}
	return dist
}
