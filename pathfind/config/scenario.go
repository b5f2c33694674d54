package config

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/wricardo/astar-playground/pathfind/engine"
	"github.com/wricardo/astar-playground/pathfind/maze"
)

// Layout legend
const (
	CellOpen        = '.'
	CellWall        = '#'
	CellStart       = 'S'
	CellDestination = 'F'
)

// MaxStepDelayMS caps the per-expansion delay a scenario may ask for.
const MaxStepDelayMS = 10000

// Scenario is a preset grid: dimensions, endpoints, costs and an optional
// wall source (explicit layout, generated maze, or random blocks).
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`

	Start         *engine.Coordinate `json:"start,omitempty" yaml:"start,omitempty"`
	Destination   *engine.Coordinate `json:"destination,omitempty" yaml:"destination,omitempty"`
	AllowDiagonal *bool              `json:"allow_diagonal,omitempty" yaml:"allow_diagonal,omitempty"`

	// Heuristic overrides Costs.Heuristic when set.
	Heuristic   engine.Heuristic  `json:"heuristic,omitempty" yaml:"heuristic,omitempty"`
	Costs       *engine.CostModel `json:"costs,omitempty" yaml:"costs,omitempty"`
	StepDelayMS int               `json:"step_delay_ms,omitempty" yaml:"step_delay_ms,omitempty"`

	Layout       []string    `json:"layout,omitempty" yaml:"layout,omitempty"`
	Maze         *MazeSpec   `json:"maze,omitempty" yaml:"maze,omitempty"`
	RandomBlocks *RandomSpec `json:"random_blocks,omitempty" yaml:"random_blocks,omitempty"`
}

// MazeSpec asks for a generated maze. The start moves to (1,1) and the
// destination to the open cell farthest from it.
type MazeSpec struct {
	Seed  int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Braid float64 `json:"braid,omitempty" yaml:"braid,omitempty"`
}

// RandomSpec scatters Amount walls after any layout or maze is applied.
type RandomSpec struct {
	Amount int   `json:"amount" yaml:"amount"`
	Seed   int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Default returns the built-in scenario: an empty 30x30 grid from (0,0)
// to (1,1) with diagonal moves.
func Default() *Scenario {
	allow := true
	return &Scenario{
		Name:          "default",
		Description:   "Empty 30x30 grid",
		Width:         engine.DefaultGridSize,
		Height:        engine.DefaultGridSize,
		Start:         &engine.Coordinate{X: 0, Y: 0},
		Destination:   &engine.Coordinate{X: 1, Y: 1},
		AllowDiagonal: &allow,
	}
}

// Diagonal reports whether diagonal moves are enabled, defaulting to true.
func (s *Scenario) Diagonal() bool {
	return s.AllowDiagonal == nil || *s.AllowDiagonal
}

// CostModel resolves the scenario's costs against the defaults.
func (s *Scenario) CostModel() engine.CostModel {
	m := engine.DefaultCostModel()
	if s.Costs != nil {
		m = *s.Costs
	}
	if s.Heuristic != "" {
		m.Heuristic = s.Heuristic
	}
	return m
}

func (s *Scenario) StepDelay() time.Duration {
	return time.Duration(s.StepDelayMS) * time.Millisecond
}

// Endpoints returns the start and destination, taking S and F cells of the
// layout over the explicit fields.
func (s *Scenario) Endpoints() (from, to engine.Coordinate) {
	from, to = engine.Coordinate{X: 0, Y: 0}, engine.Coordinate{X: 1, Y: 1}
	if s.Start != nil {
		from = *s.Start
	}
	if s.Destination != nil {
		to = *s.Destination
	}
	for y, row := range s.Layout {
		for x, ch := range row {
			switch ch {
			case CellStart:
				from = engine.Coordinate{X: x, Y: y}
			case CellDestination:
				to = engine.Coordinate{X: x, Y: y}
			}
		}
	}
	return from, to
}

// Walls decodes the layout into walls[y][x]; nil when there is no layout.
func (s *Scenario) Walls() [][]bool {
	if len(s.Layout) == 0 {
		return nil
	}
	walls := make([][]bool, len(s.Layout))
	for y, row := range s.Layout {
		walls[y] = make([]bool, len(row))
		for x, ch := range row {
			walls[y][x] = ch == CellWall
		}
	}
	return walls
}

// Validate checks a scenario for structural correctness.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if s.Width < 1 || s.Width > engine.MaxGridSize {
		return fmt.Errorf("config validation: width must be between 1 and %d, got %d", engine.MaxGridSize, s.Width)
	}
	if s.Height < 1 || s.Height > engine.MaxGridSize {
		return fmt.Errorf("config validation: height must be between 1 and %d, got %d", engine.MaxGridSize, s.Height)
	}
	if err := s.CostModel().Validate(); err != nil {
		return fmt.Errorf("config validation: %v", err)
	}
	if s.StepDelayMS < 0 || s.StepDelayMS > MaxStepDelayMS {
		return fmt.Errorf("config validation: step_delay_ms must be between 0 and %d, got %d", MaxStepDelayMS, s.StepDelayMS)
	}

	if s.Maze != nil {
		if len(s.Layout) > 0 {
			return fmt.Errorf("config validation: layout and maze are mutually exclusive")
		}
		if s.Width < maze.MinSize || s.Height < maze.MinSize {
			return fmt.Errorf("config validation: maze needs at least %dx%d, got %dx%d", maze.MinSize, maze.MinSize, s.Width, s.Height)
		}
		if s.Maze.Braid < 0 || s.Maze.Braid > 1 {
			return fmt.Errorf("config validation: maze.braid must be between 0 and 1, got %g", s.Maze.Braid)
		}
	}

	if len(s.Layout) > 0 {
		if err := validateLayout(s); err != nil {
			return err
		}
	}

	from, to := s.Endpoints()
	if s.Maze != nil {
		from = engine.Coordinate{X: 1, Y: 1}
	}
	if !from.Within(s.Width, s.Height) {
		return fmt.Errorf("config validation: start %s is outside the %dx%d grid", from, s.Width, s.Height)
	}
	if s.Maze == nil {
		if !to.Within(s.Width, s.Height) {
			return fmt.Errorf("config validation: destination %s is outside the %dx%d grid", to, s.Width, s.Height)
		}
		if from == to {
			return fmt.Errorf("config validation: start and destination are both %s", from)
		}
	}

	if walls := s.Walls(); walls != nil {
		if walls[from.Y][from.X] {
			return fmt.Errorf("config validation: start %s is a wall", from)
		}
		if walls[to.Y][to.X] {
			return fmt.Errorf("config validation: destination %s is a wall", to)
		}
	}

	if s.RandomBlocks != nil && s.RandomBlocks.Amount < 0 {
		return fmt.Errorf("config validation: random_blocks.amount must not be negative, got %d", s.RandomBlocks.Amount)
	}
	return nil
}

func validateLayout(s *Scenario) error {
	if len(s.Layout) != s.Height {
		return fmt.Errorf("config validation: layout must have %d rows to match height, got %d", s.Height, len(s.Layout))
	}

	starts, dests := 0, 0
	for i, row := range s.Layout {
		if len(row) != s.Width {
			return fmt.Errorf("config validation: row %d must have %d characters to match width, got %d", i+1, s.Width, len(row))
		}
		for j, ch := range row {
			switch ch {
			case CellOpen, CellWall:
			case CellStart:
				starts++
			case CellDestination:
				dests++
			default:
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", ch, i+1, j+1)
			}
		}
	}
	if starts > 1 {
		return fmt.Errorf("config validation: layout has %d start (S) cells, at most one allowed", starts)
	}
	if dests > 1 {
		return fmt.Errorf("config validation: layout has %d destination (F) cells, at most one allowed", dests)
	}
	return nil
}

// Build validates s and returns an idle engine seeded with its walls and
// endpoints. opts are applied after the scenario's own options.
func Build(s *Scenario, opts ...engine.Option) (*engine.Engine, error) {
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	from, to := s.Endpoints()
	walls := s.Walls()
	if s.Maze != nil {
		grid, err := maze.Generate(maze.Config{Width: s.Width, Height: s.Height, Seed: s.Maze.Seed, Braid: s.Maze.Braid})
		if err != nil {
			return nil, err
		}
		walls = grid
		from = engine.Coordinate{X: 1, Y: 1}
		to, _ = maze.Farthest(grid, from)
		if to == from {
			return nil, fmt.Errorf("%w: %dx%d maze has a single open cell", ErrInvalidConfig, s.Width, s.Height)
		}
	}

	base := []engine.Option{
		engine.WithStart(from),
		engine.WithDestination(to),
		engine.WithDiagonal(s.Diagonal()),
		engine.WithCostModel(s.CostModel()),
	}
	eng, err := engine.New(s.Width, s.Height, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	if walls != nil {
		if err := eng.SetBlocks(walls); err != nil {
			return nil, err
		}
	}
	if rb := s.RandomBlocks; rb != nil && rb.Amount > 0 {
		seed := rb.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		if _, err := eng.RandomBlocks(rb.Amount, rand.New(rand.NewSource(seed))); err != nil {
			return nil, err
		}
	}
	return eng, nil
}
