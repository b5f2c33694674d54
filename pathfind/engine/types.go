package engine

import (
	"fmt"
	"math"
)

const (
	// Unknown marks a cost that has not been computed yet.
	Unknown = math.MaxInt

	DefaultCardinalCost = 10
	DefaultDiagonalCost = 14

	// Defaults of the original interactive grid.
	DefaultGridSize = 30
	MaxGridSize     = 200
)

// Status is the display state of a cell.
type Status uint8

const (
	StatusUnvisited Status = iota
	StatusOpen
	StatusClosed
	StatusPath
	StatusStart
	StatusDestination
	StatusBlocked
)

var statusNames = map[Status]string{
	StatusUnvisited:   "unvisited",
	StatusOpen:        "open",
	StatusClosed:      "closed",
	StatusPath:        "path",
	StatusStart:       "start",
	StatusDestination: "destination",
	StatusBlocked:     "blocked",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RunState tracks the worker lifecycle.
type RunState uint8

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the terminal result of the most recent run.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeFound
	OutcomeNoPath
	OutcomeStopped
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeFound:
		return "found"
	case OutcomeNoPath:
		return "no_path"
	case OutcomeStopped:
		return "stopped"
	case OutcomeAborted:
		return "aborted"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Heuristic names the h-cost estimate used by the search.
type Heuristic string

const (
	// Euclidean scales the straight-line distance by the cardinal cost and
	// truncates it. With 10/14 costs it can exceed the real cost on long
	// diagonals, so only Octile guarantees optimal paths.
	Euclidean Heuristic = "euclidean"
	// Octile is the exact move cost on an empty 8-connected grid.
	Octile Heuristic = "octile"
)

// CostModel holds the step costs and heuristic of one engine.
type CostModel struct {
	Cardinal  int       `json:"cardinal" yaml:"cardinal"`
	Diagonal  int       `json:"diagonal" yaml:"diagonal"`
	Heuristic Heuristic `json:"heuristic" yaml:"heuristic"`
}

// DefaultCostModel returns the 10/14 model with the euclidean heuristic.
func DefaultCostModel() CostModel {
	return CostModel{
		Cardinal:  DefaultCardinalCost,
		Diagonal:  DefaultDiagonalCost,
		Heuristic: Euclidean,
	}
}

// Validate checks that the costs are usable.
func (m CostModel) Validate() error {
	if m.Cardinal <= 0 {
		return fmt.Errorf("%w: cardinal cost must be positive, got %d", ErrInvalidCostModel, m.Cardinal)
	}
	if m.Diagonal < m.Cardinal {
		return fmt.Errorf("%w: diagonal cost %d is below cardinal cost %d", ErrInvalidCostModel, m.Diagonal, m.Cardinal)
	}
	switch m.Heuristic {
	case Euclidean, Octile:
	default:
		return fmt.Errorf("%w: unknown heuristic %q", ErrInvalidCostModel, m.Heuristic)
	}
	return nil
}

// StepCost is the cost of moving between two adjacent cells.
func (m CostModel) StepCost(a, b Coordinate) int {
	if a.IsDiagonalTo(b) {
		return m.Diagonal
	}
	return m.Cardinal
}

// Estimate is the h-cost from c to the destination.
func (m CostModel) Estimate(c, dest Coordinate) int {
	if m.Heuristic == Octile {
		dx, dy := abs(c.X-dest.X), abs(c.Y-dest.Y)
		lo, hi := dx, dy
		if lo > hi {
			lo, hi = hi, lo
		}
		return m.Cardinal*(hi-lo) + m.Diagonal*lo
	}
	return int(c.Distance(dest) * float64(m.Cardinal))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
