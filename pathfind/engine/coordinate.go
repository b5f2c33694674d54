package engine

import (
	"fmt"
	"math"
)

// Coordinate is a cell position; X is the column and Y the row.
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Distance returns the Euclidean distance to o.
func (c Coordinate) Distance(o Coordinate) float64 {
	return math.Hypot(float64(c.X-o.X), float64(c.Y-o.Y))
}

// InRange reports whether both components lie in [lo, hi).
func (c Coordinate) InRange(lo, hi int) bool {
	return c.X >= lo && c.X < hi && c.Y >= lo && c.Y < hi
}

// Within reports whether c addresses a cell of a width x height grid.
func (c Coordinate) Within(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// IsDiagonalTo reports whether o is one diagonal step away.
func (c Coordinate) IsDiagonalTo(o Coordinate) bool {
	return abs(c.X-o.X) == 1 && abs(c.Y-o.Y) == 1
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
