package engine

import "fmt"

// SearchNode is the per-cell search state.
type SearchNode struct {
	Coord    Coordinate `json:"coord"`
	FCost    int        `json:"f_cost"`
	GCost    int        `json:"g_cost"`
	HCost    int        `json:"h_cost"`
	Walkable bool       `json:"walkable"`
	Status   Status     `json:"status"`

	// previous is an arena index, -1 when unset.
	previous  int
	heapIndex int
	discovery int
	closedSeq int
}

func newSearchNode(c Coordinate) SearchNode {
	n := SearchNode{Coord: c, Walkable: true}
	n.clearSearch()
	return n
}

func (n *SearchNode) clearSearch() {
	n.FCost, n.GCost, n.HCost = Unknown, Unknown, Unknown
	n.Status = StatusUnvisited
	n.previous = -1
	n.heapIndex = -1
	n.discovery = 0
	n.closedSeq = 0
}

// Reached reports whether the search has assigned costs to the node.
func (n SearchNode) Reached() bool {
	return n.FCost != Unknown
}

// Grid is a fixed-size arena of nodes indexed by y*width+x.
type Grid struct {
	width, height int
	nodes         []SearchNode
}

// NewGrid allocates a grid with every cell walkable and unvisited.
func NewGrid(width, height int) (*Grid, error) {
	if width < 1 || height < 1 || width > MaxGridSize || height > MaxGridSize {
		return nil, fmt.Errorf("%w: %dx%d (each side must be between 1 and %d)", ErrInvalidGridShape, width, height, MaxGridSize)
	}

	g := &Grid{
		width:  width,
		height: height,
		nodes:  make([]SearchNode, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.nodes[y*width+x] = newSearchNode(Coordinate{X: x, Y: y})
		}
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Contains reports whether c lies inside the grid.
func (g *Grid) Contains(c Coordinate) bool {
	return c.Within(g.width, g.height)
}

func (g *Grid) index(c Coordinate) int {
	return c.Y*g.width + c.X
}

func (g *Grid) coord(i int) Coordinate {
	return g.nodes[i].Coord
}

// Node returns a copy of the node at c.
func (g *Grid) Node(c Coordinate) (SearchNode, error) {
	if !g.Contains(c) {
		return SearchNode{}, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return g.nodes[g.index(c)], nil
}

// Walls returns the blocked layout as walls[y][x].
func (g *Grid) Walls() [][]bool {
	walls := make([][]bool, g.height)
	for y := range walls {
		walls[y] = make([]bool, g.width)
		for x := range walls[y] {
			walls[y][x] = !g.nodes[y*g.width+x].Walkable
		}
	}
	return walls
}

func (g *Grid) clearSearch() {
	for i := range g.nodes {
		g.nodes[i].clearSearch()
	}
}

// neighbours appends the in-bounds neighbours of node i to buf.
func (g *Grid) neighbours(i int, diagonal bool, buf []int) []int {
	c := g.coord(i)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !diagonal && dx != 0 && dy != 0 {
				continue
			}
			n := Coordinate{X: c.X + dx, Y: c.Y + dy}
			if g.Contains(n) {
				buf = append(buf, g.index(n))
			}
		}
	}
	return buf
}
