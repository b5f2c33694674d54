package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Render returns the fixed-format ASCII dump of the grid.
func (e *Engine) Render() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderLocked()
}

func (e *Engine) String() string {
	return e.Render()
}

func (e *Engine) renderLocked() string {
	var sb strings.Builder
	w, h := e.grid.width, e.grid.height
	rule := strings.Repeat("-", 3*w+5)

	for x := 0; x < w; x++ {
		switch {
		case x == 0:
			sb.WriteString("      00 ")
		case x > 9:
			fmt.Fprintf(&sb, "%d ", x)
		default:
			fmt.Fprintf(&sb, "0%d ", x)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(rule)
	sb.WriteString("\n")

	for y := 0; y < h; y++ {
		label := strconv.Itoa(y)
		if y < 10 {
			label = "0" + label
		}
		fmt.Fprintf(&sb, " %s |", label)
		for x := 0; x < w; x++ {
			sb.WriteString(" ")
			sb.WriteString(e.cellCodeLocked(y*w + x))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(rule)
	return sb.String()
}

// cellCodeLocked is the two-character status of a cell in the dump.
func (e *Engine) cellCodeLocked(idx int) string {
	switch st := e.statusLocked(idx); st {
	case StatusStart:
		return "ST"
	case StatusDestination:
		return "FI"
	case StatusBlocked:
		return "||"
	case StatusPath:
		return "~~"
	case StatusOpen, StatusClosed:
		return strconv.Itoa(e.grid.nodes[idx].FCost)
	}
	return "  "
}

// CellView is the serializable state of one cell.
type CellView struct {
	X        int         `json:"x"`
	Y        int         `json:"y"`
	Status   Status      `json:"status"`
	FCost    *int        `json:"f_cost,omitempty"`
	GCost    *int        `json:"g_cost,omitempty"`
	HCost    *int        `json:"h_cost,omitempty"`
	Previous *Coordinate `json:"previous,omitempty"`
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Width         int          `json:"width"`
	Height        int          `json:"height"`
	From          Coordinate   `json:"from"`
	To            Coordinate   `json:"to"`
	AllowDiagonal bool         `json:"allow_diagonal"`
	Costs         CostModel    `json:"costs"`
	State         RunState     `json:"state"`
	Outcome       Outcome      `json:"outcome"`
	Steps         int          `json:"steps"`
	TotalCost     *int         `json:"total_cost,omitempty"`
	Open          []Coordinate `json:"open"`
	Closed        []Coordinate `json:"closed"`
	Path          []Coordinate `json:"path"`
	Walls         []Coordinate `json:"walls"`
	Cells         []CellView   `json:"cells,omitempty"`
}

// Snapshot copies the engine state under one lock hold. Per-cell detail
// is included only for reached cells when withCells is set.
func (e *Engine) Snapshot(withCells bool) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Width:         e.grid.width,
		Height:        e.grid.height,
		From:          e.grid.coord(e.from),
		To:            e.grid.coord(e.to),
		AllowDiagonal: e.diagonal,
		Costs:         e.costs,
		State:         e.state,
		Outcome:       e.outcome,
		Steps:         e.steps,
		Open:          e.coords(e.open.ordered()),
		Closed:        e.coords(e.closedOrder),
		Path:          e.coords(e.path),
		Walls:         []Coordinate{},
	}
	if e.totalCost != Unknown {
		cost := e.totalCost
		s.TotalCost = &cost
	}

	for i := range e.grid.nodes {
		n := &e.grid.nodes[i]
		if !n.Walkable {
			s.Walls = append(s.Walls, n.Coord)
		}
		if !withCells || !n.Reached() {
			continue
		}
		f, g, h := n.FCost, n.GCost, n.HCost
		cv := CellView{X: n.Coord.X, Y: n.Coord.Y, Status: e.statusLocked(i), FCost: &f, GCost: &g, HCost: &h}
		if n.previous >= 0 {
			p := e.grid.coord(n.previous)
			cv.Previous = &p
		}
		s.Cells = append(s.Cells, cv)
	}
	return s
}
