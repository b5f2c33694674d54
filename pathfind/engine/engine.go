package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/inconshreveable/log15"
	"github.com/zyedidia/generic/mapset"
)

// Option configures an Engine at construction.
type Option func(*options)

type options struct {
	from, to      Coordinate
	allowDiagonal bool
	costs         CostModel
	logger        log15.Logger
}

// WithStart sets the start cell (default (0,0)).
func WithStart(c Coordinate) Option {
	return func(o *options) { o.from = c }
}

// WithDestination sets the destination cell (default (1,1)).
func WithDestination(c Coordinate) Option {
	return func(o *options) { o.to = c }
}

// WithDiagonal enables or disables diagonal moves (default enabled).
func WithDiagonal(allow bool) Option {
	return func(o *options) { o.allowDiagonal = allow }
}

func WithCostModel(m CostModel) Option {
	return func(o *options) { o.costs = m }
}

func WithLogger(l log15.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Engine owns a grid and runs A* over it on one worker at a time.
// Every method is safe for concurrent use; reads are serialized with
// the worker and return copies.
type Engine struct {
	mu   sync.Mutex
	cond *sync.Cond

	grid     *Grid
	from, to int
	costs    CostModel
	diagonal bool

	open        *frontier
	closed      mapset.Set[int]
	closedOrder []int
	path        []int
	totalCost   int

	state   RunState
	outcome Outcome
	cancel  context.CancelFunc
	steps   int

	log log15.Logger
}

// New builds an engine over a width x height grid.
func New(width, height int, opts ...Option) (*Engine, error) {
	o := options{
		from:          Coordinate{X: 0, Y: 0},
		to:            Coordinate{X: 1, Y: 1},
		allowDiagonal: true,
		costs:         DefaultCostModel(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.costs.Validate(); err != nil {
		return nil, err
	}

	grid, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	if !grid.Contains(o.from) {
		return nil, fmt.Errorf("%w: start %s outside %dx%d grid", ErrOutOfBounds, o.from, width, height)
	}
	if !grid.Contains(o.to) {
		return nil, fmt.Errorf("%w: destination %s outside %dx%d grid", ErrOutOfBounds, o.to, width, height)
	}
	if o.from == o.to {
		return nil, fmt.Errorf("%w: both at %s", ErrInvalidEndpoint, o.from)
	}

	if o.logger == nil {
		o.logger = log15.New("module", "engine")
	}

	e := &Engine{
		grid:      grid,
		from:      grid.index(o.from),
		to:        grid.index(o.to),
		costs:     o.costs,
		diagonal:  o.allowDiagonal,
		closed:    mapset.New[int](),
		totalCost: Unknown,
		log:       o.logger,
	}
	e.cond = sync.NewCond(&e.mu)
	e.open = newFrontier(grid.nodes)
	return e, nil
}

// SetBlock marks c as blocked or walkable.
func (e *Engine) SetBlock(c Coordinate, blocked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return ErrRunActive
	}
	return e.setBlockLocked(c, blocked)
}

// ToggleBlock flips the walkability of c and returns the new blocked state.
func (e *Engine) ToggleBlock(c Coordinate) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return false, ErrRunActive
	}
	if !e.grid.Contains(c) {
		return false, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	blocked := e.grid.nodes[e.grid.index(c)].Walkable
	if err := e.setBlockLocked(c, blocked); err != nil {
		return false, err
	}
	return blocked, nil
}

func (e *Engine) setBlockLocked(c Coordinate, blocked bool) error {
	if !e.grid.Contains(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	idx := e.grid.index(c)
	if blocked && (idx == e.from || idx == e.to) {
		return fmt.Errorf("%w: %s is the start or destination", ErrInvalidBlock, c)
	}

	n := &e.grid.nodes[idx]
	if e.state == StatePaused && blocked {
		// Expanded cells may already be part of a published backpointer chain.
		if e.closed.Has(idx) {
			return fmt.Errorf("%w: %s was already expanded", ErrInvalidBlock, c)
		}
		if e.open.contains(idx) {
			e.open.remove(idx)
			n.clearSearch()
		}
	}
	n.Walkable = !blocked
	return nil
}

// SetBlocks replaces the whole wall layout; walls[y][x] true means blocked.
func (e *Engine) SetBlocks(walls [][]bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrRunActive
	}
	if err := e.checkShapeLocked(walls); err != nil {
		return err
	}
	for _, idx := range []int{e.from, e.to} {
		c := e.grid.coord(idx)
		if walls[c.Y][c.X] {
			return fmt.Errorf("%w: layout blocks endpoint %s", ErrInvalidBlock, c)
		}
	}

	e.applyWallsLocked(walls)
	return nil
}

// SetLayout replaces the wall layout and both endpoints at once and clears
// the previous search overlay.
func (e *Engine) SetLayout(walls [][]bool, from, to Coordinate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrRunActive
	}
	if err := e.checkShapeLocked(walls); err != nil {
		return err
	}
	for _, c := range []Coordinate{from, to} {
		if !e.grid.Contains(c) {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
		if walls[c.Y][c.X] {
			return fmt.Errorf("%w: layout blocks endpoint %s", ErrInvalidBlock, c)
		}
	}
	if from == to {
		return fmt.Errorf("%w: both at %s", ErrInvalidEndpoint, from)
	}

	e.applyWallsLocked(walls)
	e.from, e.to = e.grid.index(from), e.grid.index(to)
	e.resetSearchLocked()
	return nil
}

func (e *Engine) checkShapeLocked(walls [][]bool) error {
	if len(walls) != e.grid.height {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidGridShape, e.grid.height, len(walls))
	}
	for y, row := range walls {
		if len(row) != e.grid.width {
			return fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidGridShape, y, len(row), e.grid.width)
		}
	}
	return nil
}

func (e *Engine) applyWallsLocked(walls [][]bool) {
	for y, row := range walls {
		for x, wall := range row {
			e.grid.nodes[y*e.grid.width+x].Walkable = !wall
		}
	}
}

// ClearBlocks makes every cell walkable.
func (e *Engine) ClearBlocks() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrRunActive
	}
	for i := range e.grid.nodes {
		e.grid.nodes[i].Walkable = true
	}
	return nil
}

// RandomBlocks blocks amount distinct walkable cells other than the
// endpoints and returns how many were placed.
func (e *Engine) RandomBlocks(amount int, rng *rand.Rand) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return 0, ErrRunActive
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative amount %d", ErrTooManyBlocks, amount)
	}

	free := make([]int, 0, len(e.grid.nodes))
	for i, n := range e.grid.nodes {
		if n.Walkable && i != e.from && i != e.to {
			free = append(free, i)
		}
	}
	if amount > len(free) {
		return 0, fmt.Errorf("%w: requested %d, only %d available", ErrTooManyBlocks, amount, len(free))
	}

	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	for _, idx := range free[:amount] {
		e.grid.nodes[idx].Walkable = false
	}
	return amount, nil
}

// SetFrom moves the start cell.
func (e *Engine) SetFrom(c Coordinate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.endpointLocked(c, e.to)
	if err != nil {
		return err
	}
	e.from = idx
	return nil
}

// SetTo moves the destination cell.
func (e *Engine) SetTo(c Coordinate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.endpointLocked(c, e.from)
	if err != nil {
		return err
	}
	e.to = idx
	return nil
}

func (e *Engine) endpointLocked(c Coordinate, other int) (int, error) {
	if e.state != StateIdle {
		return 0, ErrRunActive
	}
	if !e.grid.Contains(c) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	idx := e.grid.index(c)
	if idx == other {
		return 0, fmt.Errorf("%w: %s", ErrInvalidEndpoint, c)
	}
	if !e.grid.nodes[idx].Walkable {
		return 0, fmt.Errorf("%w: %s is blocked", ErrInvalidBlock, c)
	}
	return idx, nil
}

// SetAllowDiagonal takes effect on the next run.
func (e *Engine) SetAllowDiagonal(allow bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrRunActive
	}
	e.diagonal = allow
	return nil
}

// Reset clears all search state, keeping walls and endpoints.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrRunActive
	}
	e.resetSearchLocked()
	return nil
}

func (e *Engine) resetSearchLocked() {
	e.grid.clearSearch()
	e.open.reset()
	e.closed.Clear()
	e.closedOrder = e.closedOrder[:0]
	e.path = nil
	e.totalCost = Unknown
	e.outcome = OutcomePending
	e.steps = 0
}

// Accessors

func (e *Engine) Width() int  { return e.grid.width }
func (e *Engine) Height() int { return e.grid.height }

func (e *Engine) CostModel() CostModel { return e.costs }

func (e *Engine) From() Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.coord(e.from)
}

func (e *Engine) To() Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.coord(e.to)
}

func (e *Engine) AllowDiagonal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.diagonal
}

// OpenList returns the frontier in the order it would be expanded.
func (e *Engine) OpenList() []Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coords(e.open.ordered())
}

// ClosedSet returns the expanded cells in expansion order.
func (e *Engine) ClosedSet() []Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coords(e.closedOrder)
}

// Path returns the last found path, destination first.
func (e *Engine) Path() []Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coords(e.path)
}

// TotalCost is the cost of the last found path, or Unknown.
func (e *Engine) TotalCost() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalCost
}

// IsRunning reports whether a run is in progress, paused or not.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StateIdle
}

func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Outcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// Steps is the number of expansions published by the current or last run.
func (e *Engine) Steps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps
}

// Node returns a copy of the node at c.
func (e *Engine) Node(c Coordinate) (SearchNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Node(c)
}

// StatusAt returns the display status of c.
func (e *Engine) StatusAt(c Coordinate) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.grid.Contains(c) {
		return StatusUnvisited, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return e.statusLocked(e.grid.index(c)), nil
}

func (e *Engine) statusLocked(idx int) Status {
	switch {
	case idx == e.from:
		return StatusStart
	case idx == e.to:
		return StatusDestination
	case !e.grid.nodes[idx].Walkable:
		return StatusBlocked
	}
	return e.grid.nodes[idx].Status
}

// Walls returns the blocked layout as walls[y][x].
func (e *Engine) Walls() [][]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Walls()
}

func (e *Engine) coords(idx []int) []Coordinate {
	out := make([]Coordinate, len(idx))
	for i, n := range idx {
		out[i] = e.grid.coord(n)
	}
	return out
}
