package engine

import (
	"context"
	"fmt"
	"time"
)

// RunOptions controls one CalcPath invocation.
type RunOptions struct {
	// StepDelay paces the worker after each expansion.
	StepDelay time.Duration
	Sink      EventSink
}

// CalcPath runs A* from the start to the destination on the calling
// goroutine. The outcome is also kept on the engine, so callers that
// launch it in the background can read it through the accessors.
//
// The returned error is non-nil only when another run is active or an
// internal invariant broke (ErrInvariantViolation).
func (e *Engine) CalcPath(ctx context.Context, opts RunOptions) (Result, error) {
	runCtx, cancel, err := e.begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer cancel()
	return e.search(runCtx, opts)
}

// Start moves the engine to StateRunning and searches on a new goroutine.
// The channel receives the result once and is then closed. Unlike a
// goroutine around CalcPath, Pause and Stop are valid as soon as Start
// returns.
func (e *Engine) Start(ctx context.Context, opts RunOptions) (<-chan Result, error) {
	runCtx, cancel, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan Result, 1)
	go func() {
		defer close(done)
		defer cancel()
		res, _ := e.search(runCtx, opts)
		done <- res
	}()
	return done, nil
}

// begin claims the engine for a new run and seeds the frontier.
func (e *Engine) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, nil, ErrRunActive
	}
	e.resetSearchLocked()
	e.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	start := &e.grid.nodes[e.from]
	start.GCost, start.HCost, start.FCost = 0, 0, 0
	start.Status = StatusOpen
	e.open.push(e.from)
	e.log.Debug("search started", "from", e.grid.coord(e.from), "to", e.grid.coord(e.to), "diagonal", e.diagonal)
	return runCtx, cancel, nil
}

func (e *Engine) search(runCtx context.Context, opts RunOptions) (Result, error) {
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}

	wake := context.AfterFunc(runCtx, func() {
		e.mu.Lock()
		e.cond.Broadcast()
		e.mu.Unlock()
	})
	defer wake()

	began := time.Now()
	neighbours := make([]int, 0, 8)
	var runErr error

	e.mu.Lock()
	diagonal := e.diagonal
	for {
		if runCtx.Err() != nil {
			e.outcome = OutcomeStopped
			break
		}
		if e.open.Len() == 0 {
			e.outcome = OutcomeNoPath
			break
		}

		current := e.open.pop()
		if current < 0 {
			runErr = fmt.Errorf("%w: frontier reported %d nodes but yielded none", ErrInvariantViolation, e.open.Len())
			e.outcome = OutcomeAborted
			break
		}
		if !e.grid.nodes[current].Walkable {
			continue
		}

		e.closeLocked(current)

		if current == e.to {
			if err := e.backtraceLocked(); err != nil {
				runErr = err
				e.outcome = OutcomeAborted
				break
			}
			e.totalCost = e.grid.nodes[current].FCost
			e.outcome = OutcomeFound
			break
		}

		neighbours = e.expandLocked(current, diagonal, neighbours[:0])
		e.steps++
		ev := StepEvent{
			Step:    e.steps,
			Current: e.grid.coord(current),
			FCost:   e.grid.nodes[current].FCost,
			Open:    e.open.Len(),
			Closed:  len(e.closedOrder),
		}
		e.mu.Unlock()

		sink.OnStep(ev)
		if opts.StepDelay > 0 {
			sleep(runCtx, opts.StepDelay)
		}

		e.mu.Lock()
		for e.state == StatePaused && runCtx.Err() == nil {
			e.cond.Wait()
		}
	}

	res := Result{
		Outcome:   e.outcome,
		TotalCost: e.totalCost,
		Path:      e.coords(e.path),
		Steps:     e.steps,
		Expanded:  len(e.closedOrder),
		Elapsed:   time.Since(began),
		Err:       runErr,
	}
	e.state = StateIdle
	e.cancel = nil
	e.mu.Unlock()

	if runErr != nil {
		e.log.Error("search aborted", "err", runErr, "steps", res.Steps)
	} else {
		e.log.Debug("search finished", "outcome", res.Outcome, "cost", res.TotalCost, "steps", res.Steps, "elapsed", res.Elapsed)
	}
	sink.OnFinish(res)
	return res, runErr
}

func (e *Engine) closeLocked(idx int) {
	e.closed.Put(idx)
	e.closedOrder = append(e.closedOrder, idx)
	n := &e.grid.nodes[idx]
	n.closedSeq = len(e.closedOrder)
	n.Status = StatusClosed
}

// expandLocked relaxes the neighbours of current.
func (e *Engine) expandLocked(current int, diagonal bool, buf []int) []int {
	cur := &e.grid.nodes[current]
	dest := e.grid.coord(e.to)

	buf = e.grid.neighbours(current, diagonal, buf)
	for _, idx := range buf {
		n := &e.grid.nodes[idx]
		if !n.Walkable || e.closed.Has(idx) {
			continue
		}

		g := cur.GCost + e.costs.StepCost(cur.Coord, n.Coord)
		inOpen := e.open.contains(idx)
		if inOpen && g >= n.GCost {
			continue
		}

		n.previous = current
		n.GCost = g
		n.HCost = e.costs.Estimate(n.Coord, dest)
		n.FCost = n.GCost + n.HCost
		n.Status = StatusOpen
		if inOpen {
			e.open.update(idx)
		} else {
			e.open.push(idx)
		}
	}
	return buf
}

// backtraceLocked rebuilds the path from the destination, checking that
// every backpointer leads to a node closed strictly earlier.
func (e *Engine) backtraceLocked() error {
	path := make([]int, 0, 16)
	idx := e.to
	for {
		path = append(path, idx)
		if idx == e.from {
			break
		}
		n := &e.grid.nodes[idx]
		prev := n.previous
		if prev < 0 {
			return fmt.Errorf("%w: %s has no predecessor", ErrInvariantViolation, n.Coord)
		}
		p := &e.grid.nodes[prev]
		if p.closedSeq == 0 || p.closedSeq >= n.closedSeq {
			return fmt.Errorf("%w: predecessor %s of %s was not expanded earlier", ErrInvariantViolation, p.Coord, n.Coord)
		}
		if len(path) > len(e.grid.nodes) {
			return fmt.Errorf("%w: backtrace longer than the grid", ErrInvariantViolation)
		}
		idx = prev
	}

	for _, i := range path {
		e.grid.nodes[i].Status = StatusPath
	}
	e.path = path
	return nil
}

// Pause suspends the worker after its current step.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle:
		return ErrNotRunning
	case StatePaused:
		return ErrAlreadyPaused
	}
	e.state = StatePaused
	return nil
}

// Resume releases a paused worker.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return ErrNotPaused
	}
	e.state = StateRunning
	e.cond.Broadcast()
	return nil
}

// Stop cancels the active run; the worker ends it with OutcomeStopped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.cancel == nil {
		return ErrNotRunning
	}
	e.cancel()
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
