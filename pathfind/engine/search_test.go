package engine

import (
	"container/list"
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcPathOpenGrid(t *testing.T) {
	tests := []struct {
		name     string
		diagonal bool
		wantCost int
		wantLen  int
	}{
		{"diagonal", true, 56, 5},
		{"cardinal only", false, 80, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 5, 5, WithDestination(c(4, 4)), WithDiagonal(tt.diagonal))

			res, err := e.CalcPath(context.Background(), RunOptions{})
			require.NoError(t, err)
			assert.Equal(t, OutcomeFound, res.Outcome)
			assert.True(t, res.Found())
			assert.Equal(t, tt.wantCost, res.TotalCost)
			assert.Equal(t, tt.wantCost, e.TotalCost())
			require.Len(t, res.Path, tt.wantLen)
			assert.Equal(t, c(4, 4), res.Path[0])
			assert.Equal(t, c(0, 0), res.Path[len(res.Path)-1])
			assertContiguous(t, res.Path, tt.diagonal)
			assert.Equal(t, StateIdle, e.State())
		})
	}
}

func TestCalcPathAroundWalls(t *testing.T) {
	tests := []struct {
		name     string
		diagonal bool
		wantCost int
		wantPath []Coordinate
	}{
		{
			name:     "diagonal",
			diagonal: true,
			wantCost: 48,
			wantPath: []Coordinate{c(0, 2), c(1, 2), c(2, 1), c(1, 0), c(0, 0)},
		},
		{
			name:     "cardinal only",
			diagonal: false,
			wantCost: 60,
			wantPath: []Coordinate{c(0, 2), c(1, 2), c(2, 2), c(2, 1), c(2, 0), c(1, 0), c(0, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 3, 3, WithDestination(c(0, 2)), WithDiagonal(tt.diagonal))
			require.NoError(t, e.SetBlock(c(0, 1), true))
			require.NoError(t, e.SetBlock(c(1, 1), true))

			res, err := e.CalcPath(context.Background(), RunOptions{})
			require.NoError(t, err)
			require.Equal(t, OutcomeFound, res.Outcome)
			assert.Equal(t, tt.wantCost, res.TotalCost)
			assert.Equal(t, tt.wantPath, res.Path)
			assert.Equal(t, tt.wantPath, e.Path())

			for _, p := range res.Path[1 : len(res.Path)-1] {
				st, err := e.StatusAt(p)
				require.NoError(t, err)
				assert.Equal(t, StatusPath, st, "cell %s", p)
			}
		})
	}
}

func TestCalcPathExpansionOrder(t *testing.T) {
	e := newTestEngine(t, 5, 3, WithStart(c(0, 1)), WithDestination(c(4, 1)))
	require.NoError(t, e.SetBlock(c(2, 0), true))
	require.NoError(t, e.SetBlock(c(2, 1), true))

	res, err := e.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 48, res.TotalCost)
	assert.Equal(t, 6, res.Steps)
	assert.Equal(t, 7, res.Expanded)
	assert.Equal(t, []Coordinate{c(4, 1), c(3, 1), c(2, 2), c(1, 1), c(0, 1)}, res.Path)
	assert.Equal(t, []Coordinate{c(0, 1), c(1, 1), c(1, 0), c(1, 2), c(2, 2), c(3, 1), c(4, 1)}, e.ClosedSet())

	n, err := e.Node(c(3, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, n.Status)
	assert.Equal(t, 48, n.FCost)
	assert.Equal(t, n.GCost+n.HCost, n.FCost)
}

func TestCalcPathNoPath(t *testing.T) {
	e := newTestEngine(t, 5, 5, WithDestination(c(4, 4)))
	for y := 0; y < 5; y++ {
		require.NoError(t, e.SetBlock(c(2, y), true))
	}

	res, err := e.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPath, res.Outcome)
	assert.False(t, res.Found())
	assert.Equal(t, Unknown, res.TotalCost)
	assert.Empty(t, res.Path)
	assert.Empty(t, e.OpenList())
	assert.Len(t, e.ClosedSet(), 10)
	for _, p := range e.ClosedSet() {
		assert.Less(t, p.X, 2)
	}
}

func TestCalcPathAdjacentEndpoints(t *testing.T) {
	e := newTestEngine(t, 2, 1, WithDestination(c(1, 0)))

	res, err := e.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalCost)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, []Coordinate{c(1, 0), c(0, 0)}, res.Path)
}

func TestCalcPathRerun(t *testing.T) {
	e := newTestEngine(t, 6, 6, WithDestination(c(5, 5)))

	first, err := e.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)

	second, err := e.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.TotalCost, second.TotalCost)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, first.Steps, second.Steps)
}

func TestCalcPathMatchesDijkstra(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	costs := DefaultCostModel()
	costs.Heuristic = Octile

	for i := 0; i < 150; i++ {
		w, h := 4+rng.Intn(12), 4+rng.Intn(12)
		diagonal := rng.Intn(2) == 0
		from := c(rng.Intn(w), rng.Intn(h))
		to := c(rng.Intn(w), rng.Intn(h))
		if from == to {
			continue
		}

		e := newTestEngine(t, w, h, WithStart(from), WithDestination(to), WithDiagonal(diagonal), WithCostModel(costs))
		_, err := e.RandomBlocks((w*h-2)*3/10, rng)
		require.NoError(t, err)

		walls := e.Walls()
		want := dijkstra(walls, from, to, diagonal, costs)

		res, err := e.CalcPath(context.Background(), RunOptions{})
		require.NoError(t, err)
		if want == Unknown {
			assert.Equal(t, OutcomeNoPath, res.Outcome, "case %d: %dx%d %s->%s", i, w, h, from, to)
			continue
		}
		require.Equal(t, OutcomeFound, res.Outcome, "case %d: %dx%d %s->%s", i, w, h, from, to)
		assert.Equal(t, want, res.TotalCost, "case %d: %dx%d %s->%s", i, w, h, from, to)
		assertContiguous(t, res.Path, diagonal)
		for _, p := range res.Path {
			assert.False(t, walls[p.Y][p.X], "path crosses wall at %s", p)
		}
	}
}

func TestCalcPathEuclideanSmallGrids(t *testing.T) {
	costs := DefaultCostModel()
	for w := 2; w <= 6; w++ {
		for h := 2; h <= 6; h++ {
			for _, diagonal := range []bool{true, false} {
				to := c(w-1, h-1)
				e := newTestEngine(t, w, h, WithDestination(to), WithDiagonal(diagonal))
				res, err := e.CalcPath(context.Background(), RunOptions{})
				require.NoError(t, err)
				assert.Equal(t, dijkstra(e.Walls(), c(0, 0), to, diagonal, costs), res.TotalCost, "%dx%d diagonal=%v", w, h, diagonal)
			}
		}
	}
}

func TestCalcPathEvents(t *testing.T) {
	e := newTestEngine(t, 5, 3, WithStart(c(0, 1)), WithDestination(c(4, 1)), WithDiagonal(false))

	var (
		steps    []StepEvent
		finished []Result
	)
	sink := SinkFuncs{
		Step:   func(ev StepEvent) { steps = append(steps, ev) },
		Finish: func(r Result) { finished = append(finished, r) },
	}

	res, err := e.CalcPath(context.Background(), RunOptions{Sink: sink})
	require.NoError(t, err)
	assert.Equal(t, 40, res.TotalCost)
	require.Len(t, steps, 4)
	for i, ev := range steps {
		assert.Equal(t, i+1, ev.Step)
		assert.Equal(t, i+1, ev.Closed)
	}
	assert.Equal(t, c(0, 1), steps[0].Current)
	require.Len(t, finished, 1)
	assert.Equal(t, res.Outcome, finished[0].Outcome)
	assert.Equal(t, res.Path, finished[0].Path)
}

func TestChannelSink(t *testing.T) {
	e := newTestEngine(t, 8, 8, WithDestination(c(7, 7)))
	sink := NewChannelSink(0)

	var (
		res Result
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, _ = e.CalcPath(context.Background(), RunOptions{Sink: sink})
	}()

	var got []Event
	for ev := range sink.Events() {
		got = append(got, ev)
	}
	wg.Wait()

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, EventFinish, last.Type)
	assert.Equal(t, OutcomeFound, last.Result.Outcome)
	assert.Equal(t, res.TotalCost, last.Result.TotalCost)
	for i, ev := range got[:len(got)-1] {
		assert.Equal(t, EventStep, ev.Type)
		assert.Equal(t, i+1, ev.Step.Step)
	}
}

func TestMultiSink(t *testing.T) {
	var a, b int
	sink := MultiSink(
		SinkFuncs{Step: func(StepEvent) { a++ }},
		nil,
		SinkFuncs{Step: func(StepEvent) { b++ }, Finish: func(Result) { b += 100 }},
	)
	sink.OnStep(StepEvent{})
	sink.OnStep(StepEvent{})
	sink.OnFinish(Result{})
	assert.Equal(t, 2, a)
	assert.Equal(t, 102, b)
}

func TestPauseResume(t *testing.T) {
	const pauseAt = 3

	baseline := newTestEngine(t, 6, 6, WithDestination(c(5, 5)))
	want, err := baseline.CalcPath(context.Background(), RunOptions{})
	require.NoError(t, err)

	e := newTestEngine(t, 6, 6, WithDestination(c(5, 5)))
	paused := make(chan struct{})
	sink := SinkFuncs{Step: func(ev StepEvent) {
		if ev.Step == pauseAt {
			assert.NoError(t, e.Pause())
			close(paused)
		}
	}}

	done := make(chan Result, 1)
	go func() {
		res, _ := e.CalcPath(context.Background(), RunOptions{Sink: sink})
		done <- res
	}()

	<-paused
	assert.Equal(t, StatePaused, e.State())
	assert.True(t, e.IsRunning())
	assert.ErrorIs(t, e.Pause(), ErrAlreadyPaused)
	assert.ErrorIs(t, e.SetFrom(c(2, 2)), ErrRunActive)

	// The worker must not advance while paused.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, pauseAt, e.Steps())
	assert.Len(t, e.ClosedSet(), pauseAt)

	require.NoError(t, e.Resume())
	select {
	case res := <-done:
		assert.Equal(t, OutcomeFound, res.Outcome)
		assert.Equal(t, want.TotalCost, res.TotalCost)
		assert.Equal(t, want.Path, res.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after resume")
	}
	assert.Equal(t, StateIdle, e.State())
}

func TestSetBlockWhilePaused(t *testing.T) {
	e := newTestEngine(t, 6, 6, WithDestination(c(5, 5)))
	paused := make(chan struct{})
	sink := SinkFuncs{Step: func(ev StepEvent) {
		if ev.Step == 2 {
			assert.NoError(t, e.Pause())
			close(paused)
		}
	}}

	done := make(chan Result, 1)
	go func() {
		res, _ := e.CalcPath(context.Background(), RunOptions{Sink: sink})
		done <- res
	}()
	<-paused

	closed := e.ClosedSet()
	require.Len(t, closed, 2)
	assert.ErrorIs(t, e.SetBlock(closed[1], true), ErrInvalidBlock)

	open := e.OpenList()
	require.NotEmpty(t, open)
	victim := open[0]
	require.NoError(t, e.SetBlock(victim, true))
	assert.NotContains(t, e.OpenList(), victim)
	st, err := e.StatusAt(victim)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, st)

	require.NoError(t, e.Resume())
	var res Result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after resume")
	}

	require.Equal(t, OutcomeFound, res.Outcome)
	assert.NotContains(t, res.Path, victim)
	assert.NotContains(t, e.ClosedSet(), victim)

	costs := DefaultCostModel()
	assert.GreaterOrEqual(t, res.TotalCost, dijkstra(e.Walls(), c(0, 0), c(5, 5), true, costs))
}

func TestStop(t *testing.T) {
	t.Run("while running", func(t *testing.T) {
		e := newTestEngine(t, 20, 20, WithDestination(c(19, 19)))
		started := make(chan struct{})
		var once sync.Once
		sink := SinkFuncs{Step: func(StepEvent) { once.Do(func() { close(started) }) }}

		done := make(chan Result, 1)
		go func() {
			res, _ := e.CalcPath(context.Background(), RunOptions{StepDelay: time.Hour, Sink: sink})
			done <- res
		}()

		<-started
		require.NoError(t, e.Stop())
		select {
		case res := <-done:
			assert.Equal(t, OutcomeStopped, res.Outcome)
			assert.Empty(t, res.Path)
			assert.Equal(t, Unknown, res.TotalCost)
		case <-time.After(5 * time.Second):
			t.Fatal("stop did not interrupt the step delay")
		}
		assert.Equal(t, OutcomeStopped, e.Outcome())
		assert.ErrorIs(t, e.Stop(), ErrNotRunning)
	})

	t.Run("while paused", func(t *testing.T) {
		e := newTestEngine(t, 20, 20, WithDestination(c(19, 19)))
		paused := make(chan struct{})
		sink := SinkFuncs{Step: func(ev StepEvent) {
			if ev.Step == 1 {
				assert.NoError(t, e.Pause())
				close(paused)
			}
		}}

		done := make(chan Result, 1)
		go func() {
			res, _ := e.CalcPath(context.Background(), RunOptions{Sink: sink})
			done <- res
		}()

		<-paused
		require.NoError(t, e.Stop())
		select {
		case res := <-done:
			assert.Equal(t, OutcomeStopped, res.Outcome)
			assert.Equal(t, 1, res.Steps)
		case <-time.After(5 * time.Second):
			t.Fatal("stop did not release a paused worker")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		e := newTestEngine(t, 20, 20, WithDestination(c(19, 19)))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := SinkFuncs{Step: func(ev StepEvent) {
			if ev.Step == 5 {
				cancel()
			}
		}}
		res, err := e.CalcPath(ctx, RunOptions{Sink: sink})
		require.NoError(t, err)
		assert.Equal(t, OutcomeStopped, res.Outcome)
		assert.Equal(t, 5, res.Steps)
	})
}

func assertContiguous(t *testing.T, path []Coordinate, diagonal bool) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		dx, dy := abs(path[i].X-path[i-1].X), abs(path[i].Y-path[i-1].Y)
		assert.True(t, dx <= 1 && dy <= 1 && dx+dy > 0, "gap between %s and %s", path[i-1], path[i])
		if !diagonal {
			assert.Equal(t, 1, dx+dy, "diagonal move between %s and %s", path[i-1], path[i])
		}
	}
}

// dijkstra is a reference shortest-path cost, Unknown when unreachable.
func dijkstra(walls [][]bool, from, to Coordinate, diagonal bool, costs CostModel) int {
	h, w := len(walls), len(walls[0])
	dist := make([][]int, h)
	for y := range dist {
		dist[y] = make([]int, w)
		for x := range dist[y] {
			dist[y][x] = Unknown
		}
	}
	done := make([][]bool, h)
	for y := range done {
		done[y] = make([]bool, w)
	}

	dist[from.Y][from.X] = 0
	pending := list.New()
	pending.PushBack(from)
	for pending.Len() > 0 {
		var best *list.Element
		for el := pending.Front(); el != nil; el = el.Next() {
			p := el.Value.(Coordinate)
			if best == nil || dist[p.Y][p.X] < dist[best.Value.(Coordinate).Y][best.Value.(Coordinate).X] {
				best = el
			}
		}
		cur := pending.Remove(best).(Coordinate)
		if done[cur.Y][cur.X] {
			continue
		}
		done[cur.Y][cur.X] = true
		if cur == to {
			return dist[cur.Y][cur.X]
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if (dx == 0 && dy == 0) || (!diagonal && dx != 0 && dy != 0) {
					continue
				}
				n := c(cur.X+dx, cur.Y+dy)
				if !n.Within(w, h) || walls[n.Y][n.X] || done[n.Y][n.X] {
					continue
				}
				d := dist[cur.Y][cur.X] + costs.StepCost(cur, n)
				if d < dist[n.Y][n.X] {
					dist[n.Y][n.X] = d
					pending.PushBack(n)
				}
			}
		}
	}
	return Unknown
}

func TestStart(t *testing.T) {
	e := newTestEngine(t, 20, 20, WithDestination(c(19, 19)))

	done, err := e.Start(context.Background(), RunOptions{StepDelay: time.Millisecond})
	require.NoError(t, err)

	// Run control is valid immediately.
	require.NoError(t, e.Pause())
	assert.Equal(t, StatePaused, e.State())
	_, err = e.Start(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunActive)
	require.NoError(t, e.Resume())

	select {
	case res, ok := <-done:
		require.True(t, ok)
		assert.Equal(t, OutcomeFound, res.Outcome)
		assert.Equal(t, 19*14, res.TotalCost)
	case <-time.After(10 * time.Second):
		t.Fatal("background run did not finish")
	}
	_, ok := <-done
	assert.False(t, ok, "result channel is closed after delivery")
	assert.Equal(t, StateIdle, e.State())
}
