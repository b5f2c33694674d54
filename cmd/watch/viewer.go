package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/astar-playground/pathfind/engine"
	"github.com/wricardo/astar-playground/pathfind/maze"
)

// Screen layout: a status line, the grid with two columns per cell, then
// the key help.
const (
	gridTop   = 1
	cellWidth = 2
)

const helpLine = "enter run  space pause  s stop  d diagonal  m maze  r reset  c clear  click wall  q quit"

var (
	styleDefault = tcell.StyleDefault
	styleEmpty   = tcell.StyleDefault.Dim(true)
	styleOpenSet = tcell.StyleDefault.Background(tcell.ColorTeal)
	styleClosed  = tcell.StyleDefault.Background(tcell.ColorNavy)
	stylePath    = tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack)
	styleWall    = tcell.StyleDefault.Background(tcell.ColorGray)
	styleStart   = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleDest    = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite)
	styleStatus  = tcell.StyleDefault.Bold(true)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// finished carries a run result back to the event loop.
type finished struct {
	result engine.Result
}

// viewer draws an engine on a terminal and maps keys and clicks to engine
// operations. All screen and viewer state is owned by the event loop; the
// search worker only posts events.
type viewer struct {
	screen    tcell.Screen
	eng       *engine.Engine
	stepDelay time.Duration
	seed      int64
	log       log15.Logger

	message  string
	err      error
	dragging bool
	lastCell engine.Coordinate
}

func newViewer(screen tcell.Screen, eng *engine.Engine, stepDelay time.Duration, seed int64) *viewer {
	return &viewer{
		screen:    screen,
		eng:       eng,
		stepDelay: stepDelay,
		seed:      seed,
		log:       log15.New("module", "watch"),
		message:   "press enter to search",
	}
}

// run processes events until the user quits or ctx ends.
func (v *viewer) run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
	}()

	v.draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if quit := v.handle(ev); quit {
			v.stop()
			return nil
		}
		if ctx.Err() != nil {
			v.stop()
			return nil
		}
		v.draw()
	}
}

// handle applies one event and reports whether the viewer should exit.
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventInterrupt:
		if f, ok := ev.Data().(finished); ok {
			v.onFinished(f.result)
		}
	}
	return false
}

func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyEnter:
		v.start()
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case ' ':
		v.togglePause()
	case 's':
		v.report("stopping", v.eng.Stop())
	case 'd':
		allow := !v.eng.AllowDiagonal()
		v.report(fmt.Sprintf("diagonal moves %v", onOff(allow)), v.eng.SetAllowDiagonal(allow))
	case 'm':
		v.applyMaze()
	case 'r':
		v.report("search cleared", v.eng.Reset())
	case 'c':
		v.report("walls cleared", v.eng.ClearBlocks())
	}
	return false
}

// handleMouse toggles walls under the pointer; a drag toggles each cell once.
func (v *viewer) handleMouse(ev *tcell.EventMouse) {
	if ev.Buttons()&tcell.Button1 == 0 {
		v.dragging = false
		return
	}
	x, y := ev.Position()
	c, ok := v.cellAt(x, y)
	if !ok || (v.dragging && c == v.lastCell) {
		return
	}
	v.dragging, v.lastCell = true, c

	blocked, err := v.eng.ToggleBlock(c)
	if err != nil {
		v.report("", err)
		return
	}
	if blocked {
		v.report(c.String()+" blocked", nil)
	} else {
		v.report(c.String()+" opened", nil)
	}
}

// cellAt maps screen coordinates to a grid cell.
func (v *viewer) cellAt(x, y int) (engine.Coordinate, bool) {
	c := engine.Coordinate{X: x / cellWidth, Y: y - gridTop}
	return c, c.Within(v.eng.Width(), v.eng.Height())
}

func (v *viewer) start() {
	sink := engine.SinkFuncs{
		Step: func(engine.StepEvent) {
			// the queue may be full; the next step redraws anyway
			_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
		},
	}
	results, err := v.eng.Start(context.Background(), engine.RunOptions{StepDelay: v.stepDelay, Sink: sink})
	if err != nil {
		v.report("", err)
		return
	}
	v.report("searching", nil)

	go func() {
		res := <-results
		// the final event must arrive, so retry while the queue is full
		for v.screen.PostEvent(tcell.NewEventInterrupt(finished{result: res})) != nil {
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func (v *viewer) togglePause() {
	switch v.eng.State() {
	case engine.StatePaused:
		v.report("resumed", v.eng.Resume())
	default:
		v.report("paused", v.eng.Pause())
	}
}

func (v *viewer) applyMaze() {
	v.seed++
	walls, err := maze.Generate(maze.Config{Width: v.eng.Width(), Height: v.eng.Height(), Seed: v.seed})
	if err != nil {
		v.report("", err)
		return
	}
	from := engine.Coordinate{X: 1, Y: 1}
	to, dist := maze.Farthest(walls, from)
	if dist == 0 {
		v.report("", fmt.Errorf("%w: maze has a single passage", maze.ErrInvalidSize))
		return
	}
	v.report(fmt.Sprintf("maze %d", v.seed), v.eng.SetLayout(walls, from, to))
}

func (v *viewer) onFinished(res engine.Result) {
	v.log.Debug("run finished", "outcome", res.Outcome, "steps", res.Steps, "cost", res.TotalCost)
	if res.Err != nil {
		v.report("", res.Err)
		return
	}
	switch res.Outcome {
	case engine.OutcomeFound:
		v.report(fmt.Sprintf("found: cost %d, %d cells, %d expanded", res.TotalCost, len(res.Path), res.Expanded), nil)
	default:
		v.report(fmt.Sprintf("%s after %d expansions", res.Outcome, res.Expanded), nil)
	}
}

// report sets the status line to msg, or to err when it is non-nil.
func (v *viewer) report(msg string, err error) {
	v.err = err
	if err == nil {
		v.message = msg
	}
}

// stop cancels an active run so its worker does not outlive the screen.
func (v *viewer) stop() {
	if err := v.eng.Stop(); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		v.log.Warn("stop failed", "err", err)
	}
}

func (v *viewer) draw() {
	v.screen.Clear()
	snap := v.eng.Snapshot(false)

	status := fmt.Sprintf("%dx%d  %s  steps %d  diagonal %s  |  %s",
		snap.Width, snap.Height, snap.State, snap.Steps, onOff(snap.AllowDiagonal), v.message)
	style := styleStatus
	if v.err != nil {
		status = "error: " + v.err.Error()
		style = styleError
	}
	drawText(v.screen, 0, 0, style, status)

	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			v.drawCell(engine.Coordinate{X: x, Y: y}, ". ", styleEmpty)
		}
	}
	for _, layer := range []struct {
		cells []engine.Coordinate
		style tcell.Style
	}{
		{snap.Closed, styleClosed},
		{snap.Open, styleOpenSet},
		{snap.Path, stylePath},
		{snap.Walls, styleWall},
	} {
		for _, c := range layer.cells {
			v.drawCell(c, "  ", layer.style)
		}
	}
	v.drawCell(snap.From, "S ", styleStart)
	v.drawCell(snap.To, "F ", styleDest)

	drawText(v.screen, 0, gridTop+snap.Height+1, styleDefault, helpLine)
	v.screen.Show()
}

func (v *viewer) drawCell(c engine.Coordinate, text string, style tcell.Style) {
	x := c.X * cellWidth
	for i, r := range text {
		v.screen.SetContent(x+i, gridTop+c.Y, r, nil, style)
	}
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
