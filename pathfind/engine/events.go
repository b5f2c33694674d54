package engine

import "time"

// StepEvent is published after every expansion.
type StepEvent struct {
	Step    int        `json:"step"`
	Current Coordinate `json:"current"`
	FCost   int        `json:"f_cost"`
	Open    int        `json:"open"`
	Closed  int        `json:"closed"`
}

// Result describes a finished run.
type Result struct {
	Outcome   Outcome       `json:"outcome"`
	TotalCost int           `json:"total_cost"`
	Path      []Coordinate  `json:"path,omitempty"`
	Steps     int           `json:"steps"`
	Expanded  int           `json:"expanded"`
	Elapsed   time.Duration `json:"elapsed"`
	Err       error         `json:"-"`
}

// Found reports whether the run reached the destination.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// EventSink observes a run. Both methods are called from the worker
// goroutine without the engine lock held, so implementations may read
// engine state or call Pause. OnStep for step n+1 is never called before
// OnStep for step n has returned.
type EventSink interface {
	OnStep(StepEvent)
	OnFinish(Result)
}

// SinkFuncs adapts plain functions to an EventSink. Nil fields are skipped.
type SinkFuncs struct {
	Step   func(StepEvent)
	Finish func(Result)
}

func (s SinkFuncs) OnStep(ev StepEvent) {
	if s.Step != nil {
		s.Step(ev)
	}
}

func (s SinkFuncs) OnFinish(r Result) {
	if s.Finish != nil {
		s.Finish(r)
	}
}

type multiSink []EventSink

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) OnStep(ev StepEvent) {
	for _, s := range m {
		s.OnStep(ev)
	}
}

func (m multiSink) OnFinish(r Result) {
	for _, s := range m {
		s.OnFinish(r)
	}
}

// EventType distinguishes channel events.
type EventType uint8

const (
	EventStep EventType = iota
	EventFinish
)

// Event is the value delivered by a ChannelSink.
type Event struct {
	Type   EventType
	Step   StepEvent
	Result Result
}

// ChannelSink forwards events over a channel that is closed after the
// finish event. Sends block when the buffer is full, which paces the
// worker to the reader.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

func (s *ChannelSink) OnStep(ev StepEvent) {
	s.events <- Event{Type: EventStep, Step: ev}
}

func (s *ChannelSink) OnFinish(r Result) {
	s.events <- Event{Type: EventFinish, Result: r}
	close(s.events)
}

type nopSink struct{}

func (nopSink) OnStep(StepEvent) {}
func (nopSink) OnFinish(Result)  {}
