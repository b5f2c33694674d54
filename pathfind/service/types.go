package service

import (
	"time"

	"github.com/wricardo/astar-playground/pathfind/engine"
)

// SessionInfo provides information about a session
type SessionInfo struct {
	ID             string            `json:"id"`
	ConfigID       string            `json:"config_id"`
	ConfigName     string            `json:"config_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	From           engine.Coordinate `json:"from"`
	To             engine.Coordinate `json:"to"`
	AllowDiagonal  bool              `json:"allow_diagonal"`
	State          engine.RunState   `json:"state"`
	Outcome        engine.Outcome    `json:"outcome"`
}

// ListOptions orders and limits ListSessions.
type ListOptions struct {
	Sort  string `json:"sort"`  // "created" (default) or "accessed"
	Order string `json:"order"` // "asc" (default) or "desc"
	Limit int    `json:"limit"` // 0 means no limit
}

// GridState is a snapshot of a session's engine.
type GridState struct {
	SessionID string `json:"session_id"`
	engine.Snapshot
	Run *RunInfo `json:"run,omitempty"`
}

// RunRequest configures StartRun.
type RunRequest struct {
	// StepDelay paces the worker; negative selects the scenario's delay.
	StepDelay time.Duration
	// Wait blocks StartRun until the run finishes or ctx ends.
	Wait bool
}

// RunInfo describes the current or last search run of a session.
type RunInfo struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"session_id"`
	State       engine.RunState     `json:"state"`
	Outcome     engine.Outcome      `json:"outcome"`
	Steps       int                 `json:"steps"`
	Expanded    int                 `json:"expanded"`
	StepDelayMS int64               `json:"step_delay_ms"`
	TotalCost   *int                `json:"total_cost,omitempty"`
	Path        []engine.Coordinate `json:"path,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	ElapsedMS   float64             `json:"elapsed_ms"`
	Error       string              `json:"error,omitempty"`
}

// Active reports whether the run is still searching or paused.
func (r *RunInfo) Active() bool {
	return r.FinishedAt == nil
}

// StepPayload is the data of a "step" event.
type StepPayload struct {
	RunID string `json:"run_id"`
	engine.StepEvent
}

// ControlPayload is the data of a "run_control" event.
type ControlPayload struct {
	RunID  string          `json:"run_id"`
	Action string          `json:"action"`
	State  engine.RunState `json:"state"`
}
