package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoRun           = errors.New("session has no search run yet")
	ErrInvalidRequest  = errors.New("invalid request")
)

// PathfinderService defines all pathfinding operations exposed to the
// transports.
type PathfinderService interface {
	// Session Management
	CreateSession(ctx context.Context, configID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Grid State
	GetState(ctx context.Context, sessionID string, withCells bool) (*GridState, error)
	Render(ctx context.Context, sessionID string) (string, error)

	// Edits (idle engine only, single blocks also while paused)
	SetBlock(ctx context.Context, sessionID string, c engine.Coordinate, blocked bool) (*GridState, error)
	ToggleBlock(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error)
	ClearBlocks(ctx context.Context, sessionID string) (*GridState, error)
	RandomBlocks(ctx context.Context, sessionID string, amount int, seed int64) (*GridState, error)
	ApplyMaze(ctx context.Context, sessionID string, seed int64, braid float64) (*GridState, error)
	SetStart(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error)
	SetDestination(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error)
	SetAllowDiagonal(ctx context.Context, sessionID string, allow bool) (*GridState, error)
	Reset(ctx context.Context, sessionID string) (*GridState, error)

	// Run Control
	StartRun(ctx context.Context, sessionID string, opts RunRequest) (*RunInfo, error)
	GetRun(ctx context.Context, sessionID string) (*RunInfo, error)
	PauseRun(ctx context.Context, sessionID string) (*RunInfo, error)
	ResumeRun(ctx context.Context, sessionID string) (*RunInfo, error)
	StopRun(ctx context.Context, sessionID string) (*RunInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*config.ConfigInfo, error)
	LoadConfig(ctx context.Context, configID string) (*config.Scenario, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, scenario *config.Scenario) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Count() int
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(name string) (*config.Scenario, error)
	ListConfigs() ([]*config.ConfigInfo, error)
	GetDefault() *config.Scenario
}

// Publisher pushes session events to live observers. Publish must not
// block: it is called from the search worker.
type Publisher interface {
	Publish(sessionID, event string, data any)
}

// Event names sent through the Publisher.
const (
	EventStep        = "step"
	EventFinished    = "finished"
	EventStateUpdate = "state_update"
	EventRunControl  = "run_control"
)

// Session represents one grid with its engine and run history.
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.Engine
	Scenario       *config.Scenario
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu  sync.Mutex
	run *run
}

// StopRun cancels the session's active search, if any.
func (s *Session) StopRun() {
	_ = s.Engine.Stop()
}

// run tracks one background search of a session.
type run struct {
	id         string
	startedAt  time.Time
	stepDelay  time.Duration
	done       chan struct{}
	result     *engine.Result
	finishedAt time.Time
}

// Touch records an access at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.LastAccessedAt = t
	s.mu.Unlock()
}

// AccessedAt returns the last access time.
func (s *Session) AccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastAccessedAt
}
