package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/astar-playground/metrics"
	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
	"github.com/wricardo/astar-playground/pathfind/maze"
)

// pathfinderServiceImpl implements the PathfinderService interface
type pathfinderServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	publisher Publisher
	metrics   *metrics.Metrics
	log       log15.Logger
}

// Option configures the service.
type Option func(*pathfinderServiceImpl)

// WithPublisher forwards run and grid events to p.
func WithPublisher(p Publisher) Option {
	return func(s *pathfinderServiceImpl) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *pathfinderServiceImpl) { s.metrics = m }
}

func WithLogger(l log15.Logger) Option {
	return func(s *pathfinderServiceImpl) { s.log = l }
}

// NewPathfinderService creates a new service instance
func NewPathfinderService(sessions SessionManager, configs ConfigManager, opts ...Option) PathfinderService {
	s := &pathfinderServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      log15.New("module", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *pathfinderServiceImpl) publish(sessionID, event string, data any) {
	if s.publisher != nil {
		s.publisher.Publish(sessionID, event, data)
	}
}

// session looks a session up and marks it as accessed.
func (s *pathfinderServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	_ = s.sessions.UpdateLastAccessed(sess.ID)
	return sess, nil
}

// CreateSession creates a new session from a scenario preset
func (s *pathfinderServiceImpl) CreateSession(ctx context.Context, configID string) (*SessionInfo, error) {
	var scenario *config.Scenario
	if configID == "" {
		scenario = s.configs.GetDefault()
		configID = config.DefaultConfigID
	} else {
		var err error
		scenario, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				available, listErr := s.configs.ListConfigs()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, cfg := range available {
						ids = append(ids, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configID, config.ErrConfigNotFound, ids)
				}
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	}

	sess, err := s.sessions.Create("", configID, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.metrics.SetActiveSessions(s.sessions.Count())
	s.log.Info("session created", "session", sess.ID, "config", configID)

	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *pathfinderServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all sessions ordered by creation or access time
func (s *pathfinderServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error) {
	switch opts.Sort {
	case "", "created", "accessed":
	default:
		return nil, fmt.Errorf("%w: sort must be created or accessed, got %q", ErrInvalidRequest, opts.Sort)
	}
	switch opts.Order {
	case "", "asc", "desc":
	default:
		return nil, fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidRequest, opts.Order)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}

	key := func(i int) time.Time { return result[i].CreatedAt }
	if opts.Sort == "accessed" {
		key = func(i int) time.Time { return result[i].LastAccessedAt }
	}
	sort.SliceStable(result, func(i, j int) bool {
		if opts.Order == "desc" {
			return key(i).After(key(j))
		}
		return key(i).Before(key(j))
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteSession removes a session, stopping its run
func (s *pathfinderServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.metrics.SetActiveSessions(s.sessions.Count())
	s.log.Info("session deleted", "session", sessionID)
	return nil
}

func (s *pathfinderServiceImpl) info(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot(false)
	return &SessionInfo{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		ConfigName:     sess.Scenario.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.AccessedAt(),
		Width:          snap.Width,
		Height:         snap.Height,
		From:           snap.From,
		To:             snap.To,
		AllowDiagonal:  snap.AllowDiagonal,
		State:          snap.State,
		Outcome:        snap.Outcome,
	}
}

// GetState returns a snapshot of the session's grid
func (s *pathfinderServiceImpl) GetState(ctx context.Context, sessionID string, withCells bool) (*GridState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.state(sess, withCells), nil
}

func (s *pathfinderServiceImpl) state(sess *Session, withCells bool) *GridState {
	st := &GridState{
		SessionID: sess.ID,
		Snapshot:  sess.Engine.Snapshot(withCells),
	}
	sess.mu.Lock()
	if sess.run != nil {
		st.Run = s.runInfoLocked(sess, sess.run)
	}
	sess.mu.Unlock()
	return st
}

// Render returns the ASCII dump of the grid
func (s *pathfinderServiceImpl) Render(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	return sess.Engine.Render(), nil
}

// edit applies fn to the session's engine and broadcasts the new state.
func (s *pathfinderServiceImpl) edit(sessionID, what string, fn func(*engine.Engine) error) (*GridState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess.Engine); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	st := s.state(sess, false)
	s.publish(sess.ID, EventStateUpdate, st)
	s.log.Debug("grid edited", "session", sess.ID, "edit", what)
	return st, nil
}

func (s *pathfinderServiceImpl) SetBlock(ctx context.Context, sessionID string, c engine.Coordinate, blocked bool) (*GridState, error) {
	return s.edit(sessionID, "set block", func(e *engine.Engine) error {
		return e.SetBlock(c, blocked)
	})
}

func (s *pathfinderServiceImpl) ToggleBlock(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error) {
	return s.edit(sessionID, "toggle block", func(e *engine.Engine) error {
		_, err := e.ToggleBlock(c)
		return err
	})
}

func (s *pathfinderServiceImpl) ClearBlocks(ctx context.Context, sessionID string) (*GridState, error) {
	return s.edit(sessionID, "clear blocks", (*engine.Engine).ClearBlocks)
}

// RandomBlocks scatters amount walls; a zero seed picks one from the clock.
func (s *pathfinderServiceImpl) RandomBlocks(ctx context.Context, sessionID string, amount int, seed int64) (*GridState, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return s.edit(sessionID, "random blocks", func(e *engine.Engine) error {
		_, err := e.RandomBlocks(amount, rand.New(rand.NewSource(seed)))
		return err
	})
}

// ApplyMaze replaces the walls with a generated maze. The start moves to
// (1,1) and the destination to the passage farthest from it.
func (s *pathfinderServiceImpl) ApplyMaze(ctx context.Context, sessionID string, seed int64, braid float64) (*GridState, error) {
	if braid < 0 || braid > 1 {
		return nil, fmt.Errorf("%w: braid must be between 0 and 1, got %g", ErrInvalidRequest, braid)
	}
	return s.edit(sessionID, "apply maze", func(e *engine.Engine) error {
		walls, err := maze.Generate(maze.Config{Width: e.Width(), Height: e.Height(), Braid: braid, Seed: seed})
		if err != nil {
			return err
		}
		from := engine.Coordinate{X: 1, Y: 1}
		to, dist := maze.Farthest(walls, from)
		if dist == 0 {
			return fmt.Errorf("%w: maze has a single passage", maze.ErrInvalidSize)
		}
		return e.SetLayout(walls, from, to)
	})
}

func (s *pathfinderServiceImpl) SetStart(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error) {
	return s.edit(sessionID, "set start", func(e *engine.Engine) error {
		return e.SetFrom(c)
	})
}

func (s *pathfinderServiceImpl) SetDestination(ctx context.Context, sessionID string, c engine.Coordinate) (*GridState, error) {
	return s.edit(sessionID, "set destination", func(e *engine.Engine) error {
		return e.SetTo(c)
	})
}

func (s *pathfinderServiceImpl) SetAllowDiagonal(ctx context.Context, sessionID string, allow bool) (*GridState, error) {
	return s.edit(sessionID, "set diagonal", func(e *engine.Engine) error {
		return e.SetAllowDiagonal(allow)
	})
}

// Reset clears the search overlay, keeping walls and endpoints.
func (s *pathfinderServiceImpl) Reset(ctx context.Context, sessionID string) (*GridState, error) {
	return s.edit(sessionID, "reset", (*engine.Engine).Reset)
}

// StartRun launches a search on a background goroutine. With Wait set it
// returns once the run finishes or ctx ends, whichever is first.
func (s *pathfinderServiceImpl) StartRun(ctx context.Context, sessionID string, req RunRequest) (*RunInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	delay := req.StepDelay
	if delay < 0 {
		delay = sess.Scenario.StepDelay()
	}
	if limit := time.Duration(config.MaxStepDelayMS) * time.Millisecond; delay > limit {
		return nil, fmt.Errorf("%w: step delay must be at most %s", ErrInvalidRequest, limit)
	}

	r := &run{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		stepDelay: delay,
		done:      make(chan struct{}),
	}
	sink := engine.MultiSink(s.metrics.Sink(), engine.SinkFuncs{
		Step: func(ev engine.StepEvent) {
			s.publish(sess.ID, EventStep, StepPayload{RunID: r.id, StepEvent: ev})
		},
	})

	sess.mu.Lock()
	results, err := sess.Engine.Start(context.Background(), engine.RunOptions{StepDelay: delay, Sink: sink})
	if err != nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("start run: %w", err)
	}
	sess.run = r
	sess.mu.Unlock()

	s.metrics.RunStarted()
	s.log.Info("run started", "session", sess.ID, "run", r.id, "delay", delay)
	go s.complete(sess, r, results)

	if req.Wait {
		select {
		case <-r.done:
		case <-ctx.Done():
			return s.runInfo(sess, r), ctx.Err()
		}
	}
	return s.runInfo(sess, r), nil
}

// complete records the result of r and announces it.
func (s *pathfinderServiceImpl) complete(sess *Session, r *run, results <-chan engine.Result) {
	res := <-results

	sess.mu.Lock()
	r.result = &res
	r.finishedAt = time.Now()
	sess.mu.Unlock()

	logger := s.log.New("session", sess.ID, "run", r.id)
	if res.Err != nil {
		logger.Error("run aborted", "err", res.Err, "steps", res.Steps)
	} else {
		logger.Info("run finished", "outcome", res.Outcome, "steps", res.Steps, "cost", res.TotalCost)
	}
	s.publish(sess.ID, EventFinished, s.runInfo(sess, r))
	close(r.done)
}

// GetRun reports the current or last run of a session
func (s *pathfinderServiceImpl) GetRun(ctx context.Context, sessionID string) (*RunInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.run == nil {
		return nil, ErrNoRun
	}
	return s.runInfoLocked(sess, sess.run), nil
}

func (s *pathfinderServiceImpl) PauseRun(ctx context.Context, sessionID string) (*RunInfo, error) {
	return s.control(sessionID, "pause", (*engine.Engine).Pause)
}

func (s *pathfinderServiceImpl) ResumeRun(ctx context.Context, sessionID string) (*RunInfo, error) {
	return s.control(sessionID, "resume", (*engine.Engine).Resume)
}

// StopRun cancels the active run and waits for it to wind down.
func (s *pathfinderServiceImpl) StopRun(ctx context.Context, sessionID string) (*RunInfo, error) {
	info, err := s.control(sessionID, "stop", (*engine.Engine).Stop)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	r := sess.run
	sess.mu.Unlock()
	if r == nil {
		return info, nil
	}
	select {
	case <-r.done:
		return s.runInfo(sess, r), nil
	case <-ctx.Done():
		return info, ctx.Err()
	}
}

func (s *pathfinderServiceImpl) control(sessionID, action string, fn func(*engine.Engine) error) (*RunInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess.Engine); err != nil {
		return nil, fmt.Errorf("%s run: %w", action, err)
	}

	sess.mu.Lock()
	r := sess.run
	var info *RunInfo
	if r != nil {
		info = s.runInfoLocked(sess, r)
	}
	sess.mu.Unlock()
	if info == nil {
		return nil, ErrNoRun
	}

	s.publish(sess.ID, EventRunControl, ControlPayload{RunID: r.id, Action: action, State: info.State})
	s.log.Debug("run control", "session", sess.ID, "run", r.id, "action", action)
	return info, nil
}

func (s *pathfinderServiceImpl) runInfo(sess *Session, r *run) *RunInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.runInfoLocked(sess, r)
}

// runInfoLocked describes r; sess.mu must be held.
func (s *pathfinderServiceImpl) runInfoLocked(sess *Session, r *run) *RunInfo {
	info := &RunInfo{
		ID:          r.id,
		SessionID:   sess.ID,
		StepDelayMS: r.stepDelay.Milliseconds(),
		StartedAt:   r.startedAt,
	}

	if res := r.result; res != nil {
		finished := r.finishedAt
		info.State = engine.StateIdle
		info.Outcome = res.Outcome
		info.Steps = res.Steps
		info.Expanded = res.Expanded
		info.Path = res.Path
		info.FinishedAt = &finished
		info.ElapsedMS = float64(res.Elapsed) / float64(time.Millisecond)
		if res.Found() {
			cost := res.TotalCost
			info.TotalCost = &cost
		}
		if res.Err != nil {
			info.Error = res.Err.Error()
		}
		return info
	}

	info.State = sess.Engine.State()
	info.Outcome = engine.OutcomePending
	info.Steps = sess.Engine.Steps()
	info.Expanded = info.Steps
	info.ElapsedMS = float64(time.Since(r.startedAt)) / float64(time.Millisecond)
	return info
}

// ListConfigs returns available scenario presets
func (s *pathfinderServiceImpl) ListConfigs(ctx context.Context) ([]*config.ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario preset
func (s *pathfinderServiceImpl) LoadConfig(ctx context.Context, configID string) (*config.Scenario, error) {
	return s.configs.LoadConfig(configID)
}
