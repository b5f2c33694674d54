package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/astar-playground/metrics"
	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/engine"
	"github.com/wricardo/astar-playground/pathfind/maze"
	"github.com/wricardo/astar-playground/pathfind/service"
	"github.com/wricardo/astar-playground/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.PathfinderService
	hub     *websocket.Hub
	metrics *metrics.Metrics
	router  *mux.Router
	log     log15.Logger
}

// NewServer creates a new API server. hub and m may be nil, which disables
// /ws and /metrics.
func NewServer(svc service.PathfinderService, hub *websocket.Hub, m *metrics.Metrics) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		metrics: m,
		router:  mux.NewRouter(),
		log:     log15.New("module", "api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Grid
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/render", s.handleRender).Methods("GET")
	api.HandleFunc("/sessions/{id}/blocks", s.handleSetBlock).Methods("POST")
	api.HandleFunc("/sessions/{id}/blocks", s.handleClearBlocks).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/blocks/toggle", s.handleToggleBlock).Methods("POST")
	api.HandleFunc("/sessions/{id}/blocks/random", s.handleRandomBlocks).Methods("POST")
	api.HandleFunc("/sessions/{id}/maze", s.handleApplyMaze).Methods("POST")
	api.HandleFunc("/sessions/{id}/start", s.handleSetStart).Methods("PUT")
	api.HandleFunc("/sessions/{id}/destination", s.handleSetDestination).Methods("PUT")
	api.HandleFunc("/sessions/{id}/diagonal", s.handleSetDiagonal).Methods("PUT")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Runs
	api.HandleFunc("/sessions/{id}/run", s.handleStartRun).Methods("POST")
	api.HandleFunc("/sessions/{id}/run", s.handleGetRun).Methods("GET")
	api.HandleFunc("/sessions/{id}/run/{action:pause|resume|stop}", s.handleRunControl).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handle mounts an extra handler, such as the MCP endpoint, on the router.
func (s *Server) Handle(path string, h http.Handler) {
	s.router.PathPrefix(path).Handler(h)
}

// SetLogger replaces the server's logger.
func (s *Server) SetLogger(l log15.Logger) {
	s.log = l
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, service.ErrNoRun):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrRunActive),
		errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrAlreadyPaused),
		errors.Is(err, engine.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrInvalidBlock),
		errors.Is(err, engine.ErrInvalidGridShape),
		errors.Is(err, engine.ErrInvalidEndpoint),
		errors.Is(err, engine.ErrTooManyBlocks),
		errors.Is(err, engine.ErrInvalidCostModel),
		errors.Is(err, maze.ErrInvalidSize),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	respondError(w, status, err.Error())
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %v", service.ErrInvalidRequest, err)
	}
	return nil
}

type point struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (p point) coordinate() (engine.Coordinate, error) {
	if p.X == nil || p.Y == nil {
		return engine.Coordinate{}, fmt.Errorf("%w: x and y are required", service.ErrInvalidRequest)
	}
	return engine.Coordinate{X: *p.X, Y: *p.Y}, nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.ConfigID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		opts.Limit = l
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Grid Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	withCells, _ := strconv.ParseBool(r.URL.Query().Get("cells"))

	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"], withCells)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.Render(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

// respondState finishes a grid edit.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, state *service.GridState, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		point
		Blocked *bool `json:"blocked"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := req.coordinate()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	blocked := true
	if req.Blocked != nil {
		blocked = *req.Blocked
	}

	state, err := s.service.SetBlock(r.Context(), mux.Vars(r)["id"], c, blocked)
	s.respondState(w, r, state, err)
}

func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	var req point
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := req.coordinate()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := s.service.ToggleBlock(r.Context(), mux.Vars(r)["id"], c)
	s.respondState(w, r, state, err)
}

func (s *Server) handleClearBlocks(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.ClearBlocks(r.Context(), mux.Vars(r)["id"])
	s.respondState(w, r, state, err)
}

func (s *Server) handleRandomBlocks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int   `json:"amount"`
		Seed   int64 `json:"seed"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := s.service.RandomBlocks(r.Context(), mux.Vars(r)["id"], req.Amount, req.Seed)
	s.respondState(w, r, state, err)
}

func (s *Server) handleApplyMaze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed  int64   `json:"seed"`
		Braid float64 `json:"braid"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := s.service.ApplyMaze(r.Context(), mux.Vars(r)["id"], req.Seed, req.Braid)
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetStart(w http.ResponseWriter, r *http.Request) {
	var req point
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := req.coordinate()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := s.service.SetStart(r.Context(), mux.Vars(r)["id"], c)
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req point
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := req.coordinate()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	state, err := s.service.SetDestination(r.Context(), mux.Vars(r)["id"], c)
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetDiagonal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Allow *bool `json:"allow"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Allow == nil {
		respondError(w, http.StatusBadRequest, "allow is required")
		return
	}

	state, err := s.service.SetAllowDiagonal(r.Context(), mux.Vars(r)["id"], *req.Allow)
	s.respondState(w, r, state, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Reset(r.Context(), mux.Vars(r)["id"])
	s.respondState(w, r, state, err)
}

// Run Handlers

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StepDelayMS *int64 `json:"step_delay_ms"`
		Wait        bool   `json:"wait"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	opts := service.RunRequest{StepDelay: -1, Wait: req.Wait}
	if req.StepDelayMS != nil {
		if *req.StepDelayMS < 0 {
			respondError(w, http.StatusBadRequest, "step_delay_ms must not be negative")
			return
		}
		if *req.StepDelayMS > config.MaxStepDelayMS {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("step_delay_ms must be at most %d", config.MaxStepDelayMS))
			return
		}
		opts.StepDelay = time.Duration(*req.StepDelayMS) * time.Millisecond
	}

	run, err := s.service.StartRun(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	status := http.StatusAccepted
	if !run.Active() {
		status = http.StatusOK
	}
	respondJSON(w, status, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunControl(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var (
		run *service.RunInfo
		err error
	)
	switch vars["action"] {
	case "pause":
		run, err = s.service.PauseRun(r.Context(), sessionID)
	case "resume":
		run, err = s.service.ResumeRun(r.Context(), sessionID)
	case "stop":
		run, err = s.service.StopRun(r.Context(), sessionID)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	scenario, err := s.service.LoadConfig(r.Context(), config.ConfigID(mux.Vars(r)["name"]))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, scenario)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Subscribe under the canonical ID, the one events are published with.
	state, err := s.service.GetState(r.Context(), sessionID, false)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, state.SessionID, state)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "healthy"}
	if s.hub != nil {
		resp["ws_clients"] = s.hub.Clients()
	}
	respondJSON(w, http.StatusOK, resp)
}
