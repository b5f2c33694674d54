package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/service"
)

// Attempts for requests that failed before reaching the API.
const maxAttempts = 3

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	retry      backoff.Backoff
	log        log15.Logger
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    2 * time.Second,
			Factor: 2,
			Jitter: true,
		},
		log: log15.New("module", "mcp"),
	}

	c.initMCPServer()
	return c
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(l log15.Logger) {
	c.log = l
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"A* Pathfinding Playground",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(`A* Pathfinding Playground - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Create a session, shape its grid (walls, endpoints, mazes), then run the
A* search and inspect the result. Call 'instructions' for the full guide.

AVAILABLE TOOLS:
- create_session, list_sessions, list_configs
- grid_state, render_grid
- set_block, clear_blocks, random_blocks, apply_maze
- set_start, set_destination, set_diagonal, reset_search
- start_run, run_status, pause_run, resume_run, stop_run
- instructions`),
	)

	// Register all tools
	c.registerTools()
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func coordinateArgs(what string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x", mcp.Required(), mcp.Min(0), mcp.Description("Column of the "+what)),
		mcp.WithNumber("y", mcp.Required(), mcp.Min(0), mcp.Description("Row of the "+what)),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new grid session from a scenario preset"),
		mcp.WithString("config_id", mcp.Description("Scenario to load (optional, see list_configs)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List active sessions"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("sort", mcp.Enum("created", "accessed"), mcp.Description("Sort key")),
		mcp.WithString("order", mcp.Enum("asc", "desc"), mcp.Description("Sort order")),
		mcp.WithNumber("limit", mcp.Min(0), mcp.Description("Maximum sessions to return")),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available scenario presets"),
		mcp.WithReadOnlyHintAnnotation(true),
	), c.handleListConfigs)

	// Grid
	c.mcpServer.AddTool(mcp.NewTool("grid_state",
		mcp.WithDescription("Get the grid state: endpoints, walls, open and closed sets, path and run"),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg(),
	), c.handleGridState)

	c.mcpServer.AddTool(mcp.NewTool("render_grid",
		mcp.WithDescription("Render the grid as ASCII, one cell per two characters"),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg(),
	), c.handleRenderGrid)

	c.mcpServer.AddTool(mcp.NewTool("set_block",
		append([]mcp.ToolOption{
			mcp.WithDescription("Block or unblock one cell"),
			sessionArg(),
			mcp.WithBoolean("blocked", mcp.DefaultBool(true), mcp.Description("true blocks the cell, false opens it")),
		}, coordinateArgs("cell")...)...,
	), c.handleSetBlock)

	c.mcpServer.AddTool(mcp.NewTool("clear_blocks",
		mcp.WithDescription("Remove every wall"),
		sessionArg(),
	), c.handleClearBlocks)

	c.mcpServer.AddTool(mcp.NewTool("random_blocks",
		mcp.WithDescription("Block random open cells other than the endpoints"),
		sessionArg(),
		mcp.WithNumber("amount", mcp.Required(), mcp.Min(0), mcp.Description("Number of cells to block")),
		mcp.WithNumber("seed", mcp.Description("Random seed (optional)")),
	), c.handleRandomBlocks)

	c.mcpServer.AddTool(mcp.NewTool("apply_maze",
		mcp.WithDescription("Replace the walls with a generated maze; the start moves to (1,1) and the destination to the farthest passage"),
		sessionArg(),
		mcp.WithNumber("seed", mcp.Description("Random seed (optional)")),
		mcp.WithNumber("braid", mcp.Min(0), mcp.Max(1), mcp.Description("Chance of removing dead-end walls, 0 to 1")),
	), c.handleApplyMaze)

	c.mcpServer.AddTool(mcp.NewTool("set_start",
		append([]mcp.ToolOption{mcp.WithDescription("Move the start cell"), sessionArg()}, coordinateArgs("start")...)...,
	), c.handleSetStart)

	c.mcpServer.AddTool(mcp.NewTool("set_destination",
		append([]mcp.ToolOption{mcp.WithDescription("Move the destination cell"), sessionArg()}, coordinateArgs("destination")...)...,
	), c.handleSetDestination)

	c.mcpServer.AddTool(mcp.NewTool("set_diagonal",
		mcp.WithDescription("Allow or forbid diagonal moves"),
		sessionArg(),
		mcp.WithBoolean("allow", mcp.Required(), mcp.Description("true allows 8-way movement")),
	), c.handleSetDiagonal)

	c.mcpServer.AddTool(mcp.NewTool("reset_search",
		mcp.WithDescription("Clear the search overlay, keeping walls and endpoints"),
		sessionArg(),
	), c.handleReset)

	// Runs
	c.mcpServer.AddTool(mcp.NewTool("start_run",
		mcp.WithDescription("Start the A* search"),
		sessionArg(),
		mcp.WithNumber("step_delay_ms", mcp.Min(0), mcp.Max(config.MaxStepDelayMS), mcp.Description("Pause after each expansion (defaults to the scenario's)")),
		mcp.WithBoolean("wait", mcp.DefaultBool(true), mcp.Description("Wait for the run to finish")),
	), c.handleStartRun)

	c.mcpServer.AddTool(mcp.NewTool("run_status",
		mcp.WithDescription("Get the current or last run"),
		mcp.WithReadOnlyHintAnnotation(true),
		sessionArg(),
	), c.handleRunStatus)

	for _, action := range []string{"pause", "resume", "stop"} {
		c.mcpServer.AddTool(mcp.NewTool(action+"_run",
			mcp.WithDescription(strings.ToUpper(action[:1])+action[1:]+" the active run"),
			sessionArg(),
		), c.runControl(action))
	}

	c.mcpServer.AddTool(mcp.NewTool("instructions",
		mcp.WithDescription("Explain the playground, the cost model and the render legend"),
		mcp.WithReadOnlyHintAnnotation(true),
	), c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// WaitForAPI polls the health endpoint until the API answers or ctx ends.
func (c *Client) WaitForAPI(ctx context.Context) error {
	b := c.retry
	for {
		err := c.apiCall(ctx, "GET", "/api/health", nil, nil)
		if err == nil {
			return nil
		}
		d := b.Duration()
		c.log.Debug("api not ready", "url", c.baseURL, "attempt", b.Attempt(), "retry_in", d, "err", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("api at %s not ready: %w", c.baseURL, err)
		case <-time.After(d):
		}
	}
}

// Helper methods for API calls

// apiError is an error response from the API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// do sends a request. GET requests that cannot reach the API are retried
// with backoff; responses with an error status are returned as is.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	b := c.retry
	for {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		if method != http.MethodGet || ctx.Err() != nil || int(b.Attempt())+1 >= maxAttempts {
			return nil, err
		}
		d := b.Duration()
		c.log.Debug("api request failed, retrying", "method", method, "path", path, "retry_in", d, "err", err)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(d):
		}
	}
}

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &apiError{Status: resp.StatusCode, Message: errResp["error"]}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) apiText(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.Unmarshal(data, &errResp)
		return "", &apiError{Status: resp.StatusCode, Message: errResp["error"]}
	}
	return string(data), nil
}

// Argument helpers

func sessionPath(request mcp.CallToolRequest, suffix string) (string, error) {
	id, err := cast.ToStringE(request.GetArguments()["session_id"])
	if err != nil || strings.TrimSpace(id) == "" {
		return "", errors.New("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(strings.TrimSpace(id)) + suffix, nil
}

func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func coordinateBody(request mcp.CallToolRequest) (map[string]any, error) {
	args := request.GetArguments()
	x, err := intArg(args, "x")
	if err != nil {
		return nil, err
	}
	y, err := intArg(args, "y")
	if err != nil {
		return nil, err
	}
	return map[string]any{"x": x, "y": y}, nil
}

func boolArg(args map[string]any, key string, def bool) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := cast.ToString(request.GetArguments()["config_id"]); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query := url.Values{}
	for _, key := range []string{"sort", "order"} {
		if v := cast.ToString(args[key]); v != "" {
			query.Set(key, v)
		}
	}
	if v, ok := args["limit"]; ok && v != nil {
		query.Set("limit", cast.ToString(cast.ToInt(v)))
	}
	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&sb, "- %s (Config: %s, %dx%d, %s, Created: %s)\n",
			s.ID, s.ConfigID, s.Width, s.Height, s.State, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []config.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&sb, "- %s: %s (%dx%d)", cfg.ConfigID, cfg.Name, cfg.Width, cfg.Height)
		if cfg.Maze {
			sb.WriteString(" [maze]")
		}
		if cfg.Description != "" {
			fmt.Fprintf(&sb, "\n  %s", cfg.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGridState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state service.GridState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGridState(&state)), nil
}

func (c *Client) handleRenderGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/render")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := c.apiText(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// edit sends a grid edit and reports the resulting state.
func (c *Client) edit(ctx context.Context, request mcp.CallToolRequest, method, suffix string, body any) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state service.GridState
	if err := c.apiCall(ctx, method, path, body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGridState(&state)), nil
}

func (c *Client) handleSetBlock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := coordinateBody(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body["blocked"] = boolArg(request.GetArguments(), "blocked", true)
	return c.edit(ctx, request, "POST", "/blocks", body)
}

func (c *Client) handleClearBlocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.edit(ctx, request, "DELETE", "/blocks", nil)
}

func (c *Client) handleRandomBlocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	amount, err := intArg(args, "amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.edit(ctx, request, "POST", "/blocks/random", map[string]any{
		"amount": amount,
		"seed":   cast.ToInt64(args["seed"]),
	})
}

func (c *Client) handleApplyMaze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	return c.edit(ctx, request, "POST", "/maze", map[string]any{
		"seed":  cast.ToInt64(args["seed"]),
		"braid": cast.ToFloat64(args["braid"]),
	})
}

func (c *Client) handleSetStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := coordinateBody(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.edit(ctx, request, "PUT", "/start", body)
}

func (c *Client) handleSetDestination(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := coordinateBody(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.edit(ctx, request, "PUT", "/destination", body)
}

func (c *Client) handleSetDiagonal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, ok := request.GetArguments()["allow"]
	if !ok {
		return mcp.NewToolResultError("allow is required"), nil
	}
	allow, err := cast.ToBoolE(v)
	if err != nil {
		return mcp.NewToolResultError("allow must be a boolean"), nil
	}
	return c.edit(ctx, request, "PUT", "/diagonal", map[string]any{"allow": allow})
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.edit(ctx, request, "POST", "/reset", nil)
}

func (c *Client) handleStartRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	body := map[string]any{"wait": boolArg(args, "wait", true)}
	if v, ok := args["step_delay_ms"]; ok && v != nil {
		delay, err := cast.ToInt64E(v)
		if err != nil {
			return mcp.NewToolResultError("step_delay_ms must be an integer"), nil
		}
		body["step_delay_ms"] = delay
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", path, body, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) handleRunStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request, "/run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "GET", path, nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRunInfo(&run)), nil
}

func (c *Client) runControl(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := sessionPath(request, "/run/"+action)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var run service.RunInfo
		if err := c.apiCall(ctx, "POST", path, nil, &run); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatRunInfo(&run)), nil
	}
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `A* Pathfinding Playground - Instructions

WHAT IT DOES:
Each session holds a grid with a start cell, a destination cell and walls.
A run expands cells in A* order until the destination is reached or the
open set is empty. Runs happen in the background; watch them with
run_status, or pass wait=true to start_run.

COORDINATES:
x is the column and y the row, both zero-based from the top-left corner.

COST MODEL (defaults):
- Cardinal step: 10
- Diagonal step: 14 (only when diagonal moves are allowed)
- g: cost from the start, h: estimated cost to the destination, f = g + h
- The open set is ordered by f, then h, then discovery order

RENDER LEGEND (two characters per cell):
- S  start          F  destination
- XX wall           (spaces) unvisited
- O  open           C  closed
- P  path

EDIT RULES:
- Edits are allowed while no run is active.
- While a run is paused, single cells may still be blocked or opened,
  except cells that were already expanded.
- Endpoints can never be blocked, and start and destination must differ.

TYPICAL SESSION:
1. create_session (optionally with a config_id from list_configs)
2. apply_maze or random_blocks, or set_block cell by cell
3. start_run with wait=true
4. render_grid to see the path; reset_search to try again`

// Formatting helpers

func formatSessionInfo(s *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s (%s)\nGrid: %dx%d\nStart: %s  Destination: %s\nDiagonal: %v\nState: %s  Outcome: %s\n",
		s.ID, s.ConfigID, s.ConfigName, s.Width, s.Height, s.From, s.To, s.AllowDiagonal, s.State, s.Outcome)
}

func formatGridState(st *service.GridState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", st.SessionID)
	fmt.Fprintf(&sb, "Grid: %dx%d, %d walls\n", st.Width, st.Height, len(st.Walls))
	fmt.Fprintf(&sb, "Start: %s  Destination: %s  Diagonal: %v\n", st.From, st.To, st.AllowDiagonal)
	fmt.Fprintf(&sb, "Costs: cardinal=%d diagonal=%d heuristic=%s\n", st.Costs.Cardinal, st.Costs.Diagonal, st.Costs.Heuristic)
	fmt.Fprintf(&sb, "State: %s  Outcome: %s  Steps: %d\n", st.State, st.Outcome, st.Steps)
	fmt.Fprintf(&sb, "Open: %d  Closed: %d\n", len(st.Open), len(st.Closed))
	if st.TotalCost != nil {
		fmt.Fprintf(&sb, "Path cost: %d over %d cells\n", *st.TotalCost, len(st.Path))
	}
	return sb.String()
}

func formatRunInfo(r *service.RunInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run: %s (session %s)\n", r.ID, r.SessionID)
	fmt.Fprintf(&sb, "State: %s  Outcome: %s\n", r.State, r.Outcome)
	fmt.Fprintf(&sb, "Steps: %d  Expanded: %d  Delay: %dms  Elapsed: %.1fms\n", r.Steps, r.Expanded, r.StepDelayMS, r.ElapsedMS)
	if r.TotalCost != nil {
		fmt.Fprintf(&sb, "Path cost: %d\n", *r.TotalCost)
	}
	if len(r.Path) > 0 {
		parts := make([]string, len(r.Path))
		for i, c := range r.Path {
			parts[i] = c.String()
		}
		fmt.Fprintf(&sb, "Path (%d cells): %s\n", len(r.Path), strings.Join(parts, " -> "))
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", r.Error)
	}
	return sb.String()
}
