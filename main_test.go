package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/astar-playground/pathfind/session"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "A* Pathfinding Playground" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	if err := app.Run(context.Background(), []string{"astar-playground", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), "v"+Version) {
		t.Errorf("Expected version in output, got %q", out.String())
	}
}

func TestFlagDefaults(t *testing.T) {
	app := newApp()
	var port int
	var host, configDir string
	app.Commands[2].Action = func(ctx context.Context, cmd *cli.Command) error {
		port = cmd.Int("port")
		host = cmd.String("host")
		configDir = cmd.String("config-dir")
		return nil
	}

	if err := app.Run(context.Background(), []string{"astar-playground", "version"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if port != 8080 || host != "localhost" || configDir != "configs" {
		t.Errorf("Unexpected defaults: port=%d host=%q config-dir=%q", port, host, configDir)
	}
}

func TestSetupLogging(t *testing.T) {
	root := log15.Root().GetHandler()
	t.Cleanup(func() { log15.Root().SetHandler(root) })

	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantDebug bool
	}{
		{"default level", nil, false, false},
		{"debug flag", []string{"--debug"}, false, true},
		{"debug level", []string{"--log-level", "DEBUG"}, false, true},
		{"pretty", []string{"--pretty", "--log-level", "warn"}, false, false},
		{"invalid level", []string{"--log-level", "loud"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			app := newApp()
			app.Writer = io.Discard
			app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
				return ctx, setupLogging(cmd, &buf)
			}

			args := append([]string{"astar-playground"}, tt.args...)
			err := app.Run(context.Background(), append(args, "version"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			log.Debug("probe")
			if got := strings.Contains(buf.String(), "probe"); got != tt.wantDebug {
				t.Errorf("debug output = %v, want %v (%q)", got, tt.wantDebug, buf.String())
			}
		})
	}
}

func TestInitializeServices(t *testing.T) {
	s, err := initializeServices("configs")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if s.service == nil || s.hub == nil || s.metrics == nil {
		t.Fatal("Expected all services to be initialized")
	}

	configs, err := s.service.ListConfigs(context.Background())
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(configs) == 0 {
		t.Error("Expected the bundled scenarios to be listed")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	if _, err := initializeServices("/non/existent/path"); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	s, err := initializeServices("configs")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if _, err := s.sessions.Create("", "default", s.configs.GetDefault()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, s.sessions, s.metrics, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.sessions.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected the idle session to be cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup routine did not stop with its context")
	}
}

// startServer serves the full handler on a real listener so the MCP
// endpoint can call back into the API.
func startServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	s, err := initializeServices("configs")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	ts := httptest.NewUnstartedServer(nil)
	ts.Config.Handler = newHTTPHandler(s, "http://"+ts.Listener.Addr().String())
	ts.Start()
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, s.sessions
}

func postJSONRPC(t *testing.T, url, sessionID string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	data, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode JSON-RPC response: %v", err)
	}
	return resp, out
}

func TestHTTPHandler(t *testing.T) {
	ts, _ := startServer(t)

	for _, path := range []string{"/api/health", "/api/configs", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestMCPEndpoint(t *testing.T) {
	ts, sessions := startServer(t)

	resp, out := postJSONRPC(t, ts.URL+"/mcp", "", map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initialize: expected 200, got %d", resp.StatusCode)
	}
	result, _ := out["result"].(map[string]any)
	serverInfo, _ := result["serverInfo"].(map[string]any)
	if serverInfo["name"] != "A* Pathfinding Playground" {
		t.Errorf("Unexpected server info: %v", out)
	}
	mcpSession := resp.Header.Get("Mcp-Session-Id")

	_, out = postJSONRPC(t, ts.URL+"/mcp", mcpSession, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "create_session",
			"arguments": map[string]any{},
		},
	})
	result, _ = out["result"].(map[string]any)
	if isErr, _ := result["isError"].(bool); isErr {
		t.Fatalf("create_session failed: %v", out)
	}
	if sessions.Count() != 1 {
		t.Errorf("Expected the MCP call to create a session through the API, got %d sessions", sessions.Count())
	}
}
