// Command astar-playground starts the A* pathfinding playground server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, the
//     WebSocket event stream, Prometheus metrics and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server against an existing API, or spins up
//     an internal loopback API when none is given
//
// Flags control host/port, scenario directory, logging and optional ngrok
// tunneling for easy external access during development. Every flag can
// also be set from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/astar-playground/api"
	"github.com/wricardo/astar-playground/metrics"
	"github.com/wricardo/astar-playground/pathfind/config"
	"github.com/wricardo/astar-playground/pathfind/service"
	"github.com/wricardo/astar-playground/pathfind/session"
	"github.com/wricardo/astar-playground/transport/mcp"
	"github.com/wricardo/astar-playground/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "A* Pathfinding Playground"
)

var log = log15.New("module", "main")

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if err := setupLogging(cmd, os.Stderr); err != nil {
			return ctx, err
		}
		if envErr == nil {
			log.Debug("loaded environment variables from .env file")
		} else if !errors.Is(envErr, os.ErrNotExist) {
			log.Warn("error loading .env file", "err", envErr)
		}
		return ctx, nil
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Crit("exiting", "err", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags on the root apply to every
// subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "astar-playground",
		Usage:          "interactive A* pathfinding over HTTP, WebSocket and MCP",
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing scenario presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level: debug, info, warn, error or crit",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "shorthand for --log-level debug",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human readable log output instead of logfmt",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with API, WebSocket, metrics and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain (optional)",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
					&cli.DurationFlag{
						Name:    "session-ttl",
						Value:   24 * time.Hour,
						Usage:   "remove sessions idle for longer than this",
						Sources: cli.EnvVars("SESSION_TTL"),
					},
					&cli.DurationFlag{
						Name:  "cleanup-interval",
						Value: time.Hour,
						Usage: "how often expired sessions are removed",
					},
				},
				Action: runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "REST API to proxy; an internal loopback server is started when empty",
						Sources: cli.EnvVars("API_URL"),
					},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return err
				},
			},
		},
	}
}

// setupLogging installs the root log15 handler.
func setupLogging(cmd *cli.Command, w io.Writer) error {
	level := cmd.String("log-level")
	if cmd.Bool("debug") {
		level = "debug"
	}
	lvl, err := log15.LvlFromString(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	format := log15.LogfmtFormat()
	if cmd.Bool("pretty") {
		format = log15.TerminalFormat()
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return nil
}

// services bundles the long-lived components shared by both modes.
type services struct {
	configs  *config.Manager
	sessions *session.Manager
	metrics  *metrics.Metrics
	hub      *websocket.Hub
	service  service.PathfinderService
}

// initializeServices wires the config and session managers, the metrics
// registry, the WebSocket hub and the pathfinder service.
func initializeServices(configDir string) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	m := metrics.New()
	hub := websocket.NewHub(m)
	sessionManager := session.NewManager()

	svc := service.NewPathfinderService(sessionManager, configManager,
		service.WithPublisher(hub),
		service.WithMetrics(m),
	)

	return &services{
		configs:  configManager,
		sessions: sessionManager,
		metrics:  m,
		hub:      hub,
		service:  svc,
	}, nil
}

// newHTTPHandler mounts the REST API, WebSocket, metrics and the streamable
// MCP endpoint. The MCP tools call back into the API at baseURL.
func newHTTPHandler(s *services, baseURL string) http.Handler {
	apiServer := api.NewServer(s.service, s.hub, s.metrics)

	mcpClient := mcp.NewClient(baseURL)
	apiServer.Handle("/mcp", server.NewStreamableHTTPServer(
		mcpClient.GetMCPServer(),
		server.WithEndpointPath("/mcp"),
	))
	return apiServer
}

// runServer starts the HTTP server, the hub, the optional ngrok tunnel and
// the session cleanup loop, and shuts them all down when ctx ends.
func runServer(ctx context.Context, cmd *cli.Command) error {
	s, err := initializeServices(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cmd.String("host"), fmt.Sprint(cmd.Int("port")))
	handler := newHTTPHandler(s, "http://"+addr)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// runs started with wait=true hold the response open
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"api", "http://"+addr+"/api",
			"ws", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp",
			"metrics", "http://"+addr+"/metrics")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", "err", err)
		}
		for _, sess := range s.sessions.List() {
			sess.StopRun()
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler)
		})
	}

	g.Go(func() error {
		sessionCleanupRoutine(ctx, s.sessions, s.metrics, cmd.Duration("cleanup-interval"), cmd.Duration("session-ttl"))
		return nil
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// serveNgrok serves handler through an ngrok tunnel until ctx ends. A
// missing token only disables the tunnel.
func serveNgrok(ctx context.Context, authToken, domain string, handler http.Handler) error {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info("starting ngrok tunnel", "domain", domain)
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return nil
	}

	url := tun.URL()
	log.Info("ngrok tunnel established", "url", url, "api", url+"/api", "mcp", url+"/mcp")

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
	return nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl and refreshes the active session gauge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, m *metrics.Metrics, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info("cleaned up expired sessions", "removed", removed)
			}
			m.SetActiveSessions(manager.Count())
		}
	}
}

// runStdioMCP runs an MCP stdio server. With --api-url it proxies that API;
// otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := strings.TrimRight(cmd.String("api-url"), "/")

	g, ctx := errgroup.WithContext(ctx)

	if baseURL == "" {
		s, err := initializeServices(cmd.String("config-dir"))
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()
		log.Info("starting internal HTTP server for MCP stdio", "url", baseURL)

		httpServer := &http.Server{Handler: api.NewServer(s.service, s.hub, s.metrics)}
		g.Go(func() error {
			return s.hub.Run(ctx)
		})
		g.Go(func() error {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("internal HTTP server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return httpServer.Close()
		})
	}

	mcpClient := mcp.NewClient(baseURL)
	g.Go(func() error {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := mcpClient.WaitForAPI(waitCtx); err != nil {
			return err
		}

		log.Info("MCP stdio server ready", "api", baseURL)
		err := server.NewStdioServer(mcpClient.GetMCPServer()).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("MCP stdio server error: %w", err)
		}
		// stdin closed: stop the internal server too
		return errStdioClosed
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errStdioClosed) {
		return err
	}
	return nil
}

var errStdioClosed = errors.New("stdio closed")
