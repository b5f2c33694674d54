// Package service provides the session-level operations of the A*
// playground.
//
// The service package implements:
//   - Multi-session grid management
//   - Scenario loading through a ConfigManager
//   - Grid edits (walls, endpoints, diagonal moves, mazes)
//   - Background search runs with pause, resume and stop
//
// Core Interfaces:
//
// PathfinderService is the main interface used by the REST, WebSocket and
// MCP transports. SessionManager stores sessions and ConfigManager loads
// scenario presets. A Publisher receives live events for a session.
//
// Architecture:
//
// Each session owns one engine and at most one run at a time. StartRun
// hands the search to the engine's worker goroutine and returns; the
// worker's events fan out to the metrics collectors and the Publisher:
//
//	step          StepPayload, after every expansion
//	finished      *RunInfo, once per run
//	state_update  *GridState, after every edit
//	run_control   ControlPayload, after pause, resume and stop
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewPathfinderService(sessions, configs,
//		service.WithPublisher(hub),
//		service.WithMetrics(metrics.New()),
//	)
//
//	info, err := svc.CreateSession(ctx, "maze")
//	if err != nil {
//		log.Fatal(err)
//	}
//	run, err := svc.StartRun(ctx, info.ID, service.RunRequest{Wait: true})
package service
