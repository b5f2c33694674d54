// Package mcp exposes the pathfinding playground to AI agents over the
// Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against
// the REST API, so an agent and a browser share the same sessions. Tool
// arguments are coerced loosely, so "3", 3 and 3.0 are all accepted as
// coordinates.
//
// MCP Tools:
//   - create_session, list_sessions, list_configs
//   - grid_state, render_grid
//   - set_block, clear_blocks, random_blocks, apply_maze
//   - set_start, set_destination, set_diagonal, reset_search
//   - start_run, run_status, pause_run, resume_run, stop_run
//   - instructions
//
// Transport Modes:
//
// The server can run over stdio for local MCP clients, or be mounted on the
// HTTP server at /mcp using the streamable HTTP transport.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.WaitForAPI(ctx); err != nil {
//		return err
//	}
//	server.ServeStdio(client.GetMCPServer())
package mcp
