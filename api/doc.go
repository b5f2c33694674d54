// Package api provides the HTTP REST API of the A* playground.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session from a scenario ({config_id})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session, stopping its run
//
// Grid:
//   - GET /api/sessions/{id}/state - Snapshot (?cells=true adds per-cell costs)
//   - GET /api/sessions/{id}/render - ASCII dump as text/plain
//   - POST /api/sessions/{id}/blocks - Set one cell ({x, y, blocked})
//   - POST /api/sessions/{id}/blocks/toggle - Toggle one cell ({x, y})
//   - POST /api/sessions/{id}/blocks/random - Scatter walls ({amount, seed})
//   - DELETE /api/sessions/{id}/blocks - Remove every wall
//   - POST /api/sessions/{id}/maze - Generate a maze ({seed, braid})
//   - PUT /api/sessions/{id}/start, /destination - Move an endpoint ({x, y})
//   - PUT /api/sessions/{id}/diagonal - Allow diagonal moves ({allow})
//   - POST /api/sessions/{id}/reset - Clear the search overlay
//
// Runs:
//   - POST /api/sessions/{id}/run - Start a search ({step_delay_ms, wait})
//   - GET /api/sessions/{id}/run - Current or last run
//   - POST /api/sessions/{id}/run/pause|resume|stop
//
// Configuration:
//   - GET /api/configs - List scenario presets
//   - GET /api/configs/{name} - Get one preset
//
// Other:
//   - GET /api/health, GET /metrics, GET /ws?session={id}
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the error kind:
// 400 for invalid input, 404 for unknown sessions, configs or runs, 409
// when the request conflicts with the run state, and 500 otherwise.
//
//	{"error": "set block: search run is active"}
package api
