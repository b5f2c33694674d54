// Package websocket streams live search events to browser clients.
//
// Architecture:
//
// A central Hub owns every connection. Clients subscribe to one session
// through the query string (/ws?session=ab12) and receive only that
// session's events. The sessions map is only touched by the Run goroutine;
// Publish hands messages over a buffered channel and never blocks, so a
// slow browser cannot stall the search worker. Events that do not fit are
// dropped and counted in astar_ws_events_dropped_total.
//
// Message Protocol:
//
// Every frame is one JSON object:
//
//	{"session_id": "ab12", "event": "step", "data": {...}, "timestamp": "..."}
//
// Events are state_update (sent on connect and after every edit), step,
// finished and run_control. Incoming frames are read only to keep the
// connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(metrics)
//	go hub.Run(ctx)
//	svc := service.NewPathfinderService(sessions, configs, service.WithPublisher(hub))
package websocket
