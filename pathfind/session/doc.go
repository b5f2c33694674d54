// Package session keeps the in-memory registry of pathfinding sessions.
//
// Each session owns one engine built from a scenario preset. Sessions are
// identified by 4-character hex IDs, looked up case-insensitively, and are
// dropped by CleanupExpiredSessions once idle for longer than a maximum
// age. Removing a session stops its active search run.
package session
