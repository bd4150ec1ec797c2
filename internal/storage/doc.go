// Package storage persists the weekly schedule and an append-only journal of
// timer events.
//
// Drivers:
//   - "memory": process-local, nothing survives a restart
//   - "file": JSON schedule snapshot + JSON Lines event journal
//   - "sqlite": SQLite database file (build tag sqlite)
package storage
