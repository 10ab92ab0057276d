// Package internal documents the calendar events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: event and notification rules, independent of storage
// - storage: PostgreSQL repositories and migrations (pgx)
// - jobs: River background workers (notification retention)
// - client: HTTP wrapper over /api/events used by the CLI
// - config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
