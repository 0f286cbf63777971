// Package engine implements the agent loop: the provider↔tools cycle that
// turns one user prompt into a sequence of durable messages and real-time
// agent events (spec.md §4.5). It knows nothing about sessions, transports,
// or persistence — those are the turn handler's job (pkg/turn).
package engine
