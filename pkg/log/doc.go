// Package log defines the structured logging interface used throughout
// castd, together with a zerolog-backed implementation and a noop logger
// for tests. Collaborators (the protocol engine and renderers) report
// messages through the same interface via the bridge in internal/server.
package log
