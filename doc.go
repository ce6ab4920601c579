// Package castd is the launch, configuration-validation and
// lifecycle-control layer for an AirPlay-style screen mirroring receiver.
//
// The daemon validates its legacy single-dash option grammar into an
// immutable configuration record, provisions a 6-octet device identifier,
// brings up the streaming collaborators in dependency order, and runs a
// single-threaded lifecycle loop that relaunches the service after a
// configurable idle span and shuts down cleanly on SIGINT/SIGTERM.
//
// The streaming protocol engine, the A/V render pipelines and the
// discovery registrar are external collaborators consumed through the
// interfaces in internal/ports.
package castd
