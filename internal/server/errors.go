package server

import "errors"

// Startup failure classes. Each orchestrator step that can fail wraps one
// of these sentinels, so callers can map a failed cycle to a distinct
// process exit code with errors.Is.
var (
	// ErrEngineInit is returned when the protocol engine cannot be
	// initialized or its listener cannot start.
	ErrEngineInit = errors.New("castd: protocol engine init failed")

	// ErrRenderLoggerInit is returned when the render logging sink cannot
	// be created.
	ErrRenderLoggerInit = errors.New("castd: render logger init failed")

	// ErrVideoInit is returned when the video renderer cannot be created.
	ErrVideoInit = errors.New("castd: video renderer init failed")

	// ErrAudioInit is returned when the audio renderer cannot be created.
	ErrAudioInit = errors.New("castd: audio renderer init failed")

	// ErrDiscoveryInit is returned when the discovery registrar cannot be
	// created or the advertised ports are unusable.
	ErrDiscoveryInit = errors.New("castd: discovery init failed")
)
