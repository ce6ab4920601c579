package ports

// LogLevel classifies messages reported by collaborators through the
// SessionEvents bridge.
type LogLevel int

// Collaborator log levels.
const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

// AudioFormat is the format code a client announces when it opens an audio
// stream. The values are the codes used on the wire.
type AudioFormat uint32

// Known audio format codes.
const (
	AudioFormatPCM    AudioFormat = 0x0
	AudioFormatALAC   AudioFormat = 0x40000
	AudioFormatAAC    AudioFormat = 0x400000
	AudioFormatAACELD AudioFormat = 0x1000000
)

// String returns the conventional name of the format.
func (f AudioFormat) String() string {
	switch f {
	case AudioFormatPCM:
		return "PCM"
	case AudioFormatALAC:
		return "ALAC"
	case AudioFormatAAC:
		return "AAC"
	case AudioFormatAACELD:
		return "AAC_ELD"
	default:
		return "UNKNOWN"
	}
}

// VideoFrameKind distinguishes the frame types the engine hands over.
type VideoFrameKind byte

// SessionEvents is implemented by the lifecycle core and invoked by the
// protocol engine. Calls may arrive from engine-owned goroutines; every
// implementation must be safe for concurrent use.
type SessionEvents interface {
	// ConnectionOpened reports a new client session.
	ConnectionOpened()

	// ConnectionClosed reports a closed client session.
	ConnectionClosed()

	// AudioFrame delivers a decoded-timestamp audio payload.
	AudioFrame(pts uint64, payload []byte)

	// VideoFrame delivers a video payload of the given kind.
	VideoFrame(pts uint64, payload []byte, kind VideoFrameKind)

	// AudioFlush asks the audio pipeline to drop buffered data.
	AudioFlush()

	// VideoFlush asks the video pipeline to drop buffered data.
	VideoFlush()

	// VolumeChanged reports a client volume adjustment.
	VolumeChanged(level float32)

	// AudioFormatAnnounced reports the format of a new audio stream.
	AudioFormatAnnounced(format AudioFormat)

	// LogMessage forwards a collaborator log line.
	LogMessage(level LogLevel, msg string)
}

// ProtocolEngine is the streaming session engine. Configure* calls must
// happen before Start; zero values mean "use the engine default" for
// display settings and "assign dynamically" for ports.
type ProtocolEngine interface {
	// ConfigureDisplay pushes the desired display geometry and limits.
	ConfigureDisplay(width, height, refresh, maxFPS uint16, overscan bool)

	// ConfigurePorts pushes the TCP and UDP port triples.
	ConfigurePorts(tcp, udp [3]uint16)

	// SetLogLevel adjusts the engine's log verbosity floor.
	SetLogLevel(level LogLevel)

	// Start begins listening. A zero requested port lets the engine pick;
	// the bound primary port is returned.
	Start(requested uint16) (uint16, error)

	// Port returns the engine's current primary port.
	Port() uint16

	// SetPort records the bound primary port back into the engine.
	SetPort(port uint16)

	// Destroy stops the engine and releases its resources. Idempotent.
	Destroy()
}

// EngineFactory constructs a protocol engine with the given concurrent
// session capacity and event bridge.
type EngineFactory func(capacity int, events SessionEvents) (ProtocolEngine, error)
