package ports

import "github.com/castkit/castd/pkg/log"

// Flip selects a mirror transform applied to the rendered video.
type Flip int

// Flip values.
const (
	FlipNone Flip = iota
	FlipHorizontal
	FlipVertical
	FlipInvert // 180 degree rotation
)

// String returns the single-letter selector for the flip mode.
func (f Flip) String() string {
	switch f {
	case FlipHorizontal:
		return "H"
	case FlipVertical:
		return "V"
	case FlipInvert:
		return "I"
	default:
		return "none"
	}
}

// Rotate selects a quarter-turn rotation applied to the rendered video.
type Rotate int

// Rotate values.
const (
	RotateNone Rotate = iota
	RotateLeft  // 90 degrees counter-clockwise
	RotateRight // 90 degrees clockwise
)

// String returns the single-letter selector for the rotation.
func (r Rotate) String() string {
	switch r {
	case RotateLeft:
		return "L"
	case RotateRight:
		return "R"
	default:
		return "none"
	}
}

// RendererEvent is delivered on a video renderer's event source when its
// pipeline needs the serve cycle recycled (pipeline end-of-stream or error).
type RendererEvent struct {
	Reason string
	Err    error
}

// VideoRenderer is the video output pipeline.
type VideoRenderer interface {
	// Start launches the render pipeline.
	Start()

	// Render displays one video frame.
	Render(pts uint64, payload []byte, kind VideoFrameKind)

	// Flush drops buffered frames.
	Flush()

	// UpdateBackground adjusts the idle-background hint as sessions come
	// and go; delta is +1 on open, -1 on close.
	UpdateBackground(delta int)

	// Events exposes the renderer-owned event source watched by the
	// lifecycle controller while video is enabled.
	Events() <-chan RendererEvent

	// Destroy stops the pipeline and releases it. Idempotent.
	Destroy()
}

// AudioRenderer is the audio output pipeline.
type AudioRenderer interface {
	// Start launches the render pipeline.
	Start()

	// Render plays one audio frame.
	Render(pts uint64, payload []byte)

	// SetVolume applies a client volume change.
	SetVolume(level float32)

	// Flush drops buffered frames.
	Flush()

	// Destroy stops the pipeline and releases it. Idempotent.
	Destroy()
}

// RenderLogger is the logging sink shared by the renderers for one serve
// cycle. It is created and destroyed by the orchestrator.
type RenderLogger interface {
	log.Logger

	// Destroy releases the sink. Idempotent.
	Destroy()
}

// VideoRendererFactory constructs a video renderer bound to the given sink.
type VideoRendererFactory func(logger RenderLogger, name string, flip Flip, rotate Rotate, sink string) (VideoRenderer, error)

// AudioRendererFactory constructs an audio renderer. The video renderer may
// be nil when video is disabled.
type AudioRendererFactory func(logger RenderLogger, video VideoRenderer, sink string) (AudioRenderer, error)

// RenderLoggerFactory constructs the per-cycle logging sink.
type RenderLoggerFactory func(debug bool) (RenderLogger, error)
