package server

import (
	"fmt"
	"sync"

	"github.com/castkit/castd/internal/metrics"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/pkg/log"
)

// Bridge implements ports.SessionEvents for the protocol engine. It holds
// back-references to the shared activity state and the renderers of the
// current serve cycle; it owns neither. The engine may invoke it from its
// own goroutines, so renderer references are guarded.
type Bridge struct {
	activity *Activity
	logger   log.Logger
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	video ports.VideoRenderer
	audio ports.AudioRenderer
}

// NewBridge creates a bridge over the given activity state.
func NewBridge(activity *Activity, logger log.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{
		activity: activity,
		logger:   logger,
		metrics:  m,
	}
}

// bind attaches the renderers of the cycle being started. Either may be nil.
func (b *Bridge) bind(video ports.VideoRenderer, audio ports.AudioRenderer) {
	b.mu.Lock()
	b.video = video
	b.audio = audio
	b.mu.Unlock()
}

// release detaches the renderers during teardown.
func (b *Bridge) release() {
	b.bind(nil, nil)
}

func (b *Bridge) renderers() (ports.VideoRenderer, ports.AudioRenderer) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.video, b.audio
}

// ConnectionOpened implements ports.SessionEvents.
func (b *Bridge) ConnectionOpened() {
	b.activity.SessionOpened()
	b.metrics.SessionsOpen.Add(1)
	b.metrics.SessionsTotal.Add(1)
	b.logger.Info("open connections", log.Int("count", b.activity.Open()))
	if video, _ := b.renderers(); video != nil {
		video.UpdateBackground(1)
	}
}

// ConnectionClosed implements ports.SessionEvents.
func (b *Bridge) ConnectionClosed() {
	if video, _ := b.renderers(); video != nil {
		video.UpdateBackground(-1)
	}
	b.activity.SessionClosed()
	b.metrics.SessionsOpen.Add(-1)
	b.logger.Info("open connections", log.Int("count", b.activity.Open()))
}

// AudioFrame implements ports.SessionEvents.
func (b *Bridge) AudioFrame(pts uint64, payload []byte) {
	if _, audio := b.renderers(); audio != nil {
		audio.Render(pts, payload)
		b.metrics.AudioFrames.Add(1)
	}
}

// VideoFrame implements ports.SessionEvents.
func (b *Bridge) VideoFrame(pts uint64, payload []byte, kind ports.VideoFrameKind) {
	if video, _ := b.renderers(); video != nil {
		video.Render(pts, payload, kind)
		b.metrics.VideoFrames.Add(1)
	}
}

// AudioFlush implements ports.SessionEvents.
func (b *Bridge) AudioFlush() {
	if _, audio := b.renderers(); audio != nil {
		audio.Flush()
	}
}

// VideoFlush implements ports.SessionEvents.
func (b *Bridge) VideoFlush() {
	if video, _ := b.renderers(); video != nil {
		video.Flush()
	}
}

// VolumeChanged implements ports.SessionEvents.
func (b *Bridge) VolumeChanged(level float32) {
	if _, audio := b.renderers(); audio != nil {
		audio.SetVolume(level)
	}
}

// AudioFormatAnnounced implements ports.SessionEvents.
func (b *Bridge) AudioFormatAnnounced(format ports.AudioFormat) {
	b.logger.Info("new audio stream",
		log.String("code", fmt.Sprintf("0x%X", uint32(format))),
		log.String("format", format.String()),
	)
}

// LogMessage implements ports.SessionEvents.
func (b *Bridge) LogMessage(level ports.LogLevel, msg string) {
	switch level {
	case ports.LogDebug:
		b.logger.Debug(msg)
	case ports.LogWarning:
		b.logger.Warn(msg)
	case ports.LogError:
		b.logger.Error(msg)
	default:
		b.logger.Info(msg)
	}
}
