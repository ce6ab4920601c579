package server

import (
	"errors"
	"sync"

	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/pkg/log"
)

// callLog records collaborator lifecycle calls in order across all fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.calls...)
}

type fakeEngine struct {
	log    *callLog
	events ports.SessionEvents

	mu        sync.Mutex
	width     uint16
	height    uint16
	refresh   uint16
	maxFPS    uint16
	overscan  bool
	tcp, udp  [3]uint16
	level     ports.LogLevel
	port      uint16
	boundPort uint16
	startErr  error
	started   bool
	destroyed int
}

func (e *fakeEngine) ConfigureDisplay(width, height, refresh, maxFPS uint16, overscan bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height, e.refresh, e.maxFPS, e.overscan = width, height, refresh, maxFPS, overscan
}

func (e *fakeEngine) ConfigurePorts(tcp, udp [3]uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tcp, e.udp = tcp, udp
	e.port = tcp[0]
}

func (e *fakeEngine) SetLogLevel(level ports.LogLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level
}

func (e *fakeEngine) Start(requested uint16) (uint16, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return 0, e.startErr
	}
	e.started = true
	if e.boundPort != 0 {
		return e.boundPort, nil
	}
	if requested != 0 {
		return requested, nil
	}
	return 41100, nil
}

func (e *fakeEngine) Port() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port
}

func (e *fakeEngine) SetPort(port uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.port = port
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	e.destroyed++
	e.mu.Unlock()
	e.log.add("engine.destroy")
}

type fakeRenderLogger struct {
	log.NoopLogger
	log       *callLog
	destroyed int
}

func (r *fakeRenderLogger) Destroy() {
	r.destroyed++
	r.log.add("renderlogger.destroy")
}

type fakeVideo struct {
	log    *callLog
	events chan ports.RendererEvent

	mu         sync.Mutex
	started    bool
	background int
	frames     int
	flushes    int
	destroyed  int
}

func (v *fakeVideo) Start() {
	v.mu.Lock()
	v.started = true
	v.mu.Unlock()
}

func (v *fakeVideo) Render(pts uint64, payload []byte, kind ports.VideoFrameKind) {
	v.mu.Lock()
	v.frames++
	v.mu.Unlock()
}

func (v *fakeVideo) Flush() {
	v.mu.Lock()
	v.flushes++
	v.mu.Unlock()
}

func (v *fakeVideo) UpdateBackground(delta int) {
	v.mu.Lock()
	v.background += delta
	v.mu.Unlock()
}

func (v *fakeVideo) Events() <-chan ports.RendererEvent {
	return v.events
}

func (v *fakeVideo) Destroy() {
	v.mu.Lock()
	v.destroyed++
	v.mu.Unlock()
	v.log.add("video.destroy")
}

type fakeAudio struct {
	log *callLog

	mu        sync.Mutex
	started   bool
	frames    int
	flushes   int
	volume    float32
	destroyed int
}

func (a *fakeAudio) Start() {
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
}

func (a *fakeAudio) Render(pts uint64, payload []byte) {
	a.mu.Lock()
	a.frames++
	a.mu.Unlock()
}

func (a *fakeAudio) SetVolume(level float32) {
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
}

func (a *fakeAudio) Flush() {
	a.mu.Lock()
	a.flushes++
	a.mu.Unlock()
}

func (a *fakeAudio) Destroy() {
	a.mu.Lock()
	a.destroyed++
	a.mu.Unlock()
	a.log.add("audio.destroy")
}

type fakeRegistrar struct {
	log *callLog

	mu           sync.Mutex
	registered   map[ports.ServiceKind]uint16
	unregistered []ports.ServiceKind
	destroyed    int
}

func (r *fakeRegistrar) Register(kind ports.ServiceKind, port uint16) {
	r.mu.Lock()
	r.registered[kind] = port
	r.mu.Unlock()
}

func (r *fakeRegistrar) Unregister(kind ports.ServiceKind) {
	r.mu.Lock()
	r.unregistered = append(r.unregistered, kind)
	r.mu.Unlock()
	r.log.add("registrar.unregister." + kind.String())
}

func (r *fakeRegistrar) Destroy() {
	r.mu.Lock()
	r.destroyed++
	r.mu.Unlock()
	r.log.add("registrar.destroy")
}

func (r *fakeRegistrar) port(kind ports.ServiceKind) (uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.registered[kind]
	return p, ok
}

// fakeCollab builds a Collaborators set with injectable failures. Factory
// results are retained so tests can inspect them after the cycle.
type fakeCollab struct {
	log *callLog

	engineErr    error
	loggerErr    error
	videoErr     error
	audioErr     error
	discoveryErr error
	startErr     error
	boundPort    uint16

	// engineErrAfter fails the engine factory once n successful engines
	// have been created; 0 means never.
	engineErrAfter int

	mu        sync.Mutex
	engines   []*fakeEngine
	video     *fakeVideo
	audio     *fakeAudio
	registrar *fakeRegistrar
}

func newFakeCollab() *fakeCollab {
	return &fakeCollab{log: &callLog{}}
}

func (f *fakeCollab) collaborators() Collaborators {
	return Collaborators{
		Engine: func(capacity int, events ports.SessionEvents) (ports.ProtocolEngine, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.engineErr != nil {
				return nil, f.engineErr
			}
			if f.engineErrAfter > 0 && len(f.engines) >= f.engineErrAfter {
				return nil, errors.New("engine factory exhausted")
			}
			engine := &fakeEngine{
				log:       f.log,
				events:    events,
				boundPort: f.boundPort,
				startErr:  f.startErr,
			}
			f.engines = append(f.engines, engine)
			return engine, nil
		},
		RenderLogger: func(debug bool) (ports.RenderLogger, error) {
			if f.loggerErr != nil {
				return nil, f.loggerErr
			}
			return &fakeRenderLogger{log: f.log}, nil
		},
		Video: func(logger ports.RenderLogger, name string, flip ports.Flip, rotate ports.Rotate, sink string) (ports.VideoRenderer, error) {
			if f.videoErr != nil {
				return nil, f.videoErr
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.video = &fakeVideo{log: f.log, events: make(chan ports.RendererEvent, 1)}
			return f.video, nil
		},
		Audio: func(logger ports.RenderLogger, video ports.VideoRenderer, sink string) (ports.AudioRenderer, error) {
			if f.audioErr != nil {
				return nil, f.audioErr
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.audio = &fakeAudio{log: f.log}
			return f.audio, nil
		},
		Discovery: func(name string, id hwaddr.DeviceID) (ports.Registrar, error) {
			if f.discoveryErr != nil {
				return nil, f.discoveryErr
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.registrar = &fakeRegistrar{log: f.log, registered: make(map[ports.ServiceKind]uint16)}
			return f.registrar, nil
		},
	}
}

func (f *fakeCollab) engineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (f *fakeCollab) videoRenderer() *fakeVideo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.video
}

func (f *fakeCollab) lastEngine() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}
