// Package dev provides in-process development implementations of the
// collaborator ports, so the daemon runs end to end without the external
// protocol engine, GStreamer pipelines, or an mDNS responder. The engine
// binds a real TCP listener and reports accepted connections through the
// callback bridge; renderers and the registrar log what they would do.
package dev

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/internal/server"
	"github.com/castkit/castd/pkg/log"
)

// Collaborators builds the full development collaborator set.
func Collaborators(logger log.Logger) server.Collaborators {
	return server.Collaborators{
		Engine:       NewEngine,
		RenderLogger: NewRenderLogger(logger),
		Video:        NewVideoRenderer,
		Audio:        NewAudioRenderer,
		Discovery:    NewRegistrarFactory(logger),
	}
}

// Engine is a loopback protocol engine: a TCP listener whose accepted
// connections drive the session callbacks. Payload handling is out of
// scope; connections are drained until the peer closes.
type Engine struct {
	capacity int
	events   ports.SessionEvents

	mu       sync.Mutex
	port     uint16
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
}

// NewEngine is a ports.EngineFactory.
func NewEngine(capacity int, events ports.SessionEvents) (ports.ProtocolEngine, error) {
	if events == nil {
		return nil, errors.New("dev engine: nil event bridge")
	}
	return &Engine{
		capacity: capacity,
		events:   events,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// ConfigureDisplay implements ports.ProtocolEngine. The loopback engine
// has no client to forward the geometry to.
func (e *Engine) ConfigureDisplay(width, height, refresh, maxFPS uint16, overscan bool) {}

// ConfigurePorts implements ports.ProtocolEngine.
func (e *Engine) ConfigurePorts(tcp, udp [3]uint16) {
	e.mu.Lock()
	e.port = tcp[0]
	e.mu.Unlock()
}

// SetLogLevel implements ports.ProtocolEngine.
func (e *Engine) SetLogLevel(level ports.LogLevel) {}

// Start implements ports.ProtocolEngine. A zero requested port binds an
// ephemeral one.
func (e *Engine) Start(requested uint16) (uint16, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", requested))
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	e.listener = listener
	e.closed = false
	e.mu.Unlock()

	go e.acceptLoop(listener)

	addr := listener.Addr().(*net.TCPAddr)
	return uint16(addr.Port), nil
}

func (e *Engine) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		e.mu.Lock()
		if e.closed || len(e.conns) >= e.capacity {
			e.mu.Unlock()
			conn.Close()
			continue
		}
		e.conns[conn] = struct{}{}
		e.mu.Unlock()

		e.events.ConnectionOpened()
		go e.drain(conn)
	}
}

func (e *Engine) drain(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}
	e.mu.Lock()
	_, tracked := e.conns[conn]
	delete(e.conns, conn)
	e.mu.Unlock()
	conn.Close()
	if tracked {
		e.events.ConnectionClosed()
	}
}

// Port implements ports.ProtocolEngine.
func (e *Engine) Port() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port
}

// SetPort implements ports.ProtocolEngine.
func (e *Engine) SetPort(port uint16) {
	e.mu.Lock()
	e.port = port
	e.mu.Unlock()
}

// Destroy implements ports.ProtocolEngine. Closing the tracked
// connections makes their drain goroutines report the session closes.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	listener := e.listener
	e.listener = nil
	conns := make([]net.Conn, 0, len(e.conns))
	for conn := range e.conns {
		conns = append(conns, conn)
	}
	e.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
}

// renderLogger adapts the process logger into the per-cycle render sink.
type renderLogger struct {
	log.Logger
}

// NewRenderLogger returns a factory producing render sinks that forward to
// the given logger.
func NewRenderLogger(logger log.Logger) ports.RenderLoggerFactory {
	return func(debug bool) (ports.RenderLogger, error) {
		return &renderLogger{Logger: logger}, nil
	}
}

// Destroy implements ports.RenderLogger.
func (r *renderLogger) Destroy() {}

// VideoRenderer logs pipeline activity instead of displaying it.
type VideoRenderer struct {
	logger ports.RenderLogger
	events chan ports.RendererEvent

	mu         sync.Mutex
	background int
	destroyed  bool
}

// NewVideoRenderer is a ports.VideoRendererFactory.
func NewVideoRenderer(logger ports.RenderLogger, name string, flip ports.Flip, rotate ports.Rotate, sink string) (ports.VideoRenderer, error) {
	if sink == "" {
		return nil, errors.New("dev video renderer: empty sink")
	}
	logger.Debug("video renderer ready",
		log.String("name", name),
		log.String("sink", sink),
		log.String("flip", flip.String()),
		log.String("rotate", rotate.String()),
	)
	return &VideoRenderer{
		logger: logger,
		events: make(chan ports.RendererEvent),
	}, nil
}

// Start implements ports.VideoRenderer.
func (v *VideoRenderer) Start() {
	v.logger.Debug("video pipeline started")
}

// Render implements ports.VideoRenderer.
func (v *VideoRenderer) Render(pts uint64, payload []byte, kind ports.VideoFrameKind) {
	v.logger.Debug("video frame",
		log.Uint("pts", uint(pts)),
		log.Int("bytes", len(payload)),
		log.Int("kind", int(kind)),
	)
}

// Flush implements ports.VideoRenderer.
func (v *VideoRenderer) Flush() {}

// UpdateBackground implements ports.VideoRenderer.
func (v *VideoRenderer) UpdateBackground(delta int) {
	v.mu.Lock()
	v.background += delta
	v.mu.Unlock()
}

// Events implements ports.VideoRenderer. The development pipeline never
// raises events; the channel closes on Destroy.
func (v *VideoRenderer) Events() <-chan ports.RendererEvent {
	return v.events
}

// Destroy implements ports.VideoRenderer.
func (v *VideoRenderer) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.destroyed = true
	close(v.events)
}

// AudioRenderer logs pipeline activity instead of playing it.
type AudioRenderer struct {
	logger ports.RenderLogger
}

// NewAudioRenderer is a ports.AudioRendererFactory.
func NewAudioRenderer(logger ports.RenderLogger, video ports.VideoRenderer, sink string) (ports.AudioRenderer, error) {
	if sink == "" {
		return nil, errors.New("dev audio renderer: empty sink")
	}
	logger.Debug("audio renderer ready", log.String("sink", sink))
	return &AudioRenderer{logger: logger}, nil
}

// Start implements ports.AudioRenderer.
func (a *AudioRenderer) Start() {
	a.logger.Debug("audio pipeline started")
}

// Render implements ports.AudioRenderer.
func (a *AudioRenderer) Render(pts uint64, payload []byte) {
	a.logger.Debug("audio frame",
		log.Uint("pts", uint(pts)),
		log.Int("bytes", len(payload)),
	)
}

// SetVolume implements ports.AudioRenderer.
func (a *AudioRenderer) SetVolume(level float32) {
	a.logger.Debug("volume changed", log.Any("level", level))
}

// Flush implements ports.AudioRenderer.
func (a *AudioRenderer) Flush() {}

// Destroy implements ports.AudioRenderer.
func (a *AudioRenderer) Destroy() {}

// Registrar records registrations in memory and logs them.
type Registrar struct {
	logger log.Logger
	name   string
	id     hwaddr.DeviceID

	mu       sync.Mutex
	services map[ports.ServiceKind]uint16
}

// NewRegistrarFactory returns a ports.RegistrarFactory whose registrars
// log through the given logger.
func NewRegistrarFactory(logger log.Logger) ports.RegistrarFactory {
	return func(name string, id hwaddr.DeviceID) (ports.Registrar, error) {
		if name == "" {
			return nil, errors.New("dev registrar: empty service name")
		}
		return &Registrar{
			logger:   logger,
			name:     name,
			id:       id,
			services: make(map[ports.ServiceKind]uint16),
		}, nil
	}
}

// Register implements ports.Registrar.
func (r *Registrar) Register(kind ports.ServiceKind, port uint16) {
	r.mu.Lock()
	r.services[kind] = port
	r.mu.Unlock()
	r.logger.Info("service registered",
		log.String("service", kind.String()),
		log.String("name", r.name),
		log.String("device_id", r.id.String()),
		log.Uint16("port", port),
	)
}

// Unregister implements ports.Registrar.
func (r *Registrar) Unregister(kind ports.ServiceKind) {
	r.mu.Lock()
	_, present := r.services[kind]
	delete(r.services, kind)
	r.mu.Unlock()
	if present {
		r.logger.Info("service unregistered", log.String("service", kind.String()))
	}
}

// Destroy implements ports.Registrar.
func (r *Registrar) Destroy() {
	r.mu.Lock()
	r.services = make(map[ports.ServiceKind]uint16)
	r.mu.Unlock()
}
