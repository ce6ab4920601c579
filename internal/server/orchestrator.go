package server

import (
	"fmt"

	"github.com/castkit/castd/internal/cliconfig"
	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/pkg/log"
)

// sessionCapacity bounds concurrent client sessions in the engine.
const sessionCapacity = 10

// Collaborators are the factories for the external components a serve
// cycle brings up. cmd/castd injects the real set; tests inject fakes.
type Collaborators struct {
	Engine       ports.EngineFactory
	RenderLogger ports.RenderLoggerFactory
	Video        ports.VideoRendererFactory
	Audio        ports.AudioRendererFactory
	Discovery    ports.RegistrarFactory
}

// Handles are the live collaborator handles of one serve cycle. They are
// owned by the orchestrator from Start until Stop; no handle survives a
// relaunch.
type Handles struct {
	Engine       ports.ProtocolEngine
	RenderLogger ports.RenderLogger
	Video        ports.VideoRenderer
	Audio        ports.AudioRenderer
	Registrar    ports.Registrar

	PrimaryPort   uint16
	CompanionPort uint16
	VideoEnabled  bool
}

// Orchestrator brings the collaborators up in dependency order and tears
// them down in reverse.
type Orchestrator struct {
	collab Collaborators
	logger log.Logger
	bridge *Bridge
}

// NewOrchestrator creates an orchestrator using the given factories and
// callback bridge.
func NewOrchestrator(collab Collaborators, logger log.Logger, bridge *Bridge) *Orchestrator {
	return &Orchestrator{
		collab: collab,
		logger: logger,
		bridge: bridge,
	}
}

// Start runs the ordered bring-up sequence. On any failure everything
// created so far is torn down in reverse and a distinct failure class is
// returned.
func (o *Orchestrator) Start(cfg cliconfig.Config, id hwaddr.DeviceID) (*Handles, error) {
	h := &Handles{}

	engine, err := o.collab.Engine(sessionCapacity, o.bridge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	h.Engine = engine

	useVideo := cfg.VideoSink != cliconfig.SinkDisabled
	useAudio := cfg.UseAudio && cfg.AudioSink != cliconfig.SinkDisabled
	h.VideoEnabled = useVideo

	maxFPS := cfg.MaxFPS
	if !useVideo {
		// No display window; one frame per second keeps the session
		// alive without wasted decode work.
		maxFPS = 1
	}

	engine.ConfigureDisplay(cfg.Width, cfg.Height, cfg.Refresh, maxFPS, cfg.Overscan)
	engine.ConfigurePorts(cfg.TCPPorts, cfg.UDPPorts)
	if cfg.Debug {
		engine.SetLogLevel(ports.LogDebug)
	} else {
		engine.SetLogLevel(ports.LogInfo)
	}

	renderLogger, err := o.collab.RenderLogger(cfg.Debug)
	if err != nil {
		o.Stop(h)
		return nil, fmt.Errorf("%w: %v", ErrRenderLoggerInit, err)
	}
	h.RenderLogger = renderLogger

	if useVideo {
		video, err := o.collab.Video(renderLogger, cfg.Name, cfg.Flip, cfg.Rotate, cfg.VideoSink)
		if err != nil {
			o.Stop(h)
			return nil, fmt.Errorf("%w: %v", ErrVideoInit, err)
		}
		h.Video = video
	}

	if useAudio {
		audio, err := o.collab.Audio(renderLogger, h.Video, cfg.AudioSink)
		if err != nil {
			o.Stop(h)
			return nil, fmt.Errorf("%w: %v", ErrAudioInit, err)
		}
		h.Audio = audio
	} else {
		o.logger.Info("audio disabled")
	}

	o.bridge.bind(h.Video, h.Audio)

	if h.Video != nil {
		h.Video.Start()
	}
	if h.Audio != nil {
		h.Audio.Start()
	}

	bound, err := engine.Start(engine.Port())
	if err != nil {
		o.Stop(h)
		return nil, fmt.Errorf("%w: start listener: %v", ErrEngineInit, err)
	}
	engine.SetPort(bound)
	h.PrimaryPort = bound

	registrar, err := o.collab.Discovery(cfg.Name, id)
	if err != nil {
		o.Stop(h)
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryInit, err)
	}
	h.Registrar = registrar
	registrar.Register(ports.ServiceMirror, bound)

	companion, err := companionPort(cfg.TCPPorts[2], bound)
	if err != nil {
		o.Stop(h)
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryInit, err)
	}
	registrar.Register(ports.ServiceCompanion, companion)
	h.CompanionPort = companion

	o.logger.Info("server started",
		log.String("name", cfg.Name),
		log.Uint16("port", bound),
		log.Uint16("companion_port", companion),
		log.Bool("video", useVideo),
		log.Bool("audio", useAudio),
	)
	return h, nil
}

// companionPort picks the auxiliary advertised port: the explicitly
// configured one if present, otherwise primary+1, or primary-1 when the
// primary already sits at the top of the range. The derived value is
// checked against the port floor; a dynamically assigned primary below
// 1025 could otherwise derive an unusable companion.
func companionPort(configured, primary uint16) (uint16, error) {
	if configured != 0 {
		return configured, nil
	}
	companion := primary + 1
	if primary == cliconfig.HighestPort {
		companion = primary - 1
	}
	if companion < cliconfig.LowestPort {
		return 0, fmt.Errorf("derived companion port %d below %d", companion, cliconfig.LowestPort)
	}
	return companion, nil
}

// Stop tears down whatever subset of handles is present, in the fixed
// order: engine, discovery, audio, video, render logger. It never fails
// and calling it again, or with never-created handles, is a no-op.
func (o *Orchestrator) Stop(h *Handles) {
	if h == nil {
		return
	}
	o.bridge.release()
	if h.Engine != nil {
		h.Engine.Destroy()
		h.Engine = nil
	}
	if h.Registrar != nil {
		h.Registrar.Unregister(ports.ServiceMirror)
		h.Registrar.Unregister(ports.ServiceCompanion)
		h.Registrar.Destroy()
		h.Registrar = nil
	}
	if h.Audio != nil {
		h.Audio.Destroy()
		h.Audio = nil
	}
	if h.Video != nil {
		h.Video.Destroy()
		h.Video = nil
	}
	if h.RenderLogger != nil {
		h.RenderLogger.Destroy()
		h.RenderLogger = nil
	}
}
