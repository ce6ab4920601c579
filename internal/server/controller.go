package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/castkit/castd/internal/cliconfig"
	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/metrics"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/pkg/log"
)

// State is the lifecycle controller state.
type State int

// Controller states. StateShutdown is the only terminal state; relaunch
// always loops back into a new serve cycle.
const (
	StateStarting State = iota
	StateRunning
	StateRelaunch
	StateShutdown
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateRelaunch:
		return "Relaunch"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Controller drives the serve/relaunch/shutdown state machine. A single
// goroutine runs the loop; the timer, the termination signals and the
// renderer event source are multiplexed with select, so nothing blocks
// the loop except the synchronous teardown calls at cycle end.
type Controller struct {
	cfg      cliconfig.Config
	id       hwaddr.DeviceID
	orch     *Orchestrator
	activity *Activity
	logger   log.Logger
	metrics  *metrics.Metrics

	tickInterval time.Duration

	mu    sync.RWMutex
	state State
}

// ControllerOption configures optional controller behavior.
type ControllerOption func(*Controller)

// WithTickInterval overrides the idle-timer period. Used in tests.
func WithTickInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.tickInterval = d }
}

// NewController creates a controller for the given immutable configuration
// and device identifier.
func NewController(cfg cliconfig.Config, id hwaddr.DeviceID, orch *Orchestrator, activity *Activity, logger log.Logger, m *metrics.Metrics, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:          cfg,
		id:           id,
		orch:         orch,
		activity:     activity,
		logger:       logger,
		metrics:      m,
		tickInterval: time.Second,
		state:        StateStarting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(next State, reason string) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	c.logger.Info("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
}

// Run executes serve cycles until shutdown. A start failure is fatal: on
// the first cycle it aborts launch, and on a relaunch it aborts the whole
// process rather than looping on a broken bring-up.
func (c *Controller) Run(ctx context.Context) error {
	for {
		cycle := uuid.NewString()
		c.setState(StateStarting, "serve cycle "+cycle)

		handles, err := c.orch.Start(c.cfg, c.id)
		if err != nil {
			c.setState(StateShutdown, "start failed")
			return err
		}

		next := c.runCycle(ctx, handles)
		c.orch.Stop(handles)

		if next == StateShutdown {
			c.setState(StateShutdown, "stopping")
			return nil
		}

		c.metrics.Relaunches.Add(1)
		c.logger.Info("re-launching server", log.String("cycle", cycle))
	}
}

// runCycle observes one RUNNING period and decides its outcome. It arms
// the 1-second idle timer only when an idle timeout is configured, the
// termination signals unconditionally, and the renderer event source when
// video is enabled.
func (c *Controller) runCycle(ctx context.Context, handles *Handles) State {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var tick <-chan time.Time
	if c.cfg.IdleTimeout > 0 {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var rendererEvents <-chan ports.RendererEvent
	if handles.VideoEnabled && handles.Video != nil {
		rendererEvents = handles.Video.Events()
	}

	c.activity.ResetIdle()
	c.setState(StateRunning, "serving")

	for {
		select {
		case <-ctx.Done():
			c.setState(StateShutdown, "context canceled")
			return StateShutdown

		case sig := <-sigCh:
			c.setState(StateShutdown, "received "+sig.String())
			return StateShutdown

		case <-tick:
			if c.handleTick() {
				c.setState(StateRelaunch, "idle timeout")
				return StateRelaunch
			}

		case ev, ok := <-rendererEvents:
			if !ok {
				rendererEvents = nil
				continue
			}
			c.logger.Warn("video pipeline event",
				log.String("reason", ev.Reason),
				log.Err(ev.Err),
			)
			c.setState(StateRelaunch, "renderer event")
			return StateRelaunch
		}
	}
}

// handleTick advances the idle counter and reports whether the configured
// idle timeout has been reached.
func (c *Controller) handleTick() bool {
	idle := c.activity.Tick()
	c.metrics.IdleSeconds.Store(uint64(idle))
	if idle < c.cfg.IdleTimeout {
		return false
	}
	c.logger.Info("no connections, relaunching server",
		log.Uint("idle_seconds", idle),
	)
	return true
}
