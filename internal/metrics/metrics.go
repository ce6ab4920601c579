// Package metrics exposes castd runtime counters through a private
// Prometheus registry. Counters are plain atomics updated on hot paths;
// the registry reads them lazily through GaugeFunc collectors.
package metrics

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/castkit/castd/pkg/log"
)

// Metrics holds all castd metrics.
type Metrics struct {
	SessionsOpen  atomic.Int64
	SessionsTotal atomic.Uint64
	Relaunches    atomic.Uint64
	IdleSeconds   atomic.Uint64
	VideoFrames   atomic.Uint64
	AudioFrames   atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauge := func(name, help string, value func() uint64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(value()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "castd_open_connections",
			Help: "Currently open client sessions",
		},
		func() float64 { return float64(m.SessionsOpen.Load()) },
	))

	gauge("castd_sessions_total",
		"Total client sessions accepted",
		m.SessionsTotal.Load)
	gauge("castd_relaunches_total",
		"Total idle-timeout server relaunches",
		m.Relaunches.Load)
	gauge("castd_idle_seconds",
		"Seconds since the last open session, as of the last tick",
		m.IdleSeconds.Load)
	gauge("castd_video_frames_total",
		"Total video frames forwarded to the renderer",
		m.VideoFrames.Load)
	gauge("castd_audio_frames_total",
		"Total audio frames forwarded to the renderer",
		m.AudioFrames.Load)
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a metrics listener on addr until ctx is canceled. Listener
// failures are logged, never fatal; metrics are best-effort.
func (m *Metrics) Serve(ctx context.Context, addr string, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", log.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics listener failed", log.Err(err))
	}
}
