// Package metrics exposes playback instruments on a private Prometheus
// registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/playback"
	"yatravoice/internal/speech/remote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "yatravoice"

// Metrics groups all Prometheus instruments used by the application. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Speaking        prometheus.Gauge
	Attempts        *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	ChunkRequests   *prometheus.CounterVec
	ChunkLatency    prometheus.Histogram
	EventClients    prometheus.Gauge
	EventMessages   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Speaking: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "speaking",
			Help:      "1 while a message is being read aloud.",
		}),
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "playback_attempts_total",
			Help:      "Playback attempts by first mechanism.",
		}, []string{"mechanism"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "playback_outcomes_total",
			Help:      "Finished attempts by final mechanism and outcome.",
		}, []string{"mechanism", "outcome"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "playback_fallbacks_total",
			Help:      "Fallbacks between mechanisms.",
		}, []string{"from", "to"}),
		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "playback_duration_seconds",
			Help:      "Time from attempt start to its end.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
		ChunkRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "remote_chunk_requests_total",
			Help:      "Remote synthesis requests by service and result.",
		}, []string{"service", "result"}),
		ChunkLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "remote_chunk_latency_ms",
			Help:      "Latency of one remote synthesis request in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 4000},
		}),
		EventClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "event_clients",
			Help:      "Connected event stream clients.",
		}),
		EventMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "event_messages_total",
			Help:      "Messages pushed to event stream clients by type.",
		}, []string{"type"}),
	}
}

// Registry returns the registry holding the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AttemptStarted(mech speech.Mechanism) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(mech.String()).Inc()
}

func (m *Metrics) Fallback(from, to speech.Mechanism) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) AttemptFinished(mech speech.Mechanism, outcome playback.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(mech.String(), string(outcome)).Inc()
	m.AttemptDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (m *Metrics) SetSpeaking(speaking bool) {
	if m == nil {
		return
	}
	if speaking {
		m.Speaking.Set(1)
	} else {
		m.Speaking.Set(0)
	}
}

func (m *Metrics) EventClientConnected() {
	if m == nil {
		return
	}
	m.EventClients.Inc()
}

func (m *Metrics) EventClientDisconnected() {
	if m == nil {
		return
	}
	m.EventClients.Dec()
}

func (m *Metrics) EventSent(kind string) {
	if m == nil {
		return
	}
	m.EventMessages.WithLabelValues(kind).Inc()
}

// InstrumentService counts and times the requests made through svc.
func (m *Metrics) InstrumentService(svc remote.Service) remote.Service {
	if m == nil {
		return svc
	}
	return &instrumentedService{next: svc, m: m}
}

type instrumentedService struct {
	next remote.Service
	m    *Metrics
}

func (s *instrumentedService) Name() string {
	return s.next.Name()
}

func (s *instrumentedService) Synthesize(ctx context.Context, req remote.SynthesisRequest) ([]byte, error) {
	start := time.Now()
	clip, err := s.next.Synthesize(ctx, req)

	result := "ok"
	switch {
	case err == nil:
		s.m.ChunkLatency.Observe(float64(time.Since(start).Milliseconds()))
	case speech.IsCanceled(err):
		result = "canceled"
	default:
		result = "error"
	}
	s.m.ChunkRequests.WithLabelValues(s.next.Name(), result).Inc()

	return clip, err
}
