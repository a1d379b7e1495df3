// Package metrics exports relay activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxa_signaling"

// Metrics implements relay.Observer on top of a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	waiting         *prometheus.GaugeVec
	activeSessions  prometheus.Gauge
	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	forwarded       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
}

var _ relay.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		waiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_connections",
			Help:      "Connections waiting for a partner, by tag.",
		}, []string{"tag"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions that have not ended yet.",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created by pairing two waiting connections.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions torn down, by reason.",
		}, []string{"reason"}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Negotiation messages delivered to the other session member, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages rejected or undeliverable, by error code.",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		m.waiting,
		m.activeSessions,
		m.sessionsStarted,
		m.sessionsEnded,
		m.forwarded,
		m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) QueueChanged(tag string, waiting int) {
	// Drop idle tags so arbitrary client tags do not accumulate series.
	if waiting == 0 {
		m.waiting.DeleteLabelValues(tag)
		return
	}
	m.waiting.WithLabelValues(tag).Set(float64(waiting))
}

func (m *Metrics) SessionStarted(models.SessionInfo) {
	m.sessionsStarted.Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) SessionEnded(_ models.SessionInfo, reason relay.EndReason) {
	m.sessionsEnded.WithLabelValues(string(reason)).Inc()
	m.activeSessions.Dec()
}

func (m *Metrics) Forwarded(t models.SignalType) {
	m.forwarded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) MessageDropped(code string) {
	m.dropped.WithLabelValues(code).Inc()
}
