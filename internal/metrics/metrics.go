// Package metrics exposes Prometheus counters for bot activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bot"

// Message kinds.
const (
	KindCommand  = "command"
	KindCallback = "callback"
	KindText     = "text"
)

// JokeDurationBuckets covers fast failures up to the maximum request timeout.
var JokeDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the bot collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal      *prometheus.CounterVec
	messagesTotal      *prometheus.CounterVec
	jokeRequestsTotal  *prometheus.CounterVec
	handlerErrorsTotal *prometheus.CounterVec
	jokeDuration       prometheus.Histogram
	usersTotal         prometheus.Gauge
}

// New registers all collectors on registry. A nil registry gets a fresh one
// with the Go and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m := &Metrics{
		registry: registry,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Tracked commands and callbacks by name.",
		}, []string{"command"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound events by kind.",
		}, []string{"kind"}),
		jokeRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joke_requests_total",
			Help:      "Joke API requests by outcome.",
		}, []string{"outcome"}),
		handlerErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Handler failures answered with the generic error view.",
		}, []string{"kind"}),
		jokeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "joke_request_duration_seconds",
			Help:      "Joke API request latency.",
			Buckets:   JokeDurationBuckets,
		}),
		usersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "users_total",
			Help:      "Known user profiles.",
		}),
	}

	registry.MustRegister(
		m.commandsTotal,
		m.messagesTotal,
		m.jokeRequestsTotal,
		m.handlerErrorsTotal,
		m.jokeDuration,
		m.usersTotal,
	)

	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncCommand counts one tracked command or callback.
func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

// IncMessage counts one inbound event of kind.
func (m *Metrics) IncMessage(kind string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(kind).Inc()
}

// IncHandlerError counts a failure caught at the dispatch boundary.
func (m *Metrics) IncHandlerError(kind string) {
	if m == nil {
		return
	}
	m.handlerErrorsTotal.WithLabelValues(kind).Inc()
}

// SetUsers records the number of known profiles.
func (m *Metrics) SetUsers(n int) {
	if m == nil {
		return
	}
	m.usersTotal.Set(float64(n))
}

// ObserveJokeRequest records one joke API call.
func (m *Metrics) ObserveJokeRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.jokeRequestsTotal.WithLabelValues(outcome).Inc()
	m.jokeDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
