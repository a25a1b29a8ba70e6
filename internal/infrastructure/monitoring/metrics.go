package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Streaming connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsOpened *prometheus.CounterVec
	ConnectionsClosed *prometheus.CounterVec

	// Frame metrics
	FramesReceived  *prometheus.CounterVec
	FramesMalformed prometheus.Counter
	TranscriptsSent prometheus.Counter

	// Controller metrics
	Submissions *prometheus.CounterVec

	// Collaborator metrics
	APICalls    *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec

	// Development backend metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	WSConnections   prometheus.Gauge
	WSMessages      *prometheus.CounterVec
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_connections_active",
				Help: "Number of live streaming connections",
			},
		),
		ConnectionsOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_connections_opened_total",
				Help: "Streaming connections opened, by target kind",
			},
			[]string{"target"},
		),
		ConnectionsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_connections_closed_total",
				Help: "Streaming connections closed, by reason",
			},
			[]string{"reason"},
		),

		FramesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_frames_received_total",
				Help: "Decoded inbound frames, by type",
			},
			[]string{"type"},
		),
		FramesMalformed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_frames_malformed_total",
				Help: "Inbound payloads dropped because they could not be decoded",
			},
		),
		TranscriptsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_transcripts_sent_total",
				Help: "Outbound transcript frames written",
			},
		),

		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_submissions_total",
				Help: "User submissions, by outcome",
			},
			[]string{"outcome"},
		),

		APICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_api_calls_total",
				Help: "Collaborator API calls, by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		APIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_api_call_duration_seconds",
				Help:    "Collaborator API call duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devbackend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devbackend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "devbackend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devbackend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records a new streaming connection
func (m *Metrics) ConnectionOpened(target string) {
	if m == nil {
		return
	}
	m.ConnectionsOpened.WithLabelValues(target).Inc()
	m.ConnectionsActive.Inc()
}

// ConnectionClosed records the end of a streaming connection
func (m *Metrics) ConnectionClosed(reason string) {
	if m == nil {
		return
	}
	m.ConnectionsClosed.WithLabelValues(reason).Inc()
	m.ConnectionsActive.Dec()
}

// RecordFrame records a decoded inbound frame
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(frameType).Inc()
}

// RecordMalformedFrame records a dropped payload
func (m *Metrics) RecordMalformedFrame() {
	if m == nil {
		return
	}
	m.FramesMalformed.Inc()
}

// RecordTranscriptSent records an outbound transcript
func (m *Metrics) RecordTranscriptSent() {
	if m == nil {
		return
	}
	m.TranscriptsSent.Inc()
}

// RecordSubmission records a submission outcome
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordAPICall records a collaborator call
func (m *Metrics) RecordAPICall(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(endpoint, status).Inc()
	m.APIDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request served by the development backend
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message on the development backend
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments server-side WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements server-side WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
