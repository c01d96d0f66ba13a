package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application.
// Record methods are safe on a nil receiver so services work before
// InitMetrics runs and in tests.
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Plan generation metrics
	PlanAttempts         *prometheus.CounterVec
	PlanLatency          prometheus.Histogram
	PlanStorageFallbacks prometheus.Counter

	// Chat metrics
	ChatRequests       *prometheus.CounterVec
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec

	// Background job metrics
	PlanJobTransitions *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "listai_websocket_connections_active",
			Help: "Number of active chat WebSocket connections",
		}),

		WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listai_websocket_messages_total",
			Help: "Total number of chat WebSocket messages by direction",
		}, []string{"direction"}), // direction: "inbound" or "outbound"

		// Attempts by outcome: valid, invalid, correction_valid, correction_invalid, region
		PlanAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listai_plan_generation_attempts_total",
			Help: "Plan generation model calls by outcome",
		}, []string{"outcome"}),

		PlanLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listai_plan_generation_duration_seconds",
			Help:    "End-to-end plan generation latency in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),

		PlanStorageFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listai_plan_storage_fallbacks_total",
			Help: "Plan creations that fell back to an unsaved result after a storage failure",
		}),

		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listai_chat_requests_total",
			Help: "Total number of chat requests by mode",
		}, []string{"mode"}), // mode: "buffered" or "stream"

		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listai_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		ChatErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listai_chat_errors_total",
			Help: "Total number of chat errors by type",
		}, []string{"error_type"}),

		PlanJobTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listai_plan_jobs_total",
			Help: "Background plan job state transitions",
		}, []string{"status"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	if m == nil {
		return
	}
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	if m == nil {
		return
	}
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(direction string) {
	if m == nil {
		return
	}
	m.WebSocketMessages.WithLabelValues(direction).Inc()
}

// RecordPlanAttempt records the outcome of one model call
func (m *Metrics) RecordPlanAttempt(outcome string) {
	if m == nil {
		return
	}
	m.PlanAttempts.WithLabelValues(outcome).Inc()
}

// RecordPlanLatency records plan generation latency
func (m *Metrics) RecordPlanLatency(seconds float64) {
	if m == nil {
		return
	}
	m.PlanLatency.Observe(seconds)
}

// RecordPlanStorageFallback records an ephemeral fallback
func (m *Metrics) RecordPlanStorageFallback() {
	if m == nil {
		return
	}
	m.PlanStorageFallbacks.Inc()
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest(mode string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(mode).Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error
func (m *Metrics) RecordChatError(errorType string) {
	if m == nil {
		return
	}
	m.ChatErrors.WithLabelValues(errorType).Inc()
}

// RecordPlanJob records a background job state transition
func (m *Metrics) RecordPlanJob(status string) {
	if m == nil {
		return
	}
	m.PlanJobTransitions.WithLabelValues(status).Inc()
}
