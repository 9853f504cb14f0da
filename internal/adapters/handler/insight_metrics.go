package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metric_evaluations_total",
			Help: "Total number of reference-range evaluations performed",
		},
		[]string{"metric", "status"},
	)

	SummariesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaries_published_total",
			Help: "Total number of daily summaries published to RabbitMQ",
		},
		[]string{"status"},
	)

	AlertsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metric_alerts_published_total",
			Help: "Total number of metric alerts published to RabbitMQ",
		},
		[]string{"metric"},
	)

	RecordsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_records_consumed_total",
			Help: "Total number of health record sync messages consumed from RabbitMQ",
		},
		[]string{"status"},
	)

	DoseEscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dose_escalations_total",
			Help: "Total number of GLP-1 dose escalations performed",
		},
		[]string{"medication"},
	)

	WebSocketConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket connections",
		},
		[]string{"role"},
	)
)

// RegisterInsightMetrics registers all domain metrics
func RegisterInsightMetrics() {
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(SummariesPublishedTotal)
	prometheus.MustRegister(AlertsPublishedTotal)
	prometheus.MustRegister(RecordsConsumedTotal)
	prometheus.MustRegister(DoseEscalationsTotal)
	prometheus.MustRegister(WebSocketConnections)
}
