package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/trimwell/insight-service/internal/adapters/middleware"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// EvaluationHandler exposes the raw evaluator surface
type EvaluationHandler struct {
	evaluator ports.Evaluator
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluator ports.Evaluator) *EvaluationHandler {
	return &EvaluationHandler{
		evaluator: evaluator,
	}
}

// EvaluationResponse represents a single metric evaluation
type EvaluationResponse struct {
	Metric     domain.MetricKey        `json:"metric"`
	Value      float64                 `json:"value"`
	Evaluation domain.MetricEvaluation `json:"evaluation"`
}

// Evaluate handles GET /metrics/{metric_key}/evaluation?value=
// Unknown metric keys still answer with the neutral fallback evaluation
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	isAdmin := middleware.IsAdmin(r.Context())

	metricKey := domain.MetricKey(r.PathValue("metric_key"))

	valueStr := r.URL.Query().Get("value")
	if valueStr == "" {
		log.Printf("[%s] Missing value parameter", requestID)
		http.Error(w, "value query parameter is required", http.StatusBadRequest)
		return
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("[%s] Invalid value parameter: %v", requestID, err)
		http.Error(w, "value must be a number", http.StatusBadRequest)
		return
	}

	evaluation := h.evaluator.Evaluate(metricKey, value)
	EvaluationsTotal.WithLabelValues(string(metricKey), string(evaluation.Status)).Inc()

	logStructured(requestID, userIDStr, isAdmin, "GET", "/metrics/"+string(metricKey)+"/evaluation", http.StatusOK, time.Since(startTime))

	writeJSON(w, http.StatusOK, EvaluationResponse{
		Metric:     metricKey,
		Value:      value,
		Evaluation: evaluation,
	})
}
