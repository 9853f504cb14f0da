package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trimwell/insight-service/internal/adapters/handler"
	"github.com/trimwell/insight-service/internal/adapters/middleware"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/services"
)

func newEvaluationHandler() *handler.EvaluationHandler {
	evaluator := services.NewEvaluatorService(domain.DefaultReferenceCatalog())
	return handler.NewEvaluationHandler(evaluator)
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New().String())
	ctx = context.WithValue(ctx, middleware.RoleKey, "USER")
	return req.WithContext(ctx)
}

func TestEvaluationHandler_Evaluate_Success(t *testing.T) {
	evaluationHandler := newEvaluationHandler()

	req := authedRequest("GET", "/metrics/hrv/evaluation?value=55")
	req.SetPathValue("metric_key", "hrv")
	w := httptest.NewRecorder()

	evaluationHandler.Evaluate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response handler.EvaluationResponse
	err := json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, domain.MetricHRV, response.Metric)
	assert.Equal(t, 55.0, response.Value)
	assert.Equal(t, domain.StatusGood, response.Evaluation.Status)
	assert.Equal(t, "Good", response.Evaluation.Label)
}

func TestEvaluationHandler_Evaluate_UnknownMetric(t *testing.T) {
	evaluationHandler := newEvaluationHandler()

	req := authedRequest("GET", "/metrics/bloodOxygen/evaluation?value=97")
	req.SetPathValue("metric_key", "bloodOxygen")
	w := httptest.NewRecorder()

	evaluationHandler.Evaluate(w, req)

	// Unknown keys answer with the neutral fallback, never an error
	assert.Equal(t, http.StatusOK, w.Code)

	var response handler.EvaluationResponse
	err := json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFair, response.Evaluation.Status)
	assert.Equal(t, "Unknown", response.Evaluation.Label)
	assert.Equal(t, 50.0, response.Evaluation.Percentile)
}

func TestEvaluationHandler_Evaluate_MissingValue(t *testing.T) {
	evaluationHandler := newEvaluationHandler()

	req := authedRequest("GET", "/metrics/hrv/evaluation")
	req.SetPathValue("metric_key", "hrv")
	w := httptest.NewRecorder()

	evaluationHandler.Evaluate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluationHandler_Evaluate_NonNumericValue(t *testing.T) {
	evaluationHandler := newEvaluationHandler()

	req := authedRequest("GET", "/metrics/hrv/evaluation?value=high")
	req.SetPathValue("metric_key", "hrv")
	w := httptest.NewRecorder()

	evaluationHandler.Evaluate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluationHandler_Evaluate_Unauthorized(t *testing.T) {
	evaluationHandler := newEvaluationHandler()

	req := httptest.NewRequest("GET", "/metrics/hrv/evaluation?value=55", nil)
	req.SetPathValue("metric_key", "hrv")
	w := httptest.NewRecorder()

	evaluationHandler.Evaluate(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
