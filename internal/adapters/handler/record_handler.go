package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trimwell/insight-service/internal/adapters/middleware"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// RecordHandler handles HTTP requests for daily health record operations
type RecordHandler struct {
	recordService ports.HealthRecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(recordService ports.HealthRecordService) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
	}
}

// requestContext extracts and validates the caller identity and target user
// from the request. Writes the error response itself on failure.
func requestContext(w http.ResponseWriter, r *http.Request, requestID string) (userID, callerID uuid.UUID, isAdmin bool, ok bool) {
	callerIDStr, found := middleware.GetUserID(r.Context())
	if !found {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	callerID, err := uuid.Parse(callerIDStr)
	if err != nil {
		log.Printf("[%s] Invalid caller ID: %v", requestID, err)
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	userID, err = uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		log.Printf("[%s] Invalid user ID in path: %v", requestID, err)
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	return userID, callerID, middleware.IsAdmin(r.Context()), true
}

// writeServiceError maps service error text to an HTTP status
func writeServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		http.Error(w, msg, http.StatusNotFound)
	case strings.HasPrefix(msg, "forbidden"):
		http.Error(w, msg, http.StatusForbidden)
	default:
		http.Error(w, msg, http.StatusBadRequest)
	}
}

// DailySummaryResponse is a daily summary plus its deterministic context
// hash, so clients can use the hash as a cache key for derived content
type DailySummaryResponse struct {
	*domain.DailySummary
	ContextHash string `json:"context_hash"`
}

// IngestSleep handles POST /users/{user_id}/records/sleep
// USER: owned only (ADMIN access is read-only)
func (h *RecordHandler) IngestSleep(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req ports.IngestSleepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.recordService.IngestSleepRecord(r.Context(), userID, req, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to ingest sleep record: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/records/sleep", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, record)
}

// IngestActivity handles POST /users/{user_id}/records/activity
func (h *RecordHandler) IngestActivity(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req ports.IngestActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.recordService.IngestActivityRecord(r.Context(), userID, req, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to ingest activity record: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/records/activity", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, record)
}

// IngestHeart handles POST /users/{user_id}/records/heart
func (h *RecordHandler) IngestHeart(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req ports.IngestHeartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.recordService.IngestHeartRecord(r.Context(), userID, req, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to ingest heart record: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/records/heart", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, record)
}

// GetDailySummary handles GET /users/{user_id}/summary?date=
// Date defaults to today (UTC) when absent
func (h *RecordHandler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	date := time.Now().UTC()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			log.Printf("[%s] Invalid date parameter: %v", requestID, err)
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	summary, err := h.recordService.GetDailySummary(r.Context(), userID, date, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to get daily summary: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "GET", "/users/"+userID.String()+"/summary", http.StatusOK, time.Since(startTime))
	writeJSON(w, http.StatusOK, DailySummaryResponse{
		DailySummary: summary,
		ContextHash:  summary.ContextHash(),
	})
}
