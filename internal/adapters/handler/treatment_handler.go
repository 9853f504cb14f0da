package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
	"github.com/trimwell/insight-service/internal/core/services"
)

// TreatmentHandler handles HTTP requests for GLP-1 treatment operations
type TreatmentHandler struct {
	treatmentService ports.TreatmentService
}

// NewTreatmentHandler creates a new treatment handler
func NewTreatmentHandler(treatmentService ports.TreatmentService) *TreatmentHandler {
	return &TreatmentHandler{
		treatmentService: treatmentService,
	}
}

// LogInjectionRequest represents the request body for logging an injection
type LogInjectionRequest struct {
	LoggedAt time.Time `json:"logged_at"`
}

// CreateTreatment handles POST /users/{user_id}/treatment
// USER: owned only (ADMIN access is read-only)
func (h *TreatmentHandler) CreateTreatment(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req ports.CreateTreatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	treatment, err := h.treatmentService.CreateTreatment(r.Context(), userID, req, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to create treatment: user_id=%s, error=%v", requestID, userID, err)
		if services.IsInvariantViolation(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/treatment", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, treatment)
}

// GetTreatment handles GET /users/{user_id}/treatment
func (h *TreatmentHandler) GetTreatment(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	treatment, err := h.treatmentService.GetTreatment(r.Context(), userID, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to get treatment: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "GET", "/users/"+userID.String()+"/treatment", http.StatusOK, time.Since(startTime))
	writeJSON(w, http.StatusOK, treatment)
}

// GetProgression handles GET /users/{user_id}/treatment/progression
// Dose state, escalation readiness and weight trend as of now
func (h *TreatmentHandler) GetProgression(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	progression, err := h.treatmentService.GetProgression(r.Context(), userID, time.Now().UTC(), callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to get progression: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "GET", "/users/"+userID.String()+"/treatment/progression", http.StatusOK, time.Since(startTime))
	writeJSON(w, http.StatusOK, progression)
}

// EscalateDose handles POST /users/{user_id}/treatment/escalate
// Performs the transition the progression endpoint reported eligibility for
func (h *TreatmentHandler) EscalateDose(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	treatment, err := h.treatmentService.EscalateDose(r.Context(), userID, time.Now().UTC(), callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to escalate dose: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	DoseEscalationsTotal.WithLabelValues(string(treatment.Medication)).Inc()

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/treatment/escalate", http.StatusOK, time.Since(startTime))
	writeJSON(w, http.StatusOK, treatment)
}

// LogInjection handles POST /users/{user_id}/treatment/injections
func (h *TreatmentHandler) LogInjection(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req LogInjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LoggedAt.IsZero() {
		req.LoggedAt = time.Now().UTC()
	}

	entry, err := h.treatmentService.LogInjection(r.Context(), userID, req.LoggedAt, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to log injection: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/treatment/injections", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, entry)
}

// AddWeight handles POST /users/{user_id}/weights
func (h *TreatmentHandler) AddWeight(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var req ports.AddWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.treatmentService.AddWeightEntry(r.Context(), userID, req, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to add weight entry: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	logStructured(requestID, callerID.String(), isAdmin, "POST", "/users/"+userID.String()+"/weights", http.StatusCreated, time.Since(startTime))
	writeJSON(w, http.StatusCreated, entry)
}

// ListWeights handles GET /users/{user_id}/weights?limit=
func (h *TreatmentHandler) ListWeights(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userID, callerID, isAdmin, ok := requestContext(w, r, requestID)
	if !ok {
		return
	}

	var limit *int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			log.Printf("[%s] Invalid limit parameter: %v", requestID, err)
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = &parsed
	}

	entries, err := h.treatmentService.ListWeightEntries(r.Context(), userID, limit, callerID, isAdmin)
	if err != nil {
		log.Printf("[%s] Failed to list weight entries: user_id=%s, error=%v", requestID, userID, err)
		writeServiceError(w, err)
		return
	}

	if entries == nil {
		entries = []*domain.WeightEntry{}
	}

	logStructured(requestID, callerID.String(), isAdmin, "GET", "/users/"+userID.String()+"/weights", http.StatusOK, time.Since(startTime))
	writeJSON(w, http.StatusOK, entries)
}
