package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// TreatmentService implements business logic for GLP-1 treatment tracking.
// The progression engine itself is pure; this service loads the records,
// threads an explicit "now" through the engine, and persists the outcome of
// the escalation action.
type TreatmentService struct {
	treatmentRepo ports.TreatmentRepository
	weightRepo    ports.WeightRepository
}

// NewTreatmentService creates a new treatment service
func NewTreatmentService(treatmentRepo ports.TreatmentRepository, weightRepo ports.WeightRepository) *TreatmentService {
	return &TreatmentService{
		treatmentRepo: treatmentRepo,
		weightRepo:    weightRepo,
	}
}

// checkTreatmentAccess mirrors the record-service ownership rule: writes are
// owner-only, reads allow ADMIN
func checkTreatmentAccess(userID, callerID uuid.UUID, isAdmin bool, write bool) error {
	if write {
		if isAdmin {
			return fmt.Errorf("forbidden: admin access is read-only")
		}
		if callerID != userID {
			return fmt.Errorf("treatment not found")
		}
		return nil
	}
	if isAdmin || callerID == userID {
		return nil
	}
	return fmt.Errorf("treatment not found")
}

// CreateTreatment validates and stores a new GLP-1 treatment.
// The starting dose must be a member of the medication's schedule and the
// start weight must be positive; both are invariants every later engine call
// relies on.
func (s *TreatmentService) CreateTreatment(
	ctx context.Context,
	userID uuid.UUID,
	req ports.CreateTreatmentRequest,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.GLP1Treatment, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}

	existing, err := s.treatmentRepo.GetActiveTreatment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing treatment: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user already has an active treatment")
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	treatment := &domain.GLP1Treatment{
		ID:                    uuid.New(),
		UserID:                userID,
		Medication:            domain.GLP1Medication(req.Medication),
		StartDate:             startDate,
		StartWeight:           req.StartWeight,
		TargetWeight:          req.TargetWeight,
		CurrentDose:           req.CurrentDose,
		CurrentDoseStartDate:  startDate,
		PreferredInjectionDay: req.PreferredInjectionDay,
		Notes:                 req.Notes,
		Active:                true,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}

	if err := treatment.Validate(); err != nil {
		return nil, err
	}
	if req.TargetWeight != nil && *req.TargetWeight >= req.StartWeight {
		return nil, fmt.Errorf("target weight must be below start weight")
	}

	if err := s.treatmentRepo.CreateTreatment(ctx, treatment); err != nil {
		return nil, fmt.Errorf("failed to create treatment: %w", err)
	}

	s.logTreatment(treatment, "treatment_created")
	return treatment, nil
}

// GetTreatment retrieves the user's active treatment
func (s *TreatmentService) GetTreatment(
	ctx context.Context,
	userID uuid.UUID,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.GLP1Treatment, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, false); err != nil {
		return nil, err
	}

	treatment, err := s.treatmentRepo.GetActiveTreatment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	if treatment == nil {
		return nil, fmt.Errorf("treatment not found")
	}
	return treatment, nil
}

// GetProgression derives the dose state and weight trend as of now.
// An InvariantViolation from the engine is surfaced (it signals corrupt
// upstream data) but is scoped to this one treatment record.
func (s *TreatmentService) GetProgression(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.TreatmentProgression, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, false); err != nil {
		return nil, err
	}

	treatment, err := s.treatmentRepo.GetActiveTreatment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	if treatment == nil {
		return nil, fmt.Errorf("treatment not found")
	}

	spec, ok := treatment.Medication.Spec()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported medication %q", domain.ErrInvariantViolation, treatment.Medication)
	}

	doseIndex, err := treatment.CurrentDoseIndex()
	if err != nil {
		return nil, err
	}

	progression := &domain.TreatmentProgression{
		Medication:             treatment.Medication,
		DisplayName:            spec.DisplayName,
		CurrentDose:            treatment.CurrentDose,
		CurrentDoseIndex:       doseIndex,
		NextDose:               treatment.NextDose(),
		IsAtMaxDose:            treatment.IsAtMaxDose(),
		WeeksOnCurrentDose:     treatment.WeeksOnCurrentDose(now),
		WeeksPerDose:           spec.WeeksPerDose,
		IsReadyForDoseIncrease: treatment.IsReadyForDoseIncrease(now),
	}

	if next := treatment.NextInjectionDate(now); next != nil {
		formatted := next.Format("2006-01-02")
		progression.NextInjectionDate = &formatted
	}

	latest, err := s.weightRepo.GetLatestWeight(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest weight: %w", err)
	}
	if latest != nil {
		if treatment.StartWeight <= 0 {
			return nil, fmt.Errorf("%w: start weight must be positive, got %g", domain.ErrInvariantViolation, treatment.StartWeight)
		}
		stats := domain.WeightLossStats{
			StartWeight:      treatment.StartWeight,
			CurrentWeight:    latest.Weight,
			TargetWeight:     treatment.TargetWeight,
			WeeksOnTreatment: treatment.WeeksOnTreatment(now),
		}
		totalLost := stats.TotalLost()
		percentageLost := stats.PercentageLost()
		weeklyAverage := stats.WeeklyAverage()
		pace := stats.Pace()

		progression.WeightLoss = &stats
		progression.TotalLost = &totalLost
		progression.PercentageLost = &percentageLost
		progression.WeeklyAverage = &weeklyAverage
		progression.Pace = &pace
		progression.ProgressToTarget = stats.ProgressToTarget()
	}

	return progression, nil
}

// EscalateDose performs the forward transition the engine reported
// eligibility for: writes the next dose and resets the dose start date, then
// records a dose-change log entry
func (s *TreatmentService) EscalateDose(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.GLP1Treatment, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}

	treatment, err := s.treatmentRepo.GetActiveTreatment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	if treatment == nil {
		return nil, fmt.Errorf("treatment not found")
	}

	if _, err := treatment.CurrentDoseIndex(); err != nil {
		return nil, err
	}

	next := treatment.NextDose()
	if next == nil {
		return nil, fmt.Errorf("treatment is already at the maximum dose")
	}
	if !treatment.IsReadyForDoseIncrease(now) {
		spec, _ := treatment.Medication.Spec()
		return nil, fmt.Errorf("not ready for dose increase: %d of %d weeks on current dose",
			treatment.WeeksOnCurrentDose(now), spec.WeeksPerDose)
	}

	if err := s.treatmentRepo.UpdateDose(ctx, treatment.ID, *next, now); err != nil {
		return nil, fmt.Errorf("failed to update dose: %w", err)
	}

	logEntry := &domain.MedicationLog{
		ID:          uuid.New(),
		TreatmentID: treatment.ID,
		UserID:      userID,
		Type:        domain.LogTypeDoseChange,
		Dose:        *next,
		LoggedAt:    now,
		CreatedAt:   time.Now(),
	}
	if err := s.treatmentRepo.CreateMedicationLog(ctx, logEntry); err != nil {
		// The dose change itself is durable; the missing log entry is
		// reported but does not roll it back
		log.Printf("Failed to record dose-change log: %v", err)
	}

	treatment.CurrentDose = *next
	treatment.CurrentDoseStartDate = now
	treatment.UpdatedAt = time.Now()

	s.logTreatment(treatment, "dose_escalated")
	return treatment, nil
}

// LogInjection records an injection at the current dose
func (s *TreatmentService) LogInjection(
	ctx context.Context,
	userID uuid.UUID,
	loggedAt time.Time,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.MedicationLog, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}

	treatment, err := s.treatmentRepo.GetActiveTreatment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	if treatment == nil {
		return nil, fmt.Errorf("treatment not found")
	}

	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	logEntry := &domain.MedicationLog{
		ID:          uuid.New(),
		TreatmentID: treatment.ID,
		UserID:      userID,
		Type:        domain.LogTypeInjection,
		Dose:        treatment.CurrentDose,
		LoggedAt:    loggedAt,
		CreatedAt:   time.Now(),
	}
	if err := s.treatmentRepo.CreateMedicationLog(ctx, logEntry); err != nil {
		return nil, fmt.Errorf("failed to record injection: %w", err)
	}

	return logEntry, nil
}

// AddWeightEntry stores one weight measurement
func (s *TreatmentService) AddWeightEntry(
	ctx context.Context,
	userID uuid.UUID,
	req ports.AddWeightRequest,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.WeightEntry, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}
	if req.Weight <= 0 {
		return nil, fmt.Errorf("weight must be positive")
	}
	if req.BodyFat != nil && (*req.BodyFat < 0 || *req.BodyFat > 100) {
		return nil, fmt.Errorf("body fat must be between 0 and 100 percent")
	}

	recordedAt := req.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	entry := &domain.WeightEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Weight:     req.Weight,
		BodyFat:    req.BodyFat,
		RecordedAt: recordedAt,
		CreatedAt:  time.Now(),
	}
	if err := s.weightRepo.CreateWeightEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create weight entry: %w", err)
	}

	return entry, nil
}

// ListWeightEntries retrieves the weight history, newest first
func (s *TreatmentService) ListWeightEntries(
	ctx context.Context,
	userID uuid.UUID,
	limit *int,
	callerID uuid.UUID,
	isAdmin bool,
) ([]*domain.WeightEntry, error) {
	if err := checkTreatmentAccess(userID, callerID, isAdmin, false); err != nil {
		return nil, err
	}
	if limit != nil && *limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	entries, err := s.weightRepo.ListWeightEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list weight entries: %w", err)
	}
	return entries, nil
}

// IsInvariantViolation reports whether an error from this service signals a
// data-integrity defect rather than a user mistake
func IsInvariantViolation(err error) bool {
	return errors.Is(err, domain.ErrInvariantViolation)
}

// logTreatment logs structured JSON for treatment events
func (s *TreatmentService) logTreatment(t *domain.GLP1Treatment, event string) {
	logEntry := map[string]interface{}{
		"event":        event,
		"treatment_id": t.ID.String(),
		"user_id":      t.UserID.String(),
		"medication":   string(t.Medication),
		"current_dose": t.CurrentDose,
		"start_date":   t.StartDate.Format(time.RFC3339),
	}
	if t.TargetWeight != nil {
		logEntry["target_weight"] = *t.TargetWeight
	}

	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("Failed to marshal treatment log entry: %v", err)
		return
	}
	log.Printf("%s", string(jsonBytes))
}

// Ensure TreatmentService implements the interface
var _ ports.TreatmentService = (*TreatmentService)(nil)
