package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trimwell/insight-service/internal/core/domain"
)

// Evaluator classifies scalar readings against the reference-range catalog.
// The domain wrappers are fixed bindings of a semantic name to a metric key.
type Evaluator interface {
	Evaluate(key domain.MetricKey, value float64) domain.MetricEvaluation
	EvaluateSleep(hours float64) domain.MetricEvaluation
	EvaluateSteps(steps int) domain.MetricEvaluation
	EvaluateHRV(ms float64) domain.MetricEvaluation
	EvaluateRestingHeartRate(bpm float64) domain.MetricEvaluation
	EvaluateActiveCalories(kcal float64) domain.MetricEvaluation
	EvaluateExerciseMinutes(minutes float64) domain.MetricEvaluation
}

// HealthRecordService defines business logic for ingesting daily snapshots
// and building daily summaries
// Ownership: users act only on their own records; ADMIN has read-only access
type HealthRecordService interface {
	IngestSleepRecord(ctx context.Context, userID uuid.UUID, req IngestSleepRequest, callerID uuid.UUID, isAdmin bool) (*domain.SleepRecord, error)
	IngestActivityRecord(ctx context.Context, userID uuid.UUID, req IngestActivityRequest, callerID uuid.UUID, isAdmin bool) (*domain.ActivityRecord, error)
	IngestHeartRecord(ctx context.Context, userID uuid.UUID, req IngestHeartRequest, callerID uuid.UUID, isAdmin bool) (*domain.HeartRecord, error)

	// GetDailySummary composes the day's evaluations and composite scores
	// from whatever records exist for the date
	GetDailySummary(ctx context.Context, userID uuid.UUID, date time.Time, callerID uuid.UUID, isAdmin bool) (*domain.DailySummary, error)
}

// TreatmentService defines business logic for GLP-1 treatment tracking
type TreatmentService interface {
	CreateTreatment(ctx context.Context, userID uuid.UUID, req CreateTreatmentRequest, callerID uuid.UUID, isAdmin bool) (*domain.GLP1Treatment, error)
	GetTreatment(ctx context.Context, userID uuid.UUID, callerID uuid.UUID, isAdmin bool) (*domain.GLP1Treatment, error)

	// GetProgression derives the dose state and weight trend as of now
	GetProgression(ctx context.Context, userID uuid.UUID, now time.Time, callerID uuid.UUID, isAdmin bool) (*domain.TreatmentProgression, error)

	// EscalateDose performs the transition the engine reported eligibility for
	EscalateDose(ctx context.Context, userID uuid.UUID, now time.Time, callerID uuid.UUID, isAdmin bool) (*domain.GLP1Treatment, error)

	LogInjection(ctx context.Context, userID uuid.UUID, loggedAt time.Time, callerID uuid.UUID, isAdmin bool) (*domain.MedicationLog, error)

	AddWeightEntry(ctx context.Context, userID uuid.UUID, req AddWeightRequest, callerID uuid.UUID, isAdmin bool) (*domain.WeightEntry, error)
	ListWeightEntries(ctx context.Context, userID uuid.UUID, limit *int, callerID uuid.UUID, isAdmin bool) ([]*domain.WeightEntry, error)
}

// IngestSleepRequest carries one day's sleep snapshot. Durations in seconds.
type IngestSleepRequest struct {
	Date          time.Time `json:"date"`
	TotalDuration float64   `json:"total_duration"`
	DeepSleep     float64   `json:"deep_sleep"`
	RemSleep      float64   `json:"rem_sleep"`
	LightSleep    float64   `json:"light_sleep"`
	AwakeTime     float64   `json:"awake_time"`
	HeartRateAvg  *float64  `json:"heart_rate_avg,omitempty"`
}

// IngestActivityRequest carries one day's activity snapshot
type IngestActivityRequest struct {
	Date            time.Time `json:"date"`
	Steps           int       `json:"steps"`
	ActiveCalories  int       `json:"active_calories"`
	ExerciseMinutes int       `json:"exercise_minutes"`
	StandHours      int       `json:"stand_hours"`
	DistanceMeters  float64   `json:"distance_meters"`
}

// IngestHeartRequest carries one day's heart statistics
type IngestHeartRequest struct {
	Date             time.Time `json:"date"`
	RestingHeartRate float64   `json:"resting_heart_rate"`
	HRV              *float64  `json:"hrv,omitempty"`
}

// CreateTreatmentRequest carries the input for starting a GLP-1 treatment
type CreateTreatmentRequest struct {
	Medication            string    `json:"medication"`
	StartDate             time.Time `json:"start_date"`
	StartWeight           float64   `json:"start_weight"`
	TargetWeight          *float64  `json:"target_weight,omitempty"`
	CurrentDose           float64   `json:"current_dose"`
	PreferredInjectionDay *int      `json:"preferred_injection_day,omitempty"`
	Notes                 string    `json:"notes,omitempty"`
}

// AddWeightRequest carries one weight measurement
type AddWeightRequest struct {
	Weight     float64   `json:"weight"`
	BodyFat    *float64  `json:"body_fat,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
