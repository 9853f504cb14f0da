package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trimwell/insight-service/internal/core/domain"
)

// HealthRecordRepository defines persistence for daily health snapshots.
// One record per user and day; saving twice for the same day replaces the
// earlier snapshot (device sync re-delivers whole days).
type HealthRecordRepository interface {
	SaveSleepRecord(ctx context.Context, record *domain.SleepRecord) error
	SaveActivityRecord(ctx context.Context, record *domain.ActivityRecord) error
	SaveHeartRecord(ctx context.Context, record *domain.HeartRecord) error

	// Get* return (nil, nil) when no record exists for the day
	GetSleepRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.SleepRecord, error)
	GetActivityRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.ActivityRecord, error)
	GetHeartRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.HeartRecord, error)
}

// TreatmentRepository defines persistence for GLP-1 treatments and their logs
type TreatmentRepository interface {
	CreateTreatment(ctx context.Context, treatment *domain.GLP1Treatment) error

	// GetActiveTreatment returns the user's active treatment, (nil, nil) if none
	GetActiveTreatment(ctx context.Context, userID uuid.UUID) (*domain.GLP1Treatment, error)

	// UpdateDose writes the new dose and resets the dose start date.
	// Dose escalation is the only mutator of that pair.
	UpdateDose(ctx context.Context, treatmentID uuid.UUID, dose float64, doseStartDate time.Time) error

	CreateMedicationLog(ctx context.Context, log *domain.MedicationLog) error
	ListMedicationLogs(ctx context.Context, treatmentID uuid.UUID, limit *int) ([]*domain.MedicationLog, error)
}

// WeightRepository defines persistence for the weight history
type WeightRepository interface {
	CreateWeightEntry(ctx context.Context, entry *domain.WeightEntry) error

	// GetLatestWeight returns the most recent entry, (nil, nil) if none
	GetLatestWeight(ctx context.Context, userID uuid.UUID) (*domain.WeightEntry, error)

	ListWeightEntries(ctx context.Context, userID uuid.UUID, limit *int) ([]*domain.WeightEntry, error)
}

// InsightPublisher defines the outbound messaging surface: summary context
// events for the AI insight collaborator, and alerts for worst-bucket
// evaluations
type InsightPublisher interface {
	PublishInsightContext(ctx context.Context, summary *domain.DailySummary) error
	PublishAlert(ctx context.Context, alert *domain.MetricAlert) error
}

// SummaryBroadcaster pushes freshly computed summaries to a user's connected
// realtime clients
type SummaryBroadcaster interface {
	BroadcastSummary(userID uuid.UUID, summary *domain.DailySummary)
}
