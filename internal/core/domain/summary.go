package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// DailySummary bundles one day's evaluator and score outputs for a user.
// It is the structured context the insight collaborator consumes; identical
// inputs must always produce an identical summary (and hash) so the
// collaborator's same-hour-and-day cache contract holds.
type DailySummary struct {
	UserID uuid.UUID `json:"user_id"`
	Date   string    `json:"date"` // YYYY-MM-DD

	Evaluations map[MetricKey]MetricEvaluation `json:"evaluations,omitempty"`

	SleepQuality    *HealthStatus `json:"sleep_quality,omitempty"`
	SleepDuration   string        `json:"sleep_duration,omitempty"` // formatted, e.g. "7h 30m"
	DeepPercentage  *float64      `json:"deep_percentage,omitempty"`
	RemPercentage   *float64      `json:"rem_percentage,omitempty"`
	ActivityScore   *int          `json:"activity_score,omitempty"`
	HRVStatus       *HRVStatus    `json:"hrv_status,omitempty"`
	RestingHRStatus *RestingHRStatus `json:"resting_hr_status,omitempty"`
}

// ContextHash returns the SHA-256 of the summary's canonical JSON encoding.
// encoding/json emits struct fields in declaration order and map keys sorted,
// so equal summaries hash equally.
func (s *DailySummary) ContextHash() string {
	payload, err := json.Marshal(s)
	if err != nil {
		// Marshal of this struct cannot fail; keep the signature simple
		return ""
	}
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}

// MetricAlert is published when a scalar evaluation lands in the worst bucket
type MetricAlert struct {
	UserID     uuid.UUID        `json:"user_id"`
	Metric     MetricKey        `json:"metric"`
	Value      float64          `json:"value"`
	Evaluation MetricEvaluation `json:"evaluation"`
	Date       string           `json:"date"`
}

// TreatmentProgression is the derived dose-state and weight-trend projection
// returned to callers. Recomputed per request from the treatment record and
// the latest weight measurement; never persisted.
type TreatmentProgression struct {
	Medication             GLP1Medication  `json:"medication"`
	DisplayName            string          `json:"display_name"`
	CurrentDose            float64         `json:"current_dose"`
	CurrentDoseIndex       int             `json:"current_dose_index"`
	NextDose               *float64        `json:"next_dose,omitempty"`
	IsAtMaxDose            bool            `json:"is_at_max_dose"`
	WeeksOnCurrentDose     int             `json:"weeks_on_current_dose"`
	WeeksPerDose           int             `json:"weeks_per_dose"`
	IsReadyForDoseIncrease bool            `json:"is_ready_for_dose_increase"`
	NextInjectionDate      *string         `json:"next_injection_date,omitempty"` // YYYY-MM-DD
	WeightLoss             *WeightLossStats `json:"weight_loss,omitempty"`
	TotalLost              *float64        `json:"total_lost,omitempty"`
	PercentageLost         *float64        `json:"percentage_lost,omitempty"`
	WeeklyAverage          *float64        `json:"weekly_average,omitempty"`
	Pace                   *WeightLossPace `json:"pace,omitempty"`
	ProgressToTarget       *float64        `json:"progress_to_target,omitempty"`
}
