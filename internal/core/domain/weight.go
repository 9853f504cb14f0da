package domain

import (
	"time"

	"github.com/google/uuid"
)

// WeightEntry is one weight measurement. Weights in kg.
type WeightEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Weight     float64   `json:"weight"` // kg
	BodyFat    *float64  `json:"body_fat,omitempty"` // percent
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// WeightLossStats is a derived, read-only projection over a treatment and its
// latest weight measurement. Never persisted; recomputed on demand.
type WeightLossStats struct {
	StartWeight      float64  `json:"start_weight"`
	CurrentWeight    float64  `json:"current_weight"`
	TargetWeight     *float64 `json:"target_weight,omitempty"`
	WeeksOnTreatment int      `json:"weeks_on_treatment"`
}

// TotalLost returns kilograms lost since treatment start (negative if gained)
func (s WeightLossStats) TotalLost() float64 {
	return s.StartWeight - s.CurrentWeight
}

// PercentageLost returns the body-weight percentage lost, 0 for a
// non-positive start weight rather than dividing by zero
func (s WeightLossStats) PercentageLost() float64 {
	if s.StartWeight <= 0 {
		return 0
	}
	return s.TotalLost() / s.StartWeight * 100
}

// WeeklyAverage returns kg lost per week, 0 before the first full week
func (s WeightLossStats) WeeklyAverage() float64 {
	if s.WeeksOnTreatment == 0 {
		return 0
	}
	return s.TotalLost() / float64(s.WeeksOnTreatment)
}

// Pace thresholds in kg/week
const (
	paceTooFastThreshold = 1.0
	paceTooSlowThreshold = 0.25
	paceTooSlowMinWeeks  = 4
)

// Pace classifies the weight-loss rate. tooFast is checked first so its
// priority over tooSlow is fixed in code, not assumed.
func (s WeightLossStats) Pace() WeightLossPace {
	weekly := s.WeeklyAverage()
	if weekly > paceTooFastThreshold {
		return PaceTooFast
	}
	if s.WeeksOnTreatment >= paceTooSlowMinWeeks && weekly < paceTooSlowThreshold {
		return PaceTooSlow
	}
	return PaceOnTrack
}

// ProgressToTarget returns the percentage of the planned loss achieved, or
// nil when no target is set or the start weight is not above the target
// (no meaningful "total to lose")
func (s WeightLossStats) ProgressToTarget() *float64 {
	if s.TargetWeight == nil {
		return nil
	}
	if s.StartWeight <= *s.TargetWeight {
		return nil
	}
	progress := s.TotalLost() / (s.StartWeight - *s.TargetWeight) * 100
	return &progress
}
