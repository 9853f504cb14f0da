package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SleepRecord is one day's sleep snapshot. All durations are seconds.
// Immutable value input owned by the caller; the core never mutates it.
type SleepRecord struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Date          time.Time `json:"date"`
	TotalDuration float64   `json:"total_duration"` // seconds
	DeepSleep     float64   `json:"deep_sleep"`     // seconds
	RemSleep      float64   `json:"rem_sleep"`      // seconds
	LightSleep    float64   `json:"light_sleep"`    // seconds
	AwakeTime     float64   `json:"awake_time"`     // seconds
	HeartRateAvg  *float64  `json:"heart_rate_avg,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DeepPercentage returns the deep-sleep share of the night (0-1), 0 for a
// zero-duration record
func (s *SleepRecord) DeepPercentage() float64 {
	if s.TotalDuration <= 0 {
		return 0
	}
	return s.DeepSleep / s.TotalDuration
}

// RemPercentage returns the REM share of the night (0-1), 0 for a
// zero-duration record
func (s *SleepRecord) RemPercentage() float64 {
	if s.TotalDuration <= 0 {
		return 0
	}
	return s.RemSleep / s.TotalDuration
}

// Hours returns the total sleep duration in hours
func (s *SleepRecord) Hours() float64 {
	return s.TotalDuration / 3600
}

// Quality classifies the night from its deep and REM shares.
//
// excellent and good require BOTH stage thresholds; fair requires only ONE.
// The asymmetry (AND/AND/OR) is intentional and must not be made uniform.
func (s *SleepRecord) Quality() HealthStatus {
	deep := s.DeepPercentage()
	rem := s.RemPercentage()

	switch {
	case deep >= 0.20 && rem >= 0.20:
		return StatusExcellent
	case deep >= 0.15 && rem >= 0.15:
		return StatusGood
	case deep >= 0.10 || rem >= 0.10:
		return StatusFair
	default:
		return StatusPoor
	}
}

// FormattedDuration renders the total duration as "7h 30m"
func (s *SleepRecord) FormattedDuration() string {
	total := int(s.TotalDuration)
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
