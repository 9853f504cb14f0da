package domain

import (
	"time"

	"github.com/google/uuid"
)

// HeartRecord is one day's heart statistics. Rates in bpm, HRV in ms.
// HRV is optional: a missing reading classifies as unknown, not an error.
type HeartRecord struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Date             time.Time `json:"date"`
	RestingHeartRate float64   `json:"resting_heart_rate"` // bpm
	HRV              *float64  `json:"hrv,omitempty"`      // ms
	CreatedAt        time.Time `json:"created_at"`
}

// ClassifyHRV maps an HRV reading to its status. Boundaries belong to the
// upper bucket: exactly 50 ms is excellent, exactly 20 ms is fair.
func ClassifyHRV(hrv *float64) HRVStatus {
	if hrv == nil {
		return HRVUnknown
	}
	switch {
	case *hrv >= 50:
		return HRVExcellent
	case *hrv >= 35:
		return HRVGood
	case *hrv >= 20:
		return HRVFair
	default:
		return HRVLow
	}
}

// ClassifyRestingHR maps a resting heart rate to its status. The `<`
// boundaries belong to the lower bucket: exactly 60 bpm is excellent, not
// athletic.
func ClassifyRestingHR(bpm float64) RestingHRStatus {
	switch {
	case bpm < 60:
		return RestingHRAthletic
	case bpm < 70:
		return RestingHRExcellent
	case bpm < 80:
		return RestingHRGood
	case bpm < 90:
		return RestingHRAverage
	default:
		return RestingHRElevated
	}
}

// HRVStatus classifies the record's HRV reading
func (h *HeartRecord) HRVStatus() HRVStatus {
	return ClassifyHRV(h.HRV)
}

// RestingHRStatus classifies the record's resting heart rate
func (h *HeartRecord) RestingHRStatus() RestingHRStatus {
	return ClassifyRestingHR(h.RestingHeartRate)
}
