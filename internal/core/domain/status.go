package domain

// HealthStatus represents the categorical judgment attached to an evaluated metric
// Ordered from worst to best: veryPoor < poor < fair < good < excellent
type HealthStatus string

const (
	StatusVeryPoor  HealthStatus = "veryPoor"
	StatusPoor      HealthStatus = "poor"
	StatusFair      HealthStatus = "fair"
	StatusGood      HealthStatus = "good"
	StatusExcellent HealthStatus = "excellent"
)

// statusSeverity ranks statuses from worst (0) to best (4)
// Used to validate that a metric's ranges progress consistently in one direction
var statusSeverity = map[HealthStatus]int{
	StatusVeryPoor:  0,
	StatusPoor:      1,
	StatusFair:      2,
	StatusGood:      3,
	StatusExcellent: 4,
}

// IsValidHealthStatus checks if a status is one of the five known variants
func IsValidHealthStatus(status HealthStatus) bool {
	_, ok := statusSeverity[status]
	return ok
}

// Severity returns the worst-to-best rank of a status (0-4), -1 for unknown values
func (s HealthStatus) Severity() int {
	rank, ok := statusSeverity[s]
	if !ok {
		return -1
	}
	return rank
}

// HRVStatus classifies heart rate variability readings
// "unknown" is the explicit missing-data variant, never an error
type HRVStatus string

const (
	HRVUnknown   HRVStatus = "unknown"
	HRVLow       HRVStatus = "low"
	HRVFair      HRVStatus = "fair"
	HRVGood      HRVStatus = "good"
	HRVExcellent HRVStatus = "excellent"
)

// RestingHRStatus classifies resting heart rate readings
type RestingHRStatus string

const (
	RestingHRAthletic  RestingHRStatus = "athletic"
	RestingHRExcellent RestingHRStatus = "excellent"
	RestingHRGood      RestingHRStatus = "good"
	RestingHRAverage   RestingHRStatus = "average"
	RestingHRElevated  RestingHRStatus = "elevated"
)

// WeightLossPace classifies the weight-loss rate against fixed safety thresholds
type WeightLossPace string

const (
	PaceTooFast WeightLossPace = "tooFast"
	PaceTooSlow WeightLossPace = "tooSlow"
	PaceOnTrack WeightLossPace = "onTrack"
)
