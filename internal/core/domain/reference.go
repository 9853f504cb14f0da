package domain

import (
	"fmt"
	"time"
)

// MetricKey identifies one evaluable biometric quantity
// The set is closed: unrecognized keys take the Unknown fallback path in the
// evaluator instead of failing
type MetricKey string

const (
	MetricHRV              MetricKey = "hrv"
	MetricRestingHeartRate MetricKey = "restingHeartRate"
	MetricHeartRate        MetricKey = "heartRate"
	MetricSteps            MetricKey = "steps"
	MetricSleep            MetricKey = "sleep"
	MetricActiveCalories   MetricKey = "activeCalories"
	MetricExerciseMinutes  MetricKey = "exerciseMinutes"
)

// KnownMetricKeys returns the closed set of metric keys the catalog covers
func KnownMetricKeys() []MetricKey {
	return []MetricKey{
		MetricHRV,
		MetricRestingHeartRate,
		MetricHeartRate,
		MetricSteps,
		MetricSleep,
		MetricActiveCalories,
		MetricExerciseMinutes,
	}
}

// IsKnownMetricKey checks if a key belongs to the closed metric set
func IsKnownMetricKey(key MetricKey) bool {
	for _, k := range KnownMetricKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// MetricRange is a half-open interval [Min, Max) mapped to one health status
// with its presentation text
type MetricRange struct {
	Level   HealthStatus `json:"level"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
	Label   string       `json:"label"`
	Color   string       `json:"color"`
	Comment string       `json:"comment"`
}

// MetricReference is the full range table for one metric
type MetricReference struct {
	Name           string        `json:"name"`
	Unit           string        `json:"unit"`
	Description    string        `json:"description"`
	HigherIsBetter bool          `json:"higher_is_better"`
	Ranges         []MetricRange `json:"ranges"`
}

// ReferenceCatalog is the versioned metric -> range table document
// Loaded once at process start and immutable afterward, so it is safe to
// share across goroutines without locking
type ReferenceCatalog struct {
	Version     string                         `json:"version"`
	LastUpdated time.Time                      `json:"last_updated"`
	Metrics     map[MetricKey]MetricReference `json:"metrics"`
}

// Lookup resolves a metric key to its reference entry
func (c *ReferenceCatalog) Lookup(key MetricKey) (MetricReference, bool) {
	ref, ok := c.Metrics[key]
	return ref, ok
}

// Validate enforces the range invariants on every metric entry:
// non-empty range list, min < max per range, ranges sorted ascending by min,
// mutually non-overlapping, and status severity strictly monotonic in one
// direction (worst-to-best or best-to-worst)
func (c *ReferenceCatalog) Validate() error {
	if len(c.Metrics) == 0 {
		return fmt.Errorf("catalog has no metrics")
	}

	for key, ref := range c.Metrics {
		if len(ref.Ranges) == 0 {
			return fmt.Errorf("metric %q has no ranges", key)
		}

		for i, r := range ref.Ranges {
			if !IsValidHealthStatus(r.Level) {
				return fmt.Errorf("metric %q range %d has unknown level %q", key, i, r.Level)
			}
			if r.Min >= r.Max {
				return fmt.Errorf("metric %q range %d has min >= max (%g >= %g)", key, i, r.Min, r.Max)
			}
			if i == 0 {
				continue
			}
			prev := ref.Ranges[i-1]
			if r.Min < prev.Min {
				return fmt.Errorf("metric %q ranges not sorted ascending at index %d", key, i)
			}
			if r.Min < prev.Max {
				return fmt.Errorf("metric %q ranges overlap at index %d ([%g,%g) and [%g,%g))",
					key, i, prev.Min, prev.Max, r.Min, r.Max)
			}
		}

		if err := validateSeverityDirection(key, ref.Ranges); err != nil {
			return err
		}
	}

	return nil
}

// validateSeverityDirection checks that range levels progress strictly in one
// direction across the table
func validateSeverityDirection(key MetricKey, ranges []MetricRange) error {
	if len(ranges) < 2 {
		return nil
	}

	ascending := ranges[1].Level.Severity() > ranges[0].Level.Severity()
	for i := 1; i < len(ranges); i++ {
		prev := ranges[i-1].Level.Severity()
		cur := ranges[i].Level.Severity()
		if ascending && cur <= prev {
			return fmt.Errorf("metric %q severity not monotonic at index %d", key, i)
		}
		if !ascending && cur >= prev {
			return fmt.Errorf("metric %q severity not monotonic at index %d", key, i)
		}
	}
	return nil
}
