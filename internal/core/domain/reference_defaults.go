package domain

import "time"

// DefaultReferenceCatalog returns the compiled-in range table used when no
// external reference document is configured. Units: hrv in ms, heart rates in
// bpm, sleep in hours, activeCalories in kcal, exerciseMinutes in minutes.
func DefaultReferenceCatalog() *ReferenceCatalog {
	return &ReferenceCatalog{
		Version:     "builtin-1",
		LastUpdated: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Metrics: map[MetricKey]MetricReference{
			MetricHRV: {
				Name:           "Heart Rate Variability",
				Unit:           "ms",
				Description:    "SDNN heart rate variability",
				HigherIsBetter: true,
				Ranges: []MetricRange{
					rangeFor(StatusVeryPoor, 0, 20, "Very Low", "Well below the healthy range"),
					rangeFor(StatusPoor, 20, 35, "Low", "Below the healthy range"),
					rangeFor(StatusFair, 35, 50, "Moderate", "Within the lower healthy range"),
					rangeFor(StatusGood, 50, 65, "Good", "Healthy variability"),
					rangeFor(StatusExcellent, 65, 150, "Excellent", "High variability, strong recovery"),
				},
			},
			MetricRestingHeartRate: {
				Name:           "Resting Heart Rate",
				Unit:           "bpm",
				Description:    "Average resting heart rate",
				HigherIsBetter: false,
				Ranges: []MetricRange{
					rangeFor(StatusExcellent, 40, 60, "Athletic", "Typical of trained athletes"),
					rangeFor(StatusGood, 60, 70, "Good", "Healthy resting rate"),
					rangeFor(StatusFair, 70, 80, "Average", "Within the common range"),
					rangeFor(StatusPoor, 80, 90, "Elevated", "Above the healthy range"),
					rangeFor(StatusVeryPoor, 90, 120, "High", "Well above the healthy range"),
				},
			},
			MetricHeartRate: {
				Name:           "Heart Rate",
				Unit:           "bpm",
				Description:    "Average daytime heart rate",
				HigherIsBetter: false,
				Ranges: []MetricRange{
					rangeFor(StatusExcellent, 50, 70, "Excellent", "Low average heart rate"),
					rangeFor(StatusGood, 70, 85, "Good", "Healthy average rate"),
					rangeFor(StatusFair, 85, 100, "Average", "Within the common range"),
					rangeFor(StatusPoor, 100, 110, "Elevated", "Above the healthy range"),
					rangeFor(StatusVeryPoor, 110, 160, "High", "Well above the healthy range"),
				},
			},
			MetricSteps: {
				Name:           "Steps",
				Unit:           "steps",
				Description:    "Daily step count",
				HigherIsBetter: true,
				Ranges: []MetricRange{
					rangeFor(StatusVeryPoor, 0, 2500, "Sedentary", "Very low daily movement"),
					rangeFor(StatusPoor, 2500, 5000, "Low", "Below the recommended level"),
					rangeFor(StatusFair, 5000, 7500, "Moderate", "Approaching the recommended level"),
					rangeFor(StatusGood, 7500, 10000, "Active", "Near the daily goal"),
					rangeFor(StatusExcellent, 10000, 50000, "Very Active", "At or above the daily goal"),
				},
			},
			MetricSleep: {
				Name:           "Sleep Duration",
				Unit:           "hours",
				Description:    "Total nightly sleep",
				HigherIsBetter: true,
				Ranges: []MetricRange{
					rangeFor(StatusVeryPoor, 0, 5, "Very Short", "Severely restricted sleep"),
					rangeFor(StatusPoor, 5, 6, "Short", "Below the recommended duration"),
					rangeFor(StatusFair, 6, 7, "Borderline", "Slightly below the recommended duration"),
					rangeFor(StatusGood, 7, 8, "Good", "Within the recommended duration"),
					rangeFor(StatusExcellent, 8, 12, "Optimal", "Fully within the recommended duration"),
				},
			},
			MetricActiveCalories: {
				Name:           "Active Calories",
				Unit:           "kcal",
				Description:    "Active energy burned per day",
				HigherIsBetter: true,
				Ranges: []MetricRange{
					rangeFor(StatusVeryPoor, 0, 100, "Very Low", "Minimal active energy"),
					rangeFor(StatusPoor, 100, 250, "Low", "Below the daily target"),
					rangeFor(StatusFair, 250, 400, "Moderate", "Approaching the daily target"),
					rangeFor(StatusGood, 400, 600, "Good", "At the daily target"),
					rangeFor(StatusExcellent, 600, 2000, "Excellent", "Above the daily target"),
				},
			},
			MetricExerciseMinutes: {
				Name:           "Exercise Minutes",
				Unit:           "min",
				Description:    "Minutes of exercise per day",
				HigherIsBetter: true,
				Ranges: []MetricRange{
					rangeFor(StatusVeryPoor, 0, 10, "Very Low", "Minimal exercise"),
					rangeFor(StatusPoor, 10, 20, "Low", "Below the daily target"),
					rangeFor(StatusFair, 20, 30, "Moderate", "Approaching the daily target"),
					rangeFor(StatusGood, 30, 60, "Good", "At the daily target"),
					rangeFor(StatusExcellent, 60, 300, "Excellent", "Above the daily target"),
				},
			},
		},
	}
}

func rangeFor(level HealthStatus, min, max float64, label, comment string) MetricRange {
	return MetricRange{
		Level:   level,
		Min:     min,
		Max:     max,
		Label:   label,
		Color:   StatusColor(level),
		Comment: comment,
	}
}
