package domain

// MetricEvaluation is the status/label/percentile tuple produced for one
// scalar reading. Ephemeral: recomputed per call, never persisted.
// Percentile is range-relative (0-100), not a population percentile; 50 is
// reserved for degenerate and unknown cases.
type MetricEvaluation struct {
	Status     HealthStatus `json:"status"`
	Label      string       `json:"label"`
	Comment    string       `json:"comment"`
	Color      string       `json:"color"`
	Percentile float64      `json:"percentile"`
}

// UnknownEvaluation is the neutral fallback for unrecognized metric keys.
// Unknown metrics must never raise to the caller.
func UnknownEvaluation() MetricEvaluation {
	return MetricEvaluation{
		Status:     StatusFair,
		Label:      "Unknown",
		Comment:    "No data available",
		Color:      NeutralColor,
		Percentile: 50,
	}
}

// Evaluate classifies a value against the catalog's range table for a metric.
//
// Unknown keys return the neutral fallback. Values below the first range take
// the first range's classification at percentile 0; values at or above the
// last range's max take the last range's classification at percentile 100
// (clamped, not extrapolated).
func (c *ReferenceCatalog) Evaluate(key MetricKey, value float64) MetricEvaluation {
	ref, ok := c.Lookup(key)
	if !ok || len(ref.Ranges) == 0 {
		return UnknownEvaluation()
	}

	for _, r := range ref.Ranges {
		if value >= r.Min && value < r.Max {
			return rangeEvaluation(r, rangePercentile(r, value))
		}
	}

	first := ref.Ranges[0]
	last := ref.Ranges[len(ref.Ranges)-1]

	if value < first.Min {
		return rangeEvaluation(first, 0)
	}
	if value >= last.Max {
		return rangeEvaluation(last, 100)
	}

	// Unreachable with well-formed (contiguous) ranges; a gap between ranges
	// lands here
	return UnknownEvaluation()
}

// rangePercentile positions a value within its matched range on a 0-100 scale
func rangePercentile(r MetricRange, value float64) float64 {
	if r.Max == r.Min {
		return 50
	}
	pct := (value - r.Min) / (r.Max - r.Min) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func rangeEvaluation(r MetricRange, percentile float64) MetricEvaluation {
	return MetricEvaluation{
		Status:     r.Level,
		Label:      r.Label,
		Comment:    r.Comment,
		Color:      r.Color,
		Percentile: percentile,
	}
}
