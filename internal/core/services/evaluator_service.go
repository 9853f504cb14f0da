package services

import (
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// EvaluatorService classifies scalar readings against an injected reference
// catalog. The catalog is immutable after load, so the service is safe for
// concurrent use without locking.
type EvaluatorService struct {
	catalog *domain.ReferenceCatalog
}

// NewEvaluatorService creates an evaluator over a validated catalog
func NewEvaluatorService(catalog *domain.ReferenceCatalog) *EvaluatorService {
	return &EvaluatorService{catalog: catalog}
}

// Evaluate classifies a value against the catalog entry for a metric key.
// Unknown keys return the neutral fallback evaluation, never an error.
func (s *EvaluatorService) Evaluate(key domain.MetricKey, value float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(key, value)
}

// EvaluateSleep classifies a nightly sleep duration in hours
func (s *EvaluatorService) EvaluateSleep(hours float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricSleep, hours)
}

// EvaluateSteps classifies a daily step count
func (s *EvaluatorService) EvaluateSteps(steps int) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricSteps, float64(steps))
}

// EvaluateHRV classifies a heart rate variability reading in ms
func (s *EvaluatorService) EvaluateHRV(ms float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricHRV, ms)
}

// EvaluateRestingHeartRate classifies a resting heart rate in bpm
func (s *EvaluatorService) EvaluateRestingHeartRate(bpm float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricRestingHeartRate, bpm)
}

// EvaluateActiveCalories classifies a daily active energy burn in kcal
func (s *EvaluatorService) EvaluateActiveCalories(kcal float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricActiveCalories, kcal)
}

// EvaluateExerciseMinutes classifies daily exercise minutes
func (s *EvaluatorService) EvaluateExerciseMinutes(minutes float64) domain.MetricEvaluation {
	return s.catalog.Evaluate(domain.MetricExerciseMinutes, minutes)
}

// Ensure EvaluatorService implements the interface
var _ ports.Evaluator = (*EvaluatorService)(nil)
