package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// RecordService implements business logic for daily health snapshots.
// Enforces ownership rules, composes daily summaries from the pure
// calculators, and publishes insight context and worst-bucket alerts.
type RecordService struct {
	recordRepo  ports.HealthRecordRepository
	evaluator   ports.Evaluator
	publisher   ports.InsightPublisher
	broadcaster ports.SummaryBroadcaster
}

// NewRecordService creates a new health record service.
// broadcaster may be nil when no realtime surface is wired.
func NewRecordService(
	recordRepo ports.HealthRecordRepository,
	evaluator ports.Evaluator,
	publisher ports.InsightPublisher,
	broadcaster ports.SummaryBroadcaster,
) *RecordService {
	return &RecordService{
		recordRepo:  recordRepo,
		evaluator:   evaluator,
		publisher:   publisher,
		broadcaster: broadcaster,
	}
}

// checkRecordAccess enforces ownership for writes: only the owner can ingest
// records; ADMIN has read-only access
func checkRecordAccess(userID, callerID uuid.UUID, isAdmin bool, write bool) error {
	if write {
		if isAdmin {
			return fmt.Errorf("forbidden: admin access is read-only")
		}
		if callerID != userID {
			// Don't leak ownership info
			return fmt.Errorf("record not found")
		}
		return nil
	}
	if isAdmin || callerID == userID {
		return nil
	}
	return fmt.Errorf("record not found")
}

// IngestSleepRecord validates and stores one day's sleep snapshot
func (s *RecordService) IngestSleepRecord(
	ctx context.Context,
	userID uuid.UUID,
	req ports.IngestSleepRequest,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.SleepRecord, error) {
	if err := checkRecordAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if req.TotalDuration < 0 || req.DeepSleep < 0 || req.RemSleep < 0 || req.LightSleep < 0 || req.AwakeTime < 0 {
		return nil, fmt.Errorf("sleep durations must be non-negative")
	}
	if req.DeepSleep+req.RemSleep+req.LightSleep > req.TotalDuration {
		return nil, fmt.Errorf("sleep stages exceed total duration")
	}

	record := &domain.SleepRecord{
		ID:            uuid.New(),
		UserID:        userID,
		Date:          dayOf(req.Date),
		TotalDuration: req.TotalDuration,
		DeepSleep:     req.DeepSleep,
		RemSleep:      req.RemSleep,
		LightSleep:    req.LightSleep,
		AwakeTime:     req.AwakeTime,
		HeartRateAvg:  req.HeartRateAvg,
		CreatedAt:     time.Now(),
	}

	if err := s.recordRepo.SaveSleepRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save sleep record: %w", err)
	}

	s.logRecord("sleep_record_saved", userID, record.Date, map[string]interface{}{
		"total_duration": record.TotalDuration,
		"quality":        string(record.Quality()),
	})

	s.publishSummaryAsync(userID, record.Date)
	return record, nil
}

// IngestActivityRecord validates and stores one day's activity snapshot
func (s *RecordService) IngestActivityRecord(
	ctx context.Context,
	userID uuid.UUID,
	req ports.IngestActivityRequest,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.ActivityRecord, error) {
	if err := checkRecordAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if req.Steps < 0 || req.ActiveCalories < 0 || req.ExerciseMinutes < 0 || req.StandHours < 0 || req.DistanceMeters < 0 {
		return nil, fmt.Errorf("activity values must be non-negative")
	}

	record := &domain.ActivityRecord{
		ID:              uuid.New(),
		UserID:          userID,
		Date:            dayOf(req.Date),
		Steps:           req.Steps,
		ActiveCalories:  req.ActiveCalories,
		ExerciseMinutes: req.ExerciseMinutes,
		StandHours:      req.StandHours,
		DistanceMeters:  req.DistanceMeters,
		CreatedAt:       time.Now(),
	}

	if err := s.recordRepo.SaveActivityRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save activity record: %w", err)
	}

	s.logRecord("activity_record_saved", userID, record.Date, map[string]interface{}{
		"steps": record.Steps,
		"score": record.Score(),
	})

	s.publishSummaryAsync(userID, record.Date)
	return record, nil
}

// IngestHeartRecord validates and stores one day's heart statistics
func (s *RecordService) IngestHeartRecord(
	ctx context.Context,
	userID uuid.UUID,
	req ports.IngestHeartRequest,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.HeartRecord, error) {
	if err := checkRecordAccess(userID, callerID, isAdmin, true); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if req.RestingHeartRate < 0 {
		return nil, fmt.Errorf("resting heart rate must be non-negative")
	}
	if req.HRV != nil && *req.HRV < 0 {
		return nil, fmt.Errorf("hrv must be non-negative")
	}

	record := &domain.HeartRecord{
		ID:               uuid.New(),
		UserID:           userID,
		Date:             dayOf(req.Date),
		RestingHeartRate: req.RestingHeartRate,
		HRV:              req.HRV,
		CreatedAt:        time.Now(),
	}

	if err := s.recordRepo.SaveHeartRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save heart record: %w", err)
	}

	s.logRecord("heart_record_saved", userID, record.Date, map[string]interface{}{
		"resting_heart_rate": record.RestingHeartRate,
		"hrv_status":         string(record.HRVStatus()),
	})

	// Worst-bucket resting HR evaluations raise an alert for the care loop,
	// published asynchronously so it never blocks the ingest path
	evaluation := s.evaluator.EvaluateRestingHeartRate(record.RestingHeartRate)
	if evaluation.Status == domain.StatusVeryPoor {
		alert := &domain.MetricAlert{
			UserID:     userID,
			Metric:     domain.MetricRestingHeartRate,
			Value:      record.RestingHeartRate,
			Evaluation: evaluation,
			Date:       record.Date.Format("2006-01-02"),
		}
		go func() {
			bgCtx := context.Background()
			if err := s.publisher.PublishAlert(bgCtx, alert); err != nil {
				log.Printf("Failed to publish metric alert: %v", err)
			}
		}()
	}

	s.publishSummaryAsync(userID, record.Date)
	return record, nil
}

// GetDailySummary composes evaluations and composite scores from whatever
// records exist for the date. Missing records leave their sections absent;
// the summary is deterministic for identical stored inputs.
func (s *RecordService) GetDailySummary(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
	callerID uuid.UUID,
	isAdmin bool,
) (*domain.DailySummary, error) {
	if err := checkRecordAccess(userID, callerID, isAdmin, false); err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, userID, dayOf(date))
}

// buildSummary assembles the summary without access checks; shared by the
// public path and the async publish path
func (s *RecordService) buildSummary(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.DailySummary, error) {
	summary := &domain.DailySummary{
		UserID:      userID,
		Date:        date.Format("2006-01-02"),
		Evaluations: make(map[domain.MetricKey]domain.MetricEvaluation),
	}

	sleep, err := s.recordRepo.GetSleepRecord(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get sleep record: %w", err)
	}
	if sleep != nil {
		quality := sleep.Quality()
		deep := sleep.DeepPercentage()
		rem := sleep.RemPercentage()
		summary.SleepQuality = &quality
		summary.SleepDuration = sleep.FormattedDuration()
		summary.DeepPercentage = &deep
		summary.RemPercentage = &rem
		summary.Evaluations[domain.MetricSleep] = s.evaluator.EvaluateSleep(sleep.Hours())
	}

	activity, err := s.recordRepo.GetActivityRecord(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity record: %w", err)
	}
	if activity != nil {
		score := activity.Score()
		summary.ActivityScore = &score
		summary.Evaluations[domain.MetricSteps] = s.evaluator.EvaluateSteps(activity.Steps)
		summary.Evaluations[domain.MetricActiveCalories] = s.evaluator.EvaluateActiveCalories(float64(activity.ActiveCalories))
		summary.Evaluations[domain.MetricExerciseMinutes] = s.evaluator.EvaluateExerciseMinutes(float64(activity.ExerciseMinutes))
	}

	heart, err := s.recordRepo.GetHeartRecord(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get heart record: %w", err)
	}
	if heart != nil {
		hrvStatus := heart.HRVStatus()
		restingStatus := heart.RestingHRStatus()
		summary.HRVStatus = &hrvStatus
		summary.RestingHRStatus = &restingStatus
		summary.Evaluations[domain.MetricRestingHeartRate] = s.evaluator.EvaluateRestingHeartRate(heart.RestingHeartRate)
		if heart.HRV != nil {
			summary.Evaluations[domain.MetricHRV] = s.evaluator.EvaluateHRV(*heart.HRV)
		}
	}

	return summary, nil
}

// publishSummaryAsync recomputes the day's summary and ships it to the
// insight queue and any connected realtime clients. Runs in a goroutine with
// a background context so a slow broker never blocks the ingest response.
func (s *RecordService) publishSummaryAsync(userID uuid.UUID, date time.Time) {
	go func() {
		bgCtx := context.Background()
		summary, err := s.buildSummary(bgCtx, userID, date)
		if err != nil {
			log.Printf("Failed to build summary for insight publish: %v", err)
			return
		}
		if err := s.publisher.PublishInsightContext(bgCtx, summary); err != nil {
			log.Printf("Failed to publish insight context: %v", err)
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastSummary(userID, summary)
		}
	}()
}

// logRecord logs a structured JSON entry for a stored record
func (s *RecordService) logRecord(event string, userID uuid.UUID, date time.Time, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"event":   event,
		"user_id": userID.String(),
		"date":    date.Format("2006-01-02"),
	}
	for k, v := range fields {
		logEntry[k] = v
	}

	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("Failed to marshal record log entry: %v", err)
		return
	}
	log.Printf("%s", string(jsonBytes))
}

// dayOf truncates a timestamp to its UTC calendar day
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Ensure RecordService implements the interface
var _ ports.HealthRecordService = (*RecordService)(nil)
