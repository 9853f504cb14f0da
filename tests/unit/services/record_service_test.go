package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
	"github.com/trimwell/insight-service/internal/core/services"
)

// MockHealthRecordRepository is a mock implementation of ports.HealthRecordRepository
type MockHealthRecordRepository struct {
	mock.Mock
}

func (m *MockHealthRecordRepository) SaveSleepRecord(ctx context.Context, record *domain.SleepRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHealthRecordRepository) SaveActivityRecord(ctx context.Context, record *domain.ActivityRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHealthRecordRepository) SaveHeartRecord(ctx context.Context, record *domain.HeartRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHealthRecordRepository) GetSleepRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.SleepRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SleepRecord), args.Error(1)
}

func (m *MockHealthRecordRepository) GetActivityRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.ActivityRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActivityRecord), args.Error(1)
}

func (m *MockHealthRecordRepository) GetHeartRecord(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.HeartRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HeartRecord), args.Error(1)
}

// MockInsightPublisher is a mock implementation of ports.InsightPublisher
type MockInsightPublisher struct {
	mock.Mock
}

func (m *MockInsightPublisher) PublishInsightContext(ctx context.Context, summary *domain.DailySummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockInsightPublisher) PublishAlert(ctx context.Context, alert *domain.MetricAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func newRecordService(repo *MockHealthRecordRepository, publisher *MockInsightPublisher) *services.RecordService {
	evaluator := services.NewEvaluatorService(domain.DefaultReferenceCatalog())
	return services.NewRecordService(repo, evaluator, publisher, nil)
}

// allowAsyncPublish registers optional expectations for the background
// summary publish so goroutine timing never fails a test
func allowAsyncPublish(repo *MockHealthRecordRepository, publisher *MockInsightPublisher) {
	repo.On("GetSleepRecord", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	repo.On("GetActivityRecord", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	repo.On("GetHeartRecord", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	publisher.On("PublishInsightContext", mock.Anything, mock.Anything).Return(nil).Maybe()
	publisher.On("PublishAlert", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func TestRecordService_IngestSleepRecord_Success(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	repo.On("SaveSleepRecord", mock.Anything, mock.AnythingOfType("*domain.SleepRecord")).Return(nil)
	allowAsyncPublish(repo, publisher)

	req := ports.IngestSleepRequest{
		Date:          time.Date(2025, 3, 5, 23, 15, 0, 0, time.UTC),
		TotalDuration: 8 * 3600,
		DeepSleep:     2 * 3600,
		RemSleep:      2 * 3600,
		LightSleep:    4 * 3600,
	}

	record, err := service.IngestSleepRecord(context.Background(), userID, req, userID, false)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, userID, record.UserID)
	// Timestamp truncated to the UTC day
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), record.Date)
	assert.Equal(t, domain.StatusExcellent, record.Quality())
	repo.AssertCalled(t, "SaveSleepRecord", mock.Anything, mock.AnythingOfType("*domain.SleepRecord"))
}

func TestRecordService_IngestSleepRecord_AdminForbidden(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	req := ports.IngestSleepRequest{Date: time.Now(), TotalDuration: 3600}

	record, err := service.IngestSleepRecord(context.Background(), userID, req, uuid.New(), true)

	assert.Error(t, err)
	assert.Nil(t, record)
	assert.Contains(t, err.Error(), "forbidden")
	repo.AssertNotCalled(t, "SaveSleepRecord")
}

func TestRecordService_IngestSleepRecord_NonOwnerHidden(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	req := ports.IngestSleepRequest{Date: time.Now(), TotalDuration: 3600}

	record, err := service.IngestSleepRecord(context.Background(), uuid.New(), req, uuid.New(), false)

	assert.Error(t, err)
	assert.Nil(t, record)
	// Ownership failures read as absence, never as "someone else's data"
	assert.Contains(t, err.Error(), "not found")
	repo.AssertNotCalled(t, "SaveSleepRecord")
}

func TestRecordService_IngestSleepRecord_StagesExceedTotal(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	req := ports.IngestSleepRequest{
		Date:          time.Now(),
		TotalDuration: 3600,
		DeepSleep:     3000,
		RemSleep:      3000,
	}

	record, err := service.IngestSleepRecord(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Nil(t, record)
	assert.Contains(t, err.Error(), "exceed total duration")
	repo.AssertNotCalled(t, "SaveSleepRecord")
}

func TestRecordService_IngestSleepRecord_DateRequired(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	req := ports.IngestSleepRequest{TotalDuration: 3600}

	_, err := service.IngestSleepRecord(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "date is required")
}

func TestRecordService_IngestActivityRecord_Success(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	repo.On("SaveActivityRecord", mock.Anything, mock.AnythingOfType("*domain.ActivityRecord")).Return(nil)
	allowAsyncPublish(repo, publisher)

	req := ports.IngestActivityRequest{
		Date:            time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC),
		Steps:           10000,
		ActiveCalories:  500,
		ExerciseMinutes: 30,
		StandHours:      12,
	}

	record, err := service.IngestActivityRecord(context.Background(), userID, req, userID, false)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 100, record.Score())
}

func TestRecordService_IngestActivityRecord_NegativeValues(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	req := ports.IngestActivityRequest{Date: time.Now(), Steps: -5}

	_, err := service.IngestActivityRecord(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
	repo.AssertNotCalled(t, "SaveActivityRecord")
}

func TestRecordService_IngestHeartRecord_Success(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	hrv := 55.0
	repo.On("SaveHeartRecord", mock.Anything, mock.AnythingOfType("*domain.HeartRecord")).Return(nil)
	allowAsyncPublish(repo, publisher)

	req := ports.IngestHeartRequest{
		Date:             time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC),
		RestingHeartRate: 62,
		HRV:              &hrv,
	}

	record, err := service.IngestHeartRecord(context.Background(), userID, req, userID, false)

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.HRVExcellent, record.HRVStatus())
	assert.Equal(t, domain.RestingHRExcellent, record.RestingHRStatus())
}

func TestRecordService_GetDailySummary_AllRecords(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	hrv := 55.0

	repo.On("GetSleepRecord", mock.Anything, userID, date).Return(&domain.SleepRecord{
		UserID:        userID,
		Date:          date,
		TotalDuration: 7.5 * 3600,
		DeepSleep:     1.5 * 3600,
		RemSleep:      1.5 * 3600,
	}, nil)
	repo.On("GetActivityRecord", mock.Anything, userID, date).Return(&domain.ActivityRecord{
		UserID:          userID,
		Date:            date,
		Steps:           8200,
		ActiveCalories:  450,
		ExerciseMinutes: 25,
		StandHours:      10,
	}, nil)
	repo.On("GetHeartRecord", mock.Anything, userID, date).Return(&domain.HeartRecord{
		UserID:           userID,
		Date:             date,
		RestingHeartRate: 62,
		HRV:              &hrv,
	}, nil)

	summary, err := service.GetDailySummary(context.Background(), userID, date, userID, false)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "2025-03-05", summary.Date)

	require.NotNil(t, summary.SleepQuality)
	assert.Equal(t, domain.StatusExcellent, *summary.SleepQuality)
	assert.Equal(t, "7h 30m", summary.SleepDuration)

	require.NotNil(t, summary.ActivityScore)
	assert.Equal(t, 24+25+16+18, *summary.ActivityScore)

	require.NotNil(t, summary.HRVStatus)
	assert.Equal(t, domain.HRVExcellent, *summary.HRVStatus)
	require.NotNil(t, summary.RestingHRStatus)
	assert.Equal(t, domain.RestingHRExcellent, *summary.RestingHRStatus)

	// All six scalar evaluations present
	assert.Len(t, summary.Evaluations, 6)
	assert.Equal(t, domain.StatusGood, summary.Evaluations[domain.MetricSleep].Status)
	assert.Equal(t, domain.StatusGood, summary.Evaluations[domain.MetricSteps].Status)
	assert.Equal(t, domain.StatusGood, summary.Evaluations[domain.MetricHRV].Status)

	repo.AssertExpectations(t)
}

func TestRecordService_GetDailySummary_NoRecords(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	repo.On("GetSleepRecord", mock.Anything, userID, date).Return(nil, nil)
	repo.On("GetActivityRecord", mock.Anything, userID, date).Return(nil, nil)
	repo.On("GetHeartRecord", mock.Anything, userID, date).Return(nil, nil)

	summary, err := service.GetDailySummary(context.Background(), userID, date, userID, false)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Nil(t, summary.SleepQuality)
	assert.Nil(t, summary.ActivityScore)
	assert.Nil(t, summary.HRVStatus)
	assert.Empty(t, summary.Evaluations)
}

func TestRecordService_GetDailySummary_AdminCanRead(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	userID := uuid.New()
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	repo.On("GetSleepRecord", mock.Anything, userID, date).Return(nil, nil)
	repo.On("GetActivityRecord", mock.Anything, userID, date).Return(nil, nil)
	repo.On("GetHeartRecord", mock.Anything, userID, date).Return(nil, nil)

	summary, err := service.GetDailySummary(context.Background(), userID, date, uuid.New(), true)

	require.NoError(t, err)
	assert.NotNil(t, summary)
}

func TestRecordService_GetDailySummary_NonOwnerHidden(t *testing.T) {
	repo := new(MockHealthRecordRepository)
	publisher := new(MockInsightPublisher)
	service := newRecordService(repo, publisher)

	summary, err := service.GetDailySummary(context.Background(), uuid.New(), time.Now(), uuid.New(), false)

	assert.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "not found")
	repo.AssertNotCalled(t, "GetSleepRecord")
}
