package services_test

import (
	"context"
	"errors"
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

// MockTreatmentRepository is a mock implementation of ports.TreatmentRepository
type MockTreatmentRepository struct {
	mock.Mock
}

func (m *MockTreatmentRepository) CreateTreatment(ctx context.Context, treatment *domain.GLP1Treatment) error {
	args := m.Called(ctx, treatment)
	return args.Error(0)
}

func (m *MockTreatmentRepository) GetActiveTreatment(ctx context.Context, userID uuid.UUID) (*domain.GLP1Treatment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GLP1Treatment), args.Error(1)
}

func (m *MockTreatmentRepository) UpdateDose(ctx context.Context, treatmentID uuid.UUID, dose float64, doseStartDate time.Time) error {
	args := m.Called(ctx, treatmentID, dose, doseStartDate)
	return args.Error(0)
}

func (m *MockTreatmentRepository) CreateMedicationLog(ctx context.Context, logEntry *domain.MedicationLog) error {
	args := m.Called(ctx, logEntry)
	return args.Error(0)
}

func (m *MockTreatmentRepository) ListMedicationLogs(ctx context.Context, treatmentID uuid.UUID, limit *int) ([]*domain.MedicationLog, error) {
	args := m.Called(ctx, treatmentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MedicationLog), args.Error(1)
}

// MockWeightRepository is a mock implementation of ports.WeightRepository
type MockWeightRepository struct {
	mock.Mock
}

func (m *MockWeightRepository) CreateWeightEntry(ctx context.Context, entry *domain.WeightEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWeightRepository) GetLatestWeight(ctx context.Context, userID uuid.UUID) (*domain.WeightEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeightEntry), args.Error(1)
}

func (m *MockWeightRepository) ListWeightEntries(ctx context.Context, userID uuid.UUID, limit *int) ([]*domain.WeightEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.WeightEntry), args.Error(1)
}

func floatPtr(v float64) *float64 { return &v }

func activeSemaglutide(userID uuid.UUID, now time.Time, weeksOnDose int) *domain.GLP1Treatment {
	doseStart := now.AddDate(0, 0, -7*weeksOnDose)
	return &domain.GLP1Treatment{
		ID:                   uuid.New(),
		UserID:               userID,
		Medication:           domain.MedicationSemaglutide,
		StartDate:            doseStart,
		StartWeight:          100,
		TargetWeight:         floatPtr(85),
		CurrentDose:          0.25,
		CurrentDoseStartDate: doseStart,
		Active:               true,
		CreatedAt:            doseStart,
		UpdatedAt:            doseStart,
	}
}

func TestTreatmentService_CreateTreatment_Success(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(nil, nil)
	treatmentRepo.On("CreateTreatment", mock.Anything, mock.AnythingOfType("*domain.GLP1Treatment")).Return(nil)

	req := ports.CreateTreatmentRequest{
		Medication:   "semaglutide",
		StartWeight:  100,
		TargetWeight: floatPtr(85),
		CurrentDose:  0.25,
	}

	treatment, err := service.CreateTreatment(context.Background(), userID, req, userID, false)

	require.NoError(t, err)
	require.NotNil(t, treatment)
	assert.Equal(t, domain.MedicationSemaglutide, treatment.Medication)
	assert.True(t, treatment.Active)
	assert.False(t, treatment.StartDate.IsZero())
	assert.Equal(t, treatment.StartDate, treatment.CurrentDoseStartDate)
	treatmentRepo.AssertExpectations(t)
}

func TestTreatmentService_CreateTreatment_AlreadyActive(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).
		Return(activeSemaglutide(userID, time.Now(), 1), nil)

	req := ports.CreateTreatmentRequest{Medication: "semaglutide", StartWeight: 100, CurrentDose: 0.25}

	treatment, err := service.CreateTreatment(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Nil(t, treatment)
	assert.Contains(t, err.Error(), "already has an active treatment")
	treatmentRepo.AssertNotCalled(t, "CreateTreatment")
}

func TestTreatmentService_CreateTreatment_DoseNotInSchedule(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(nil, nil)

	req := ports.CreateTreatmentRequest{Medication: "semaglutide", StartWeight: 100, CurrentDose: 0.3}

	treatment, err := service.CreateTreatment(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Nil(t, treatment)
	assert.True(t, services.IsInvariantViolation(err))
	treatmentRepo.AssertNotCalled(t, "CreateTreatment")
}

func TestTreatmentService_CreateTreatment_TargetAboveStart(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(nil, nil)

	req := ports.CreateTreatmentRequest{
		Medication:   "semaglutide",
		StartWeight:  100,
		TargetWeight: floatPtr(100),
		CurrentDose:  0.25,
	}

	_, err := service.CreateTreatment(context.Background(), userID, req, userID, false)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target weight must be below start weight")
}

func TestTreatmentService_CreateTreatment_AdminForbidden(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	req := ports.CreateTreatmentRequest{Medication: "semaglutide", StartWeight: 100, CurrentDose: 0.25}

	_, err := service.CreateTreatment(context.Background(), userID, req, uuid.New(), true)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
	treatmentRepo.AssertNotCalled(t, "GetActiveTreatment")
}

func TestTreatmentService_GetTreatment_NotFound(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(nil, nil)

	treatment, err := service.GetTreatment(context.Background(), userID, userID, false)

	assert.Error(t, err)
	assert.Nil(t, treatment)
	assert.Contains(t, err.Error(), "treatment not found")
}

func TestTreatmentService_GetProgression_WithWeight(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC) // Wednesday
	treatment := activeSemaglutide(userID, now, 4)
	day := 5
	treatment.PreferredInjectionDay = &day // Friday

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)
	weightRepo.On("GetLatestWeight", mock.Anything, userID).Return(&domain.WeightEntry{
		ID: uuid.New(), UserID: userID, Weight: 94, RecordedAt: now,
	}, nil)

	progression, err := service.GetProgression(context.Background(), userID, now, userID, false)

	require.NoError(t, err)
	require.NotNil(t, progression)
	assert.Equal(t, domain.MedicationSemaglutide, progression.Medication)
	assert.Equal(t, 0.25, progression.CurrentDose)
	assert.Equal(t, 0, progression.CurrentDoseIndex)
	require.NotNil(t, progression.NextDose)
	assert.Equal(t, 0.5, *progression.NextDose)
	assert.False(t, progression.IsAtMaxDose)
	assert.Equal(t, 4, progression.WeeksOnCurrentDose)
	assert.True(t, progression.IsReadyForDoseIncrease)
	require.NotNil(t, progression.NextInjectionDate)
	assert.Equal(t, "2025-04-04", *progression.NextInjectionDate)

	require.NotNil(t, progression.WeightLoss)
	require.NotNil(t, progression.TotalLost)
	assert.InDelta(t, 6.0, *progression.TotalLost, 0.0001)
	require.NotNil(t, progression.PercentageLost)
	assert.InDelta(t, 6.0, *progression.PercentageLost, 0.0001)
	require.NotNil(t, progression.WeeklyAverage)
	assert.InDelta(t, 1.5, *progression.WeeklyAverage, 0.0001)
	require.NotNil(t, progression.Pace)
	assert.Equal(t, domain.PaceTooFast, *progression.Pace)
	require.NotNil(t, progression.ProgressToTarget)
	assert.InDelta(t, 40.0, *progression.ProgressToTarget, 0.0001)
}

func TestTreatmentService_GetProgression_NoWeight(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(activeSemaglutide(userID, now, 2), nil)
	weightRepo.On("GetLatestWeight", mock.Anything, userID).Return(nil, nil)

	progression, err := service.GetProgression(context.Background(), userID, now, userID, false)

	require.NoError(t, err)
	assert.Nil(t, progression.WeightLoss)
	assert.Nil(t, progression.TotalLost)
	assert.Nil(t, progression.Pace)
	assert.Nil(t, progression.ProgressToTarget)
	assert.Equal(t, 2, progression.WeeksOnCurrentDose)
	assert.False(t, progression.IsReadyForDoseIncrease)
}

func TestTreatmentService_GetProgression_CorruptDose(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatment := activeSemaglutide(userID, now, 4)
	treatment.CurrentDose = 3.0 // not in the semaglutide schedule

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)

	progression, err := service.GetProgression(context.Background(), userID, now, userID, false)

	assert.Error(t, err)
	assert.Nil(t, progression)
	assert.True(t, services.IsInvariantViolation(err))
}

func TestTreatmentService_EscalateDose_Success(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatment := activeSemaglutide(userID, now, 4)

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)
	treatmentRepo.On("UpdateDose", mock.Anything, treatment.ID, 0.5, now).Return(nil)
	treatmentRepo.On("CreateMedicationLog", mock.Anything, mock.MatchedBy(func(entry *domain.MedicationLog) bool {
		return entry.Type == domain.LogTypeDoseChange && entry.Dose == 0.5
	})).Return(nil)

	updated, err := service.EscalateDose(context.Background(), userID, now, userID, false)

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 0.5, updated.CurrentDose)
	assert.Equal(t, now, updated.CurrentDoseStartDate)
	treatmentRepo.AssertExpectations(t)
}

func TestTreatmentService_EscalateDose_NotReady(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(activeSemaglutide(userID, now, 2), nil)

	updated, err := service.EscalateDose(context.Background(), userID, now, userID, false)

	assert.Error(t, err)
	assert.Nil(t, updated)
	assert.Contains(t, err.Error(), "not ready for dose increase")
	treatmentRepo.AssertNotCalled(t, "UpdateDose")
}

func TestTreatmentService_EscalateDose_AtMaxDose(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatment := activeSemaglutide(userID, now, 8)
	treatment.CurrentDose = 2.4

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)

	updated, err := service.EscalateDose(context.Background(), userID, now, userID, false)

	assert.Error(t, err)
	assert.Nil(t, updated)
	assert.Contains(t, err.Error(), "maximum dose")
	treatmentRepo.AssertNotCalled(t, "UpdateDose")
}

func TestTreatmentService_EscalateDose_LogFailureDoesNotRollBack(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatment := activeSemaglutide(userID, now, 4)

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)
	treatmentRepo.On("UpdateDose", mock.Anything, treatment.ID, 0.5, now).Return(nil)
	treatmentRepo.On("CreateMedicationLog", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	updated, err := service.EscalateDose(context.Background(), userID, now, userID, false)

	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.CurrentDose)
}

func TestTreatmentService_LogInjection_Success(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	now := time.Now().UTC()
	treatment := activeSemaglutide(userID, now, 1)

	treatmentRepo.On("GetActiveTreatment", mock.Anything, userID).Return(treatment, nil)
	treatmentRepo.On("CreateMedicationLog", mock.Anything, mock.MatchedBy(func(entry *domain.MedicationLog) bool {
		return entry.Type == domain.LogTypeInjection && entry.Dose == treatment.CurrentDose
	})).Return(nil)

	logEntry, err := service.LogInjection(context.Background(), userID, now, userID, false)

	require.NoError(t, err)
	require.NotNil(t, logEntry)
	assert.Equal(t, treatment.ID, logEntry.TreatmentID)
	assert.Equal(t, now, logEntry.LoggedAt)
}

func TestTreatmentService_AddWeightEntry_Validation(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()

	_, err := service.AddWeightEntry(context.Background(), userID, ports.AddWeightRequest{Weight: 0}, userID, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "weight must be positive")

	_, err = service.AddWeightEntry(context.Background(), userID, ports.AddWeightRequest{Weight: 90, BodyFat: floatPtr(120)}, userID, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "body fat")

	weightRepo.AssertNotCalled(t, "CreateWeightEntry")
}

func TestTreatmentService_AddWeightEntry_Success(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	weightRepo.On("CreateWeightEntry", mock.Anything, mock.AnythingOfType("*domain.WeightEntry")).Return(nil)

	entry, err := service.AddWeightEntry(context.Background(), userID, ports.AddWeightRequest{Weight: 92.5}, userID, false)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 92.5, entry.Weight)
	assert.False(t, entry.RecordedAt.IsZero())
}

func TestTreatmentService_ListWeightEntries_InvalidLimit(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	limit := 0

	entries, err := service.ListWeightEntries(context.Background(), userID, &limit, userID, false)

	assert.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "limit must be greater than 0")
}

func TestTreatmentService_ListWeightEntries_Success(t *testing.T) {
	treatmentRepo := new(MockTreatmentRepository)
	weightRepo := new(MockWeightRepository)
	service := services.NewTreatmentService(treatmentRepo, weightRepo)

	userID := uuid.New()
	limit := 10
	expected := []*domain.WeightEntry{{ID: uuid.New(), UserID: userID, Weight: 94}}
	weightRepo.On("ListWeightEntries", mock.Anything, userID, &limit).Return(expected, nil)

	entries, err := service.ListWeightEntries(context.Background(), userID, &limit, userID, false)

	require.NoError(t, err)
	assert.Equal(t, expected, entries)
}
