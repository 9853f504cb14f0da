package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/trimwell/insight-service/internal/core/domain"
)

func buildSummary(userID uuid.UUID) *domain.DailySummary {
	quality := domain.StatusGood
	score := 72
	deep := 0.18
	return &domain.DailySummary{
		UserID: userID,
		Date:   "2025-03-05",
		Evaluations: map[domain.MetricKey]domain.MetricEvaluation{
			domain.MetricSleep: {Status: domain.StatusGood, Label: "Good", Percentile: 50},
			domain.MetricSteps: {Status: domain.StatusFair, Label: "Moderate", Percentile: 28},
		},
		SleepQuality:   &quality,
		SleepDuration:  "7h 30m",
		DeepPercentage: &deep,
		ActivityScore:  &score,
	}
}

func TestContextHash_Deterministic(t *testing.T) {
	userID := uuid.New()

	first := buildSummary(userID).ContextHash()
	second := buildSummary(userID).ContextHash()

	assert.NotEmpty(t, first)
	assert.Len(t, first, 64) // hex-encoded SHA-256
	assert.Equal(t, first, second)
}

func TestContextHash_SensitiveToContent(t *testing.T) {
	userID := uuid.New()

	base := buildSummary(userID)
	changed := buildSummary(userID)
	*changed.ActivityScore = 73

	assert.NotEqual(t, base.ContextHash(), changed.ContextHash())
}

func TestContextHash_SensitiveToUser(t *testing.T) {
	assert.NotEqual(t,
		buildSummary(uuid.New()).ContextHash(),
		buildSummary(uuid.New()).ContextHash())
}

func TestContextHash_EmptySummary(t *testing.T) {
	summary := &domain.DailySummary{UserID: uuid.Nil, Date: "2025-03-05"}
	assert.Len(t, summary.ContextHash(), 64)
}
