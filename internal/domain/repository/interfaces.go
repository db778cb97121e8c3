package repository

import (
	"context"
	"time"

	"GridAdvisor/internal/domain/models"
)

// LoadStore provides read-only access to stored meter readings.
type LoadStore interface {
	GetLatestReadings(ctx context.Context, meterID string, n int, until time.Time) ([]models.Reading, error)
	Health(ctx context.Context) error
}

// ResultPublisher delivers job results to the caller's reply channel.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res *models.AnalysisJobResult) error
	Close() error
}

// ResponseCache stores serialized analysis responses for identical inputs.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResponse, bool, error)
	Set(ctx context.Context, key string, resp *models.AnalysisResponse, ttl time.Duration) error
}

type Metrics interface {
	RecordStage(stage string, seconds float64)
	RecordOutcome(outcome string)
	RecordRecommendation(action string)
	RecordAnomalies(n int)
	RecordCache(result string)
}
