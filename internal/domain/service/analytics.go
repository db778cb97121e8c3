package service

import (
	"context"

	"GridAdvisor/internal/domain/models"
)

// Forecaster projects a short horizon from a validated load series.
type Forecaster interface {
	Forecast(ctx context.Context, series models.LoadSeries) (models.ForecastResult, error)
}

// AnomalyDetector labels every reading of a series as normal or anomalous.
type AnomalyDetector interface {
	Detect(ctx context.Context, series models.LoadSeries) (models.AnomalyLabels, error)
}

// DecisionMaker turns the series baseline and forecast into a recommendation.
type DecisionMaker interface {
	Decide(series models.LoadSeries, forecast models.ForecastResult) models.Recommendation
}

// Analyzer runs the full analysis on a raw request mapping.
type Analyzer interface {
	Analyze(ctx context.Context, raw map[string]interface{}) (*models.AnalysisResponse, error)
}
