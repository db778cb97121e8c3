package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/pkg/logger"
)

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	cache    map[string]int
	stages   map[string]int
	actions  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		outcomes: map[string]int{},
		cache:    map[string]int{},
		stages:   map[string]int{},
		actions:  map[string]int{},
	}
}

func (m *recordingMetrics) RecordStage(stage string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage]++
}

func (m *recordingMetrics) RecordOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[o]++
}

func (m *recordingMetrics) RecordRecommendation(a string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[a]++
}

func (m *recordingMetrics) RecordAnomalies(int) {}

func (m *recordingMetrics) RecordCache(r string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[r]++
}

type failingForecaster struct{ err error }

func (f failingForecaster) Forecast(context.Context, models.LoadSeries) (models.ForecastResult, error) {
	return models.ForecastResult{}, f.err
}

// blockingDetector waits for cancellation.
type blockingDetector struct{}

func (blockingDetector) Detect(ctx context.Context, _ models.LoadSeries) (models.AnomalyLabels, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type countingAnalyzer struct {
	mu    sync.Mutex
	calls int
	resp  *models.AnalysisResponse
	err   error
}

func (a *countingAnalyzer) Analyze(context.Context, map[string]interface{}) (*models.AnalysisResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.resp, a.err
}

func newTestPipeline(m *recordingMetrics, opts ...PipelineOption) *AnalysisPipeline {
	return NewAnalysisPipeline(
		analytics.NewARIMAForecaster(),
		analytics.NewIsolationForest(),
		analytics.NewDecisionEngine(),
		m,
		logger.Nop(),
		opts...,
	)
}

func constantRequest(n int, v float64) map[string]interface{} {
	load := make([]interface{}, n)
	for i := range load {
		load[i] = v
	}
	return map[string]interface{}{"load": load}
}

func wavyRequest(n int) map[string]interface{} {
	load := make([]float64, n)
	for i := range load {
		load[i] = 300 + float64((i*37)%11)*4 + float64(i%7)
	}
	return map[string]interface{}{"load": load}
}

var errBroker = errors.New("broker unavailable")

const testTimeout = 5 * time.Second
