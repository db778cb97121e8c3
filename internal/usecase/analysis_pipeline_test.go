package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/pkg/logger"
)

func TestAnalyze_ConstantSeries(t *testing.T) {
	m := newRecordingMetrics()
	resp, err := newTestPipeline(m).Analyze(context.Background(), constantRequest(30, 500))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{500, 500, 500}, resp.Forecast, 1e-9)
	assert.Len(t, resp.Anomalies, 30)
	assert.Zero(t, resp.Anomalies.Count())
	assert.Equal(t, models.ActionDischargeAndSell, resp.Recommendation)
	assert.Equal(t, 0.0, resp.Savings)
	assert.Equal(t, "GBP", resp.Currency)

	assert.Equal(t, 1, m.outcomes[OutcomeOK])
	assert.Equal(t, 1, m.actions[string(models.ActionDischargeAndSell)])
	assert.Equal(t, 1, m.stages[StageForecast])
	assert.Equal(t, 1, m.stages[StageDetect])
}

func TestAnalyze_ShapeAndSavings(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		resp, err := newTestPipeline(newRecordingMetrics(), WithConcurrentStages(concurrent)).
			Analyze(context.Background(), wavyRequest(40))
		require.NoError(t, err)
		assert.Len(t, resp.Forecast, 3)
		assert.Len(t, resp.Anomalies, 40)
		assert.GreaterOrEqual(t, resp.Savings, 0.0)
		assert.NotEqual(t, models.ActionHoldStandby, resp.Recommendation)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	p := newTestPipeline(newRecordingMetrics())
	first, err := p.Analyze(context.Background(), wavyRequest(50))
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), wavyRequest(50))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyze_ValidationErrors(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestPipeline(m)

	for name, raw := range map[string]map[string]interface{}{
		"empty":  {"load": []interface{}{}},
		"short":  {"load": []float64{1, 2, 3, 4}},
		"string": {"load": []interface{}{1.0, "x", 3.0, 4.0, 5.0}},
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := p.Analyze(context.Background(), raw)
			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, models.ErrValidation))
		})
	}
	assert.Equal(t, 3, m.outcomes["ValidationError"])
}

func TestAnalyze_ForecastFedBackIsTooShort(t *testing.T) {
	p := newTestPipeline(newRecordingMetrics())
	resp, err := p.Analyze(context.Background(), wavyRequest(20))
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), map[string]interface{}{"load": resp.Forecast})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestAnalyze_IterationCapIsModelFitError(t *testing.T) {
	p := NewAnalysisPipeline(
		analytics.NewARIMAForecaster(analytics.WithMaxIterations(1)),
		analytics.NewIsolationForest(),
		analytics.NewDecisionEngine(),
		newRecordingMetrics(),
		logger.Nop(),
	)
	resp, err := p.Analyze(context.Background(), wavyRequest(40))
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, models.ErrModelFit))
}

func TestAnalyze_StageFailureCancelsSibling(t *testing.T) {
	fitErr := models.NewModelFitError("forecast", "singular", nil)
	p := NewAnalysisPipeline(
		failingForecaster{err: fitErr},
		blockingDetector{},
		analytics.NewDecisionEngine(),
		newRecordingMetrics(),
		logger.Nop(),
	)

	done := make(chan error, 1)
	go func() {
		_, err := p.Analyze(context.Background(), wavyRequest(10))
		done <- err
	}()

	select {
	case err := <-done:
		assert.Equal(t, fitErr, err)
	case <-time.After(testTimeout):
		t.Fatal("pipeline did not cancel the detector")
	}
}

func TestAnalyze_FitTimeoutIsModelFitError(t *testing.T) {
	p := NewAnalysisPipeline(
		analytics.NewARIMAForecaster(),
		blockingDetector{},
		analytics.NewDecisionEngine(),
		newRecordingMetrics(),
		logger.Nop(),
		WithFitTimeout(20*time.Millisecond),
	)
	_, err := p.Analyze(context.Background(), wavyRequest(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrModelFit))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAnalyze_InternalErrorPassesThrough(t *testing.T) {
	m := newRecordingMetrics()
	boom := errors.New("boom")
	p := NewAnalysisPipeline(failingForecaster{err: boom}, analytics.NewIsolationForest(), analytics.NewDecisionEngine(), m, logger.Nop())

	_, err := p.Analyze(context.Background(), wavyRequest(10))
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, m.outcomes["InternalError"])
}
