package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/internal/repository"
	"GridAdvisor/pkg/cache"
	"GridAdvisor/pkg/logger"
)

func sampleResponse() *models.AnalysisResponse {
	return &models.AnalysisResponse{
		Forecast:       []float64{1, 2, 3},
		Anomalies:      models.AnomalyLabels{1, 1, 1, 1, -1},
		Recommendation: models.ActionBuyAndStore,
		Savings:        10,
		Currency:       "GBP",
	}
}

func TestCachedAnalyzer_HitAfterMiss(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	inner := &countingAnalyzer{resp: sampleResponse()}
	m := newRecordingMetrics()
	a := NewCachedAnalyzer(inner, repository.NewResponseCache(mem), m, logger.Nop(), time.Minute, "cfg-1")

	req := map[string]interface{}{"load": []float64{1, 2, 3, 4, 5}}
	first, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), map[string]interface{}{"load": []interface{}{1.0, 2.0, 3.0, 4.0, 5.0}})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.cache[CacheMiss])
	assert.Equal(t, 1, m.cache[CacheHit])
}

func TestCachedAnalyzer_FingerprintSeparatesConfigs(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	store := repository.NewResponseCache(mem)
	inner := &countingAnalyzer{resp: sampleResponse()}
	req := map[string]interface{}{"load": []float64{1, 2, 3, 4, 5}}

	for _, fp := range []string{"price=50", "price=60"} {
		_, err := NewCachedAnalyzer(inner, store, newRecordingMetrics(), logger.Nop(), time.Minute, fp).
			Analyze(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCachedAnalyzer_ErrorsNotCached(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	inner := &countingAnalyzer{err: models.NewModelFitError("forecast", "diverged", nil)}
	a := NewCachedAnalyzer(inner, repository.NewResponseCache(mem), newRecordingMetrics(), logger.Nop(), time.Minute, "")

	req := map[string]interface{}{"load": []float64{1, 2, 3, 4, 5}}
	for i := 0; i < 2; i++ {
		_, err := a.Analyze(context.Background(), req)
		assert.True(t, errors.Is(err, models.ErrModelFit))
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, mem.Len())
}

func TestCachedAnalyzer_InvalidInputDelegates(t *testing.T) {
	p := newTestPipeline(newRecordingMetrics())
	mem := cache.NewMemoryCache()
	defer mem.Close()
	a := NewCachedAnalyzer(p, repository.NewResponseCache(mem), newRecordingMetrics(), logger.Nop(), time.Minute, "")

	_, err := a.Analyze(context.Background(), map[string]interface{}{"load": []float64{}})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestCachedAnalyzer_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "grid")
	defer rc.Close()
	mr.Close()

	inner := &countingAnalyzer{resp: sampleResponse()}
	m := newRecordingMetrics()
	a := NewCachedAnalyzer(inner, repository.NewResponseCache(rc), m, logger.Nop(), time.Minute, "")

	resp, err := a.Analyze(context.Background(), map[string]interface{}{"load": []float64{1, 2, 3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, sampleResponse(), resp)
	assert.Equal(t, 1, m.cache[CacheError])
}
