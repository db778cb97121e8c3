package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/pkg/logger"
)

type fakeLoadStore struct {
	readings []models.Reading
	err      error
	gotN     int
	gotUntil time.Time
}

func (s *fakeLoadStore) GetLatestReadings(_ context.Context, _ string, n int, until time.Time) ([]models.Reading, error) {
	s.gotN, s.gotUntil = n, until
	return s.readings, s.err
}

func (s *fakeLoadStore) Health(context.Context) error { return s.err }

func TestMeterAnalysis_AnalyzesStoredReadings(t *testing.T) {
	store := &fakeLoadStore{}
	for i := 0; i < 12; i++ {
		store.readings = append(store.readings, models.Reading{MeterID: "m-1", Timestamp: "2024-01-01 00:00:00", LoadKW: 500})
	}
	until := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	resp, err := NewMeterAnalysis(store, newTestPipeline(newRecordingMetrics()), logger.Nop()).
		Analyze(context.Background(), "m-1", 12, until)
	require.NoError(t, err)
	assert.Len(t, resp.Anomalies, 12)
	assert.Equal(t, 12, store.gotN)
	assert.Equal(t, until, store.gotUntil)
}

func TestMeterAnalysis_Errors(t *testing.T) {
	_, err := NewMeterAnalysis(nil, &countingAnalyzer{}, logger.Nop()).Analyze(context.Background(), "m", 5, time.Now())
	assert.ErrorIs(t, err, ErrReadingsUnavailable)

	store := &fakeLoadStore{err: errors.New("connection refused")}
	_, err = NewMeterAnalysis(store, &countingAnalyzer{}, logger.Nop()).Analyze(context.Background(), "m", 5, time.Now())
	assert.Equal(t, "InternalError", models.ErrorKind(err))

	empty := &fakeLoadStore{}
	_, err = NewMeterAnalysis(empty, newTestPipeline(newRecordingMetrics()), logger.Nop()).Analyze(context.Background(), "m", 5, time.Now())
	assert.True(t, errors.Is(err, models.ErrValidation))
}
