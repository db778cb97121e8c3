package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/pkg/logger"
)

type fakeResultPublisher struct {
	mu      sync.Mutex
	results []*models.AnalysisJobResult
	err     error
}

func (p *fakeResultPublisher) PublishResult(_ context.Context, res *models.AnalysisJobResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, res)
	return nil
}

func (p *fakeResultPublisher) Close() error { return nil }

func TestJobHandler_PublishesSuccess(t *testing.T) {
	pub := &fakeResultPublisher{}
	h := NewAnalysisJobHandler("analysis.requests", newTestPipeline(newRecordingMetrics()), pub, logger.Nop())
	assert.Equal(t, "analysis.requests", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"request_id":"r-1","load":[500,500,500,500,500,500,500,500,500,500]}`))
	require.NoError(t, err)

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.Equal(t, "r-1", res.RequestID)
	assert.True(t, res.OK)
	require.NotNil(t, res.Result)
	assert.Equal(t, models.ActionDischargeAndSell, res.Result.Recommendation)
	assert.Nil(t, res.Error)
}

func TestJobHandler_PublishesDomainErrors(t *testing.T) {
	pub := &fakeResultPublisher{}
	h := NewAnalysisJobHandler("jobs", newTestPipeline(newRecordingMetrics()), pub, logger.Nop())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"request_id":"r-2","load":[1,2]}`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`not json`)))

	require.Len(t, pub.results, 2)
	assert.Equal(t, "r-2", pub.results[0].RequestID)
	assert.False(t, pub.results[0].OK)
	assert.Equal(t, "ValidationError", pub.results[0].Error.Kind)
	assert.Equal(t, "", pub.results[1].RequestID)
	assert.Equal(t, "ValidationError", pub.results[1].Error.Kind)
}

func TestJobHandler_PublishFailureIsReturned(t *testing.T) {
	pub := &fakeResultPublisher{err: errBroker}
	h := NewAnalysisJobHandler("jobs", &countingAnalyzer{resp: sampleResponse()}, pub, logger.Nop())

	err := h.Handle(context.Background(), []byte(`{"request_id":"r-3","load":[1,2,3,4,5]}`))
	assert.True(t, errors.Is(err, errBroker))
}
