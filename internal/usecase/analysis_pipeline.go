package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	domsvc "GridAdvisor/internal/domain/service"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/pkg/logger"
)

const (
	StageValidate = "validate"
	StageForecast = "forecast"
	StageDetect   = "anomaly"
	StageDecide   = "decide"
	StageTotal    = "total"

	OutcomeOK = "ok"
)

// PipelineOption configures AnalysisPipeline.
type PipelineOption func(*AnalysisPipeline)

// WithFitTimeout bounds the combined forecast and detection step.
func WithFitTimeout(d time.Duration) PipelineOption {
	return func(p *AnalysisPipeline) {
		if d > 0 {
			p.fitTimeout = d
		}
	}
}

// WithConcurrentStages toggles running forecast and detection in parallel.
func WithConcurrentStages(on bool) PipelineOption {
	return func(p *AnalysisPipeline) { p.concurrent = on }
}

// WithMinLength overrides the minimum accepted series length.
func WithMinLength(n int) PipelineOption {
	return func(p *AnalysisPipeline) {
		if n > 0 {
			p.minLen = n
		}
	}
}

// AnalysisPipeline validates a raw request, forecasts and detects anomalies, then decides.
// A response is returned only when every stage succeeded.
type AnalysisPipeline struct {
	forecaster domsvc.Forecaster
	detector   domsvc.AnomalyDetector
	decider    domsvc.DecisionMaker
	metrics    domrepo.Metrics
	log        *logger.Logger

	minLen     int
	fitTimeout time.Duration
	concurrent bool
}

func NewAnalysisPipeline(
	forecaster domsvc.Forecaster,
	detector domsvc.AnomalyDetector,
	decider domsvc.DecisionMaker,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ...PipelineOption,
) *AnalysisPipeline {
	p := &AnalysisPipeline{
		forecaster: forecaster,
		detector:   detector,
		decider:    decider,
		metrics:    metrics,
		log:        log,
		minLen:     analytics.MinObservations(analytics.DefaultOrder),
		fitTimeout: 10 * time.Second,
		concurrent: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs the full pipeline. Errors from the stages are returned unchanged, so callers
// can classify them with errors.Is against models.ErrValidation and models.ErrModelFit.
func (p *AnalysisPipeline) Analyze(ctx context.Context, raw map[string]interface{}) (*models.AnalysisResponse, error) {
	start := time.Now()
	resp, err := p.analyze(ctx, raw)
	p.metrics.RecordStage(StageTotal, time.Since(start).Seconds())

	if err != nil {
		kind := models.ErrorKind(err)
		p.metrics.RecordOutcome(kind)
		if kind == "InternalError" {
			p.log.Error("analysis failed", logger.String("kind", kind), logger.Error(err))
		} else {
			p.log.Debug("analysis rejected", logger.String("kind", kind), logger.Error(err))
		}
		return nil, err
	}

	p.metrics.RecordOutcome(OutcomeOK)
	p.metrics.RecordRecommendation(string(resp.Recommendation))
	p.metrics.RecordAnomalies(resp.Anomalies.Count())
	p.log.Debug("analysis completed",
		logger.String("recommendation", string(resp.Recommendation)),
		logger.Float64("potential_savings", resp.Savings),
		logger.Int("anomalies", resp.Anomalies.Count()),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return resp, nil
}

func (p *AnalysisPipeline) analyze(ctx context.Context, raw map[string]interface{}) (*models.AnalysisResponse, error) {
	t := time.Now()
	series, err := analytics.ValidateSeries(raw, p.minLen)
	p.metrics.RecordStage(StageValidate, time.Since(t).Seconds())
	if err != nil {
		return nil, err
	}

	fitCtx, cancel := context.WithTimeout(ctx, p.fitTimeout)
	defer cancel()

	forecast, labels, err := p.fit(fitCtx, series)
	if err != nil {
		if !errors.Is(err, models.ErrModelFit) && errors.Is(err, context.DeadlineExceeded) {
			err = models.NewModelFitError(StageForecast, "fit exceeded wall-clock bound", err)
		}
		return nil, err
	}

	t = time.Now()
	rec := p.decider.Decide(series, forecast)
	p.metrics.RecordStage(StageDecide, time.Since(t).Seconds())

	return models.NewAnalysisResponse(forecast, labels, rec), nil
}

// fit runs forecasting and detection on independent copies of the series.
// The first failure cancels the other stage.
func (p *AnalysisPipeline) fit(ctx context.Context, series models.LoadSeries) (models.ForecastResult, models.AnomalyLabels, error) {
	var (
		forecast models.ForecastResult
		labels   models.AnomalyLabels
	)

	runForecast := func(ctx context.Context) error {
		t := time.Now()
		defer func() { p.metrics.RecordStage(StageForecast, time.Since(t).Seconds()) }()
		var err error
		forecast, err = p.forecaster.Forecast(ctx, series.Clone())
		return err
	}
	runDetect := func(ctx context.Context) error {
		t := time.Now()
		defer func() { p.metrics.RecordStage(StageDetect, time.Since(t).Seconds()) }()
		var err error
		labels, err = p.detector.Detect(ctx, series.Clone())
		return err
	}

	if !p.concurrent {
		if err := runForecast(ctx); err != nil {
			return forecast, nil, err
		}
		if err := runDetect(ctx); err != nil {
			return forecast, nil, err
		}
		return forecast, labels, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runForecast(gctx) })
	g.Go(func() error { return runDetect(gctx) })
	if err := g.Wait(); err != nil {
		return forecast, nil, err
	}
	return forecast, labels, nil
}

var _ domsvc.Analyzer = (*AnalysisPipeline)(nil)
