package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	domsvc "GridAdvisor/internal/domain/service"
	pkgkafka "GridAdvisor/pkg/kafka"
	"GridAdvisor/pkg/logger"
)

// FieldRequestID correlates a job with its published result.
const FieldRequestID = "request_id"

// AnalysisJobHandler consumes analysis jobs and publishes one result per job.
// Analysis failures are part of the result and are not retried. Only a failed publish is
// returned as an error, which lets the consumer retry or dead-letter the job.
type AnalysisJobHandler struct {
	topic     string
	analyzer  domsvc.Analyzer
	publisher domrepo.ResultPublisher
	log       *logger.Logger
}

func NewAnalysisJobHandler(topic string, analyzer domsvc.Analyzer, publisher domrepo.ResultPublisher, log *logger.Logger) *AnalysisJobHandler {
	return &AnalysisJobHandler{topic: topic, analyzer: analyzer, publisher: publisher, log: log}
}

func (h *AnalysisJobHandler) Topic() string { return h.topic }

func (h *AnalysisJobHandler) Handle(ctx context.Context, data []byte) error {
	res := h.run(ctx, data)

	l := h.log.With(logger.String("request_id", res.RequestID))
	if tid := pkgkafka.TraceIDFromContext(ctx); tid != "" {
		l = l.With(logger.String("trace_id", tid))
	}

	if err := h.publisher.PublishResult(ctx, res); err != nil {
		l.Error("publish analysis result failed", logger.Error(err))
		return fmt.Errorf("publish result %q: %w", res.RequestID, err)
	}
	if res.OK {
		l.Debug("analysis job completed", logger.String("recommendation", string(res.Result.Recommendation)))
	} else {
		l.Info("analysis job rejected", logger.String("kind", res.Error.Kind), logger.String("reason", res.Error.Message))
	}
	return nil
}

func (h *AnalysisJobHandler) run(ctx context.Context, data []byte) *models.AnalysisJobResult {
	raw, err := decodeJob(data)
	if err != nil {
		return failedResult("", err)
	}
	reqID, _ := raw[FieldRequestID].(string)

	resp, err := h.analyzer.Analyze(ctx, raw)
	if err != nil {
		return failedResult(reqID, err)
	}
	return &models.AnalysisJobResult{RequestID: reqID, OK: true, Result: resp}
}

func decodeJob(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, models.NewValidationError("", "malformed job payload: %v", err)
	}
	if raw == nil {
		return nil, models.NewValidationError("", "job payload must be an object")
	}
	return raw, nil
}

func failedResult(reqID string, err error) *models.AnalysisJobResult {
	return &models.AnalysisJobResult{
		RequestID: reqID,
		Error:     &models.JobError{Kind: models.ErrorKind(err), Message: err.Error()},
	}
}

var _ pkgkafka.MessageHandler = (*AnalysisJobHandler)(nil)
