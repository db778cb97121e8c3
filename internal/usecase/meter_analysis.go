package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	domsvc "GridAdvisor/internal/domain/service"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/pkg/logger"
)

// ErrReadingsUnavailable is returned when no readings store is configured.
var ErrReadingsUnavailable = errors.New("readings store not configured")

// MeterAnalysis analyzes the latest stored readings of a meter.
type MeterAnalysis struct {
	store    domrepo.LoadStore
	analyzer domsvc.Analyzer
	log      *logger.Logger
}

// NewMeterAnalysis accepts a nil store; Analyze then returns ErrReadingsUnavailable.
func NewMeterAnalysis(store domrepo.LoadStore, analyzer domsvc.Analyzer, log *logger.Logger) *MeterAnalysis {
	return &MeterAnalysis{store: store, analyzer: analyzer, log: log}
}

func (m *MeterAnalysis) Analyze(ctx context.Context, meterID string, n int, until time.Time) (*models.AnalysisResponse, error) {
	if m.store == nil {
		return nil, ErrReadingsUnavailable
	}

	readings, err := m.store.GetLatestReadings(ctx, meterID, n, until)
	if err != nil {
		return nil, fmt.Errorf("load readings for meter %s: %w", meterID, err)
	}

	load := make([]float64, len(readings))
	ts := make([]string, len(readings))
	for i, r := range readings {
		load[i] = r.LoadKW
		ts[i] = r.Timestamp
	}

	m.log.Debug("analyzing stored readings",
		logger.String("meter_id", meterID),
		logger.Int("readings", len(readings)),
	)
	return m.analyzer.Analyze(ctx, map[string]interface{}{
		analytics.FieldLoad:      load,
		analytics.FieldTimestamp: ts,
	})
}

// Health reports the readings store status.
func (m *MeterAnalysis) Health(ctx context.Context) error {
	if m.store == nil {
		return ErrReadingsUnavailable
	}
	return m.store.Health(ctx)
}
