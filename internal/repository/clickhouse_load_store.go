package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	pkgch "GridAdvisor/pkg/clickhouse"
	applogger "GridAdvisor/pkg/logger"
)

// ReadingTimeLayout matches the timestamps the dashboard sends with a series.
const ReadingTimeLayout = "2006-01-02 15:04:05"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHLoadStore reads meter readings from ClickHouse. It never writes.
type CHLoadStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHLoadStore expects table columns (meter_id String, ts DateTime, load_kw Float64).
func NewCHLoadStore(ch *pkgch.Client, table string) (*CHLoadStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid readings table name %q", table)
	}
	return &CHLoadStore{db: ch.DB(), table: table}, nil
}

// SetLogger injects a structured logger.
func (s *CHLoadStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHLoadStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// GetLatestReadings returns up to n readings at or before until, oldest first.
func (s *CHLoadStore) GetLatestReadings(ctx context.Context, meterID string, n int, until time.Time) ([]models.Reading, error) {
	start := time.Now()
	q := latestReadingsQuery(s.table)

	rows, err := s.db.QueryContext(ctx, q, meterID, until.UTC(), n)
	if err != nil {
		s.logError("clickhouse latest_readings query error", meterID, n, err)
		return nil, fmt.Errorf("get latest readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, n)
	for rows.Next() {
		var (
			r  models.Reading
			ts time.Time
		)
		if err := rows.Scan(&r.MeterID, &ts, &r.LoadKW); err != nil {
			s.logError("clickhouse latest_readings scan error", meterID, n, err)
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = ts.UTC().Format(ReadingTimeLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse latest_readings rows error", meterID, n, err)
		return nil, fmt.Errorf("rows: %w", err)
	}

	reverseReadings(out)
	if s.l != nil {
		s.l.Debug("clickhouse latest_readings ok",
			applogger.String("table", s.table),
			applogger.String("meter_id", meterID),
			applogger.Int("limit", n),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHLoadStore) logError(msg, meterID string, n int, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("meter_id", meterID),
		applogger.Int("limit", n),
		applogger.Error(err),
	)
}

func latestReadingsQuery(table string) string {
	return fmt.Sprintf(`
        SELECT meter_id, ts, load_kw
        FROM %s
        WHERE meter_id = ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `, table)
}

func reverseReadings(rs []models.Reading) {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
}

var _ domrepo.LoadStore = (*CHLoadStore)(nil)
