package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GridAdvisor/internal/domain/models"
	"GridAdvisor/internal/service/ratelimit"
	"GridAdvisor/internal/services/analytics"
	"GridAdvisor/internal/usecase"
	"GridAdvisor/pkg/logger"
	"GridAdvisor/pkg/metrics"
)

type fakeMeters struct {
	resp      *models.AnalysisResponse
	err       error
	healthErr error
	gotID     string
	gotN      int
	gotUntil  time.Time
}

func (m *fakeMeters) Analyze(_ context.Context, meterID string, n int, until time.Time) (*models.AnalysisResponse, error) {
	m.gotID, m.gotN, m.gotUntil = meterID, n, until
	return m.resp, m.err
}

func (m *fakeMeters) Health(context.Context) error { return m.healthErr }

type stubAnalyzer struct{ err error }

func (a stubAnalyzer) Analyze(context.Context, map[string]interface{}) (*models.AnalysisResponse, error) {
	return nil, a.err
}

func newPipeline() *usecase.AnalysisPipeline {
	return usecase.NewAnalysisPipeline(
		analytics.NewARIMAForecaster(),
		analytics.NewIsolationForest(),
		analytics.NewDecisionEngine(),
		metrics.Nop{},
		logger.Nop(),
	)
}

func newTestServer(h *AnalysisEchoHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Status int `json:"status"`
	Data   []struct {
		Code    string `json:"code"`
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data)
	return env
}

func TestStatus(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil))

	rec := do(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Grid Analysis API is running"}`, rec.Body.String())
}

func TestAnalyze_ConstantSeries(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil))
	body := `{"load":[` + strings.TrimSuffix(strings.Repeat("500,", 30), ",") + `]}`

	for _, path := range []string{"/analyze", "/api/v1/analyze"} {
		rec := do(e, http.MethodPost, path, body)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp models.AnalysisResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Forecast, 3)
		for _, v := range resp.Forecast {
			assert.InDelta(t, 500, v, 1e-6)
		}
		assert.Len(t, resp.Anomalies, 30)
		assert.Equal(t, 0, resp.Anomalies.Count())
		assert.Equal(t, models.ActionDischargeAndSell, resp.Recommendation)
		assert.Equal(t, 0.0, resp.Savings)
		assert.Equal(t, "GBP", resp.Currency)
	}
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		h      *AnalysisEchoHandler
		body   string
		status int
		code   string
	}{
		{"malformed json", NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil), `{"load":[1,2`, http.StatusBadRequest, "ERR_VALIDATION"},
		{"empty body", NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil), ``, http.StatusBadRequest, "ERR_VALIDATION"},
		{"empty series", NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil), `{"load":[]}`, http.StatusBadRequest, "ERR_VALIDATION"},
		{"too short", NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil), `{"load":[1,2,3]}`, http.StatusBadRequest, "ERR_VALIDATION"},
		{"string value", NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil), `{"load":[1,2,"3",4,5,6]}`, http.StatusBadRequest, "ERR_VALIDATION"},
		{"model fit", NewAnalysisEchoHandler(logger.Nop(), stubAnalyzer{err: models.NewModelFitError("forecast", "did not converge", nil)}, nil, nil), `{"load":[1]}`, http.StatusUnprocessableEntity, "ERR_MODEL_FIT"},
		{"internal", NewAnalysisEchoHandler(logger.Nop(), stubAnalyzer{err: errors.New("boom")}, nil, nil), `{"load":[1]}`, http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(newTestServer(tc.h), http.MethodPost, "/api/v1/analyze", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tc.status, env.Status)
			assert.Equal(t, tc.code, env.Data[0].Code)
		})
	}
}

func TestAnalyze_ValidationFieldReported(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil))

	rec := do(e, http.MethodPost, "/analyze", `{"load":[1,2,3,4,5],"timestamp":["a","b"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "timestamp", decodeEnvelope(t, rec).Data[0].Field)
}

func TestAnalyze_RateLimited(t *testing.T) {
	e := newTestServer(NewAnalysisEchoHandler(logger.Nop(), stubAnalyzer{err: errors.New("boom")}, nil, ratelimit.New(1, 0.001)))

	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodPost, "/analyze", `{"load":[1]}`).Code)
	rec := do(e, http.MethodPost, "/analyze", `{"load":[1]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", decodeEnvelope(t, rec).Data[0].Code)
}

func TestMeterAnalysis(t *testing.T) {
	meters := &fakeMeters{resp: &models.AnalysisResponse{Forecast: []float64{1, 2, 3}, Recommendation: models.ActionBuyAndStore, Currency: "GBP"}}
	e := newTestServer(NewAnalysisEchoHandler(logger.Nop(), newPipeline(), meters, nil))

	rec := do(e, http.MethodGet, "/api/v1/meters/m-7/analysis?n=24&until=2024-03-01T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "m-7", meters.gotID)
	assert.Equal(t, 24, meters.gotN)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), meters.gotUntil.UTC())
	assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))
}

func TestMeterAnalysis_DefaultsAndErrors(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	meters := &fakeMeters{resp: &models.AnalysisResponse{}}
	h := NewAnalysisEchoHandler(logger.Nop(), newPipeline(), meters, nil)
	h.now = func() time.Time { return fixed }
	e := newTestServer(h)

	rec := do(e, http.MethodGet, "/api/v1/meters/m-1/analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 48, meters.gotN)
	assert.Equal(t, fixed, meters.gotUntil)

	rec = do(e, http.MethodGet, "/api/v1/meters/m-1/analysis?n=2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/meters/m-1/analysis?until=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	meters.err = usecase.ErrReadingsUnavailable
	rec = do(e, http.MethodGet, "/api/v1/meters/m-1/analysis", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(newTestServer(NewAnalysisEchoHandler(logger.Nop(), newPipeline(), nil, nil)), http.MethodGet, "/api/v1/meters/m-1/analysis", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	meters := &fakeMeters{healthErr: usecase.ErrReadingsUnavailable}
	h := NewAnalysisEchoHandler(logger.Nop(), newPipeline(), meters, nil)
	h.AddHealthCheck("cache", func(context.Context) error { return nil })
	e := newTestServer(h)

	rec := do(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"cache":"ok","readings":"disabled"}}`, rec.Body.String())

	meters.healthErr = errors.New("dial tcp: refused")
	rec = do(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","dependencies":{"cache":"ok","readings":"down"}}`, rec.Body.String())
}
