package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"GridAdvisor/internal/domain/models"
	domsvc "GridAdvisor/internal/domain/service"
	"GridAdvisor/internal/service/ratelimit"
	"GridAdvisor/internal/usecase"
	xhttp "GridAdvisor/pkg/http"
	xlogger "GridAdvisor/pkg/logger"
)

const statusMessage = "Grid Analysis API is running"

// MeterAnalyzer analyzes stored readings of a meter.
type MeterAnalyzer interface {
	Analyze(ctx context.Context, meterID string, n int, until time.Time) (*models.AnalysisResponse, error)
	Health(ctx context.Context) error
}

// HealthCheck reports the status of one dependency.
type HealthCheck func(ctx context.Context) error

// AnalysisEchoHandler serves the analysis API.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	analyzer domsvc.Analyzer
	meters   MeterAnalyzer
	limiter  *ratelimit.Limiter
	checks   map[string]HealthCheck
	now      func() time.Time
}

// NewAnalysisEchoHandler creates the handler. meters and limiter may be nil.
func NewAnalysisEchoHandler(logger *xlogger.Logger, analyzer domsvc.Analyzer, meters MeterAnalyzer, limiter *ratelimit.Limiter) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{
		logger:   logger,
		analyzer: analyzer,
		meters:   meters,
		limiter:  limiter,
		checks:   map[string]HealthCheck{},
		now:      time.Now,
	}
}

// AddHealthCheck registers a dependency reported by GET /health.
func (h *AnalysisEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Status)
	e.GET("/health", h.Health)
	e.POST("/analyze", h.Analyze, h.rateLimit)

	g := e.Group("/api/v1")
	g.POST("/analyze", h.Analyze, h.rateLimit)
	g.GET("/meters/:meter_id/analysis", h.MeterAnalysis, h.rateLimit)
}

func (h *AnalysisEchoHandler) Status(c echo.Context) error {
	return xhttp.RawResponse(c, http.StatusOK, map[string]string{"status": statusMessage})
}

// Health runs every registered check. A meter store that is not configured is reported as
// disabled and does not fail the check.
func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks)+1)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", name), xlogger.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	if h.meters != nil {
		switch err := h.meters.Health(ctx); {
		case err == nil:
			deps["readings"] = "ok"
		case errors.Is(err, usecase.ErrReadingsUnavailable):
			deps["readings"] = "disabled"
		default:
			h.logger.Warn("health check failed", xlogger.String("dependency", "readings"), xlogger.Error(err))
			deps["readings"] = "down"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return xhttp.RawResponse(c, status, map[string]interface{}{
		"status":       overall,
		"dependencies": deps,
	})
}

// Analyze runs the pipeline on a {"load":[...],"timestamp":[...]} body.
func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	raw, appErr := xhttp.BindJSONMap(c)
	if appErr != nil {
		h.logger.Debug("analyze bad body", xlogger.Error(appErr))
		return xhttp.AppErrorResponse(c, appErr)
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), raw)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.RawResponse(c, http.StatusOK, res)
}

// MeterAnalysis runs the pipeline on the latest n stored readings of a meter.
func (h *AnalysisEchoHandler) MeterAnalysis(c echo.Context) error {
	req := &models.MeterAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	until, appErr := xhttp.QueryTime(c, "until", h.now().UTC())
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	if h.meters == nil {
		return h.fail(c, "meter analysis", usecase.ErrReadingsUnavailable)
	}

	res, err := h.meters.Analyze(c.Request().Context(), req.MeterID, req.N, until)
	if err != nil {
		return h.fail(c, "meter analysis", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.RawResponse(c, http.StatusOK, res)
}

func (h *AnalysisEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP()) {
			h.logger.Warn("rate limited", xlogger.String("remote_ip", c.RealIP()), xlogger.String("route", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *AnalysisEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Info(op+" rejected",
			xlogger.String("kind", models.ErrorKind(err)),
			xlogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return xhttp.ValidationFailed(verr.Field, verr.Error()).WithError(err)
	case errors.Is(err, models.ErrModelFit):
		return xhttp.UnprocessableError("ERR_MODEL_FIT", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrReadingsUnavailable):
		return xhttp.ServiceUnavailableError("meter readings are not available").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

var _ xhttp.Handler = (*AnalysisEchoHandler)(nil)
