package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"GridAdvisor/internal/domain/models"
	domsvc "GridAdvisor/internal/domain/service"
)

const stageForecast = "forecast"

// Order is the (p, d, q) order of an ARIMA model.
type Order struct {
	P, D, Q int
}

func (o Order) String() string { return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q) }

// DefaultOrder is a static configuration choice and is never inferred from the data.
// Choosing the order by information criteria (AIC/BIC) would be a future improvement,
// but responses are expected to match the (1,1,1) model.
var DefaultOrder = Order{P: 1, D: 1, Q: 1}

// DefaultHorizon is the number of future steps projected per request.
const DefaultHorizon = 3

// MinObservations returns the shortest series an order can be fitted on:
// d points are lost to differencing, p+q lags are conditioned on, and two residuals remain.
func MinObservations(o Order) int { return o.P + o.D + o.Q + 2 }

// ForecasterOption configures ARIMAForecaster.
type ForecasterOption func(*ForecasterConfig)

// ForecasterConfig holds forecaster configuration.
type ForecasterConfig struct {
	Horizon       int
	MaxIterations int
	FitTimeout    time.Duration
}

// WithHorizon sets the forecast horizon.
func WithHorizon(h int) ForecasterOption {
	return func(c *ForecasterConfig) {
		if h > 0 {
			c.Horizon = h
		}
	}
}

// WithMaxIterations caps optimizer major iterations. Hitting the cap is a fit failure.
func WithMaxIterations(n int) ForecasterOption {
	return func(c *ForecasterConfig) {
		if n > 0 {
			c.MaxIterations = n
		}
	}
}

// WithFitTimeout sets the wall-clock bound of a single fit.
func WithFitTimeout(d time.Duration) ForecasterOption {
	return func(c *ForecasterConfig) {
		if d > 0 {
			c.FitTimeout = d
		}
	}
}

// ARIMAForecaster fits an ARIMA(1,1,1) by conditional sum of squares and projects the horizon.
type ARIMAForecaster struct {
	order Order
	cfg   ForecasterConfig
}

// NewARIMAForecaster creates a forecaster with the fixed (1,1,1) order.
func NewARIMAForecaster(opts ...ForecasterOption) *ARIMAForecaster {
	cfg := ForecasterConfig{
		Horizon:       DefaultHorizon,
		MaxIterations: 2000,
		FitTimeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ARIMAForecaster{order: DefaultOrder, cfg: cfg}
}

// Order returns the model order.
func (f *ARIMAForecaster) Order() Order { return f.order }

// Forecast fits the model once and projects Horizon steps. There is no retry and no
// last-value fallback: any fit problem is returned as a *models.ModelFitError.
func (f *ARIMAForecaster) Forecast(ctx context.Context, series models.LoadSeries) (models.ForecastResult, error) {
	var result models.ForecastResult

	y := series.Readings()
	if need := MinObservations(f.order); len(y) < need {
		return result, models.NewModelFitError(stageForecast,
			fmt.Sprintf("order %s needs at least %d observations, got %d", f.order, need, len(y)), nil)
	}
	if err := ctx.Err(); err != nil {
		return result, models.NewModelFitError(stageForecast, "fit not started", err)
	}

	runtime := f.cfg.FitTimeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < runtime {
			runtime = rem
		}
	}
	if runtime <= 0 {
		return result, models.NewModelFitError(stageForecast, "fit exceeded wall-clock bound", context.DeadlineExceeded)
	}

	d := difference(y)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _ := conditionalSSE(d, constrain(x[0]), constrain(x[1]))
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: f.cfg.MaxIterations,
		Runtime:         runtime,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 50},
	}

	res, err := optimize.Minimize(problem, []float64{0, 0}, settings, &optimize.NelderMead{})
	if err != nil {
		return result, models.NewModelFitError(stageForecast, "optimizer failed", err)
	}
	if err := ctx.Err(); err != nil {
		return result, models.NewModelFitError(stageForecast, "fit cancelled", err)
	}
	if res.Status == optimize.RuntimeLimit {
		return result, models.NewModelFitError(stageForecast, "fit exceeded wall-clock bound", context.DeadlineExceeded)
	}
	if !converged(res.Status) {
		return result, models.NewModelFitError(stageForecast,
			fmt.Sprintf("optimizer did not converge after %d iterations (%v)", res.Stats.MajorIterations, res.Status), nil)
	}

	phi, theta := constrain(res.X[0]), constrain(res.X[1])
	sse, resid := conditionalSSE(d, phi, theta)
	if !isFinite(sse) {
		return result, models.NewModelFitError(stageForecast, "non-finite residual sum of squares", nil)
	}

	values := project(y[len(y)-1], d, resid, phi, theta, f.cfg.Horizon)
	for _, v := range values {
		if !isFinite(v) {
			return result, models.NewModelFitError(stageForecast, "non-finite forecast value", nil)
		}
	}

	result.Values = values
	result.Mean = stat.Mean(values, nil)
	result.Params = models.ModelParams{Phi: phi, Theta: theta, Sigma2: sse / float64(len(d)-1)}
	result.Iterations = res.Stats.MajorIterations
	return result, nil
}

// converged reports whether a termination status is a successful fit.
func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// constrain maps an unconstrained parameter into (-1, 1), which keeps the AR part
// stationary and the MA part invertible.
func constrain(u float64) float64 { return math.Tanh(u) }

func difference(y []float64) []float64 {
	d := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		d[i-1] = y[i] - y[i-1]
	}
	return d
}

// conditionalSSE returns the residual sum of squares of an ARMA(1,1) on d, conditioned on
// the first observation with a zero initial residual.
func conditionalSSE(d []float64, phi, theta float64) (float64, []float64) {
	resid := make([]float64, len(d))
	sse := 0.0
	for t := 1; t < len(d); t++ {
		resid[t] = d[t] - phi*d[t-1] - theta*resid[t-1]
		sse += resid[t] * resid[t]
	}
	return sse, resid
}

// project integrates the ARMA(1,1) difference forecasts back onto the level.
func project(last float64, d, resid []float64, phi, theta float64, horizon int) []float64 {
	out := make([]float64, horizon)
	n := len(d)
	step := phi*d[n-1] + theta*resid[n-1]
	level := last
	for h := 0; h < horizon; h++ {
		if h > 0 {
			step = phi * step
		}
		level += step
		out[h] = level
	}
	return out
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

var _ domsvc.Forecaster = (*ARIMAForecaster)(nil)
