package analytics

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"GridAdvisor/internal/domain/models"
	domsvc "GridAdvisor/internal/domain/service"
)

const (
	DefaultPricePerUnit = 50.0
	DefaultMultiplier   = 1.5
	DefaultCurrency     = "GBP"
)

// DecisionOption configures DecisionEngine.
type DecisionOption func(*DecisionEngine)

func WithPrice(p float64) DecisionOption {
	return func(e *DecisionEngine) {
		if p > 0 {
			e.price = decimal.NewFromFloat(p)
		}
	}
}

func WithMultiplier(m float64) DecisionOption {
	return func(e *DecisionEngine) {
		if m > 0 {
			e.multiplier = decimal.NewFromFloat(m)
		}
	}
}

func WithCurrency(c string) DecisionOption {
	return func(e *DecisionEngine) {
		if c != "" {
			e.currency = c
		}
	}
}

// DecisionEngine compares the forecast mean with the series mean.
// A falling forecast means buy and store now; anything else means discharge and sell.
type DecisionEngine struct {
	price      decimal.Decimal
	multiplier decimal.Decimal
	currency   string
}

func NewDecisionEngine(opts ...DecisionOption) *DecisionEngine {
	e := &DecisionEngine{
		price:      decimal.NewFromFloat(DefaultPricePerUnit),
		multiplier: decimal.NewFromFloat(DefaultMultiplier),
		currency:   DefaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide never fails. Savings are non-negative and rounded to 2 decimal places.
func (e *DecisionEngine) Decide(series models.LoadSeries, forecast models.ForecastResult) models.Recommendation {
	baseline := stat.Mean(series.Load, nil)
	mean := forecast.Mean
	if len(forecast.Values) > 0 {
		mean = stat.Mean(forecast.Values, nil)
	}

	action := models.ActionDischargeAndSell
	if mean < baseline {
		action = models.ActionBuyAndStore
	}

	diff := decimal.NewFromFloat(mean).Sub(decimal.NewFromFloat(baseline)).Abs()
	savings := diff.Mul(e.price).Mul(e.multiplier).Round(2)

	return models.Recommendation{
		Action:       action,
		Savings:      savings,
		Currency:     e.currency,
		Baseline:     baseline,
		ForecastMean: mean,
	}
}

var _ domsvc.DecisionMaker = (*DecisionEngine)(nil)
