package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"GridAdvisor/internal/domain/models"
)

func forecastOf(values ...float64) models.ForecastResult {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return models.ForecastResult{Values: values, Mean: sum / float64(len(values))}
}

func TestDecide_FallingForecastBuys(t *testing.T) {
	s := models.LoadSeries{Load: []float64{100, 100, 100, 100, 100}}
	rec := NewDecisionEngine().Decide(s, forecastOf(90, 90, 90))

	assert.Equal(t, models.ActionBuyAndStore, rec.Action)
	assert.Equal(t, "750", rec.Savings.String())
	assert.Equal(t, "GBP", rec.Currency)
}

func TestDecide_RisingForecastSells(t *testing.T) {
	s := models.LoadSeries{Load: []float64{100, 100, 100, 100, 100}}
	rec := NewDecisionEngine(WithPrice(10), WithCurrency("EUR")).Decide(s, forecastOf(101, 102, 103))

	assert.Equal(t, models.ActionDischargeAndSell, rec.Action)
	assert.Equal(t, "30", rec.Savings.String())
	assert.Equal(t, "EUR", rec.Currency)
}

func TestDecide_TieSells(t *testing.T) {
	rec := NewDecisionEngine().Decide(constantSeries(10, 500), forecastOf(500, 500, 500))
	assert.Equal(t, models.ActionDischargeAndSell, rec.Action)
	assert.True(t, rec.Savings.IsZero())
}

func TestDecide_SavingsRoundedAndNonNegative(t *testing.T) {
	s := models.LoadSeries{Load: []float64{1, 2, 3, 4, 5}}
	for _, f := range []models.ForecastResult{forecastOf(2.9999), forecastOf(3.0001), forecastOf(0.123456)} {
		rec := NewDecisionEngine().Decide(s, f)
		assert.False(t, rec.Savings.IsNegative())
		assert.LessOrEqual(t, -rec.Savings.Exponent(), int32(2))
	}
}

func TestDecide_NeverHolds(t *testing.T) {
	s := wavySeries(20)
	for _, f := range []models.ForecastResult{forecastOf(0), forecastOf(1e6), forecastOf(s.Load[0])} {
		assert.NotEqual(t, models.ActionHoldStandby, NewDecisionEngine().Decide(s, f).Action)
	}
}
