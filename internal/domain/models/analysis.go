package models

import "github.com/shopspring/decimal"

// AnomalyLabel marks a reading as normal (1) or anomalous (-1).
type AnomalyLabel int

const (
	Normal    AnomalyLabel = 1
	Anomalous AnomalyLabel = -1
)

// AnomalyLabels holds one label per reading, positionally aligned with the series.
type AnomalyLabels []AnomalyLabel

// Count returns how many readings were labelled anomalous.
func (l AnomalyLabels) Count() int {
	n := 0
	for _, v := range l {
		if v == Anomalous {
			n++
		}
	}
	return n
}

// Action is one of the closed set of operational recommendations.
type Action string

const (
	ActionBuyAndStore      Action = "BUY_AND_STORE"
	ActionDischargeAndSell Action = "DISCHARGE_AND_SELL"
	ActionHoldStandby      Action = "HOLD_STANDBY"
)

// ModelParams are the fitted ARIMA coefficients.
type ModelParams struct {
	Phi    float64
	Theta  float64
	Sigma2 float64
}

type ForecastResult struct {
	Values     []float64
	Mean       float64
	Params     ModelParams
	Iterations int
}

type Recommendation struct {
	Action       Action
	Savings      decimal.Decimal // non-negative, 2 dp
	Currency     string
	Baseline     float64
	ForecastMean float64
}

// AnalysisResponse is the combined pipeline output. It is only built when every stage succeeded.
type AnalysisResponse struct {
	Forecast       []float64     `json:"forecast"`
	Anomalies      AnomalyLabels `json:"anomalies"`
	Recommendation Action        `json:"recommendation"`
	Savings        float64       `json:"potential_savings"`
	Currency       string        `json:"currency"`
}

// NewAnalysisResponse assembles the external response from the stage outputs.
func NewAnalysisResponse(f ForecastResult, labels AnomalyLabels, rec Recommendation) *AnalysisResponse {
	values := make([]float64, len(f.Values))
	copy(values, f.Values)
	return &AnalysisResponse{
		Forecast:       values,
		Anomalies:      labels,
		Recommendation: rec.Action,
		Savings:        rec.Savings.InexactFloat64(),
		Currency:       rec.Currency,
	}
}
