package report

import (
	"math"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/internal/preprocess"
)

// Metrics are the figures derived from a finished forecast
type Metrics struct {
	LastClose      float64 `json:"last_close"`
	FinalForecast  float64 `json:"final_forecast"`
	PriceChangePct float64 `json:"price_change_pct"`
	Volatility     float64 `json:"volatility"` // sample stddev of returns, in percent
}

// ComputeMetrics derives report metrics. Both series must be non-empty.
func ComputeMetrics(series []contracts.PreprocessedPoint, forecast []contracts.ForecastPoint) (Metrics, error) {
	if len(series) == 0 || len(forecast) == 0 {
		return Metrics{}, contracts.ErrInsufficientData
	}

	lastClose := series[len(series)-1].Close
	final := forecast[len(forecast)-1].PredictedClose

	var change float64
	if lastClose != 0 {
		change = (final - lastClose) / lastClose * 100
	}

	return Metrics{
		LastClose:      lastClose,
		FinalForecast:  final,
		PriceChangePct: change,
		Volatility:     SampleStdDev(preprocess.Returns(series)) * 100,
	}, nil
}

// SampleStdDev uses the n-1 denominator. Fewer than two values give 0.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
