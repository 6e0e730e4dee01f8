// Package forecast projects closing prices with a fixed-order ARIMA model.
package forecast

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/internal/preprocess"
)

// Forecaster fits ARIMA(5,1,0) on closing prices and projects 7 calendar days
type Forecaster struct {
	p, d    int
	horizon int
	log     zerolog.Logger
}

// NewForecaster creates a forecaster with the fixed model order
func NewForecaster(log zerolog.Logger) *Forecaster {
	return &Forecaster{
		p:       contracts.AROrder,
		d:       contracts.DiffOrder,
		horizon: contracts.ForecastHorizon,
		log:     log.With().Str("component", "forecast.arima").Logger(),
	}
}

// Forecast fits the model on series and returns horizon future points,
// one calendar day apart starting the day after the last observation.
func (f *Forecaster) Forecast(ctx context.Context, series []contracts.PreprocessedPoint) ([]contracts.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrModelFitFailure, err)
	}

	if len(series) < contracts.MinObservations {
		return nil, fmt.Errorf("%w: need at least %d observations, got %d",
			contracts.ErrInsufficientData, contracts.MinObservations, len(series))
	}

	closes := preprocess.Closes(series)
	model, err := Fit(closes, f.p, f.d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrModelFitFailure, err)
	}

	predicted, err := model.Forecast(f.horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrModelFitFailure, err)
	}

	last := series[len(series)-1].Date
	points := make([]contracts.ForecastPoint, len(predicted))
	for i, v := range predicted {
		points[i] = contracts.ForecastPoint{
			Date:           last.AddDate(0, 0, i+1),
			PredictedClose: v,
		}
	}

	f.log.Debug().
		Int("observations", len(series)).
		Floats64("coeffs", model.Coeffs).
		Bool("shrunk", model.Shrunk).
		Float64("last_close", closes[len(closes)-1]).
		Float64("final_forecast", predicted[len(predicted)-1]).
		Msg("arima fitted")

	return points, nil
}
