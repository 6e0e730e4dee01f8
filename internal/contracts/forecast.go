package contracts

import "time"

// PriceBar is one row of the raw daily series as returned by the data source.
// Fields are pointers because upstream rows can carry nulls (holidays, halts).
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   *float64  `json:"open"`
	High   *float64  `json:"high"`
	Low    *float64  `json:"low"`
	Close  *float64  `json:"close"`
	Volume *float64  `json:"volume"`
}

// Complete reports whether every field of the bar is present
func (b PriceBar) Complete() bool {
	if b.Date.IsZero() {
		return false
	}
	for _, v := range []*float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if v == nil || isNaN(*v) {
			return false
		}
	}
	return true
}

// PreprocessedPoint is one cleaned observation with derived return features.
// Returns and LogReturns are nil at the first retained date.
type PreprocessedPoint struct {
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	Returns    *float64  `json:"returns"`
	LogReturns *float64  `json:"log_returns"`
}

// ForecastPoint is a predicted closing price for a future date
type ForecastPoint struct {
	Date           time.Time `json:"date"`
	PredictedClose float64   `json:"predicted_close"`
}

// Forecast model parameters. The order is a fixed design parameter.
const (
	AROrder         = 5
	DiffOrder       = 1
	MAOrder         = 0
	ForecastHorizon = 7

	// MinObservations is the shortest close series the forecaster accepts
	MinObservations = AROrder + DiffOrder + 2

	// MaxHeadlines caps NewsHeadlines
	MaxHeadlines = 5
)

// Float returns a pointer to v (fixtures and decoders)
func Float(v float64) *float64 {
	return &v
}

func isNaN(f float64) bool {
	return f != f
}
