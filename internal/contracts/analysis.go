package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisState is the single record threaded through one analysis run.
// It is created per request and never shared between requests.
type AnalysisState struct {
	symbol string

	RawSeries          []PriceBar
	PreprocessedSeries []PreprocessedPoint
	Forecast           []ForecastPoint
	NewsHeadlines      []string
	NarrativeReport    string
	VisualizationRef   string

	// Error holds the first fatal failure; later failures are dropped
	Error     string
	ErrorKind ErrorKind
}

// NewAnalysisState creates the state for a symbol.
// The symbol is trimmed and upper-cased; an empty symbol is rejected.
func NewAnalysisState(symbol string) (*AnalysisState, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return &AnalysisState{
		symbol:        symbol,
		NewsHeadlines: []string{},
	}, nil
}

// NormalizeSymbol trims and upper-cases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Symbol returns the immutable ticker of this run
func (s *AnalysisState) Symbol() string {
	return s.symbol
}

// SetError records err unless an earlier failure is already recorded
func (s *AnalysisState) SetError(err error) {
	if err == nil || s.Error != "" {
		return
	}
	s.Error = err.Error()
	s.ErrorKind = KindOf(err)
}

// HasError reports whether a fatal failure was recorded
func (s *AnalysisState) HasError() bool {
	return s.Error != ""
}

// HasSeries reports whether preprocessed data is available
func (s *AnalysisState) HasSeries() bool {
	return len(s.PreprocessedSeries) > 0
}

// HasForecast reports whether both series needed by the report and chart exist
func (s *AnalysisState) HasForecast() bool {
	return s.HasSeries() && len(s.Forecast) > 0
}

// analysisStateJSON is the wire form of AnalysisState
type analysisStateJSON struct {
	Symbol             string              `json:"symbol"`
	RawSeries          []PriceBar          `json:"raw_series,omitempty"`
	PreprocessedSeries []PreprocessedPoint `json:"preprocessed_series,omitempty"`
	Forecast           []ForecastPoint     `json:"forecast,omitempty"`
	NewsHeadlines      []string            `json:"news_headlines"`
	NarrativeReport    string              `json:"narrative_report,omitempty"`
	VisualizationRef   string              `json:"visualization_ref,omitempty"`
	Error              string              `json:"error,omitempty"`
	ErrorKind          ErrorKind           `json:"error_kind,omitempty"`
}

// MarshalJSON serializes the state including the unexported symbol
func (s *AnalysisState) MarshalJSON() ([]byte, error) {
	headlines := s.NewsHeadlines
	if headlines == nil {
		headlines = []string{}
	}
	return json.Marshal(analysisStateJSON{
		Symbol:             s.symbol,
		RawSeries:          s.RawSeries,
		PreprocessedSeries: s.PreprocessedSeries,
		Forecast:           s.Forecast,
		NewsHeadlines:      headlines,
		NarrativeReport:    s.NarrativeReport,
		VisualizationRef:   s.VisualizationRef,
		Error:              s.Error,
		ErrorKind:          s.ErrorKind,
	})
}

// UnmarshalJSON restores a state serialized by MarshalJSON
func (s *AnalysisState) UnmarshalJSON(data []byte) error {
	var w analysisStateJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = AnalysisState{
		symbol:             NormalizeSymbol(w.Symbol),
		RawSeries:          w.RawSeries,
		PreprocessedSeries: w.PreprocessedSeries,
		Forecast:           w.Forecast,
		NewsHeadlines:      w.NewsHeadlines,
		NarrativeReport:    w.NarrativeReport,
		VisualizationRef:   w.VisualizationRef,
		Error:              w.Error,
		ErrorKind:          w.ErrorKind,
	}
	return nil
}
