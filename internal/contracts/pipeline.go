package contracts

// Pipeline stage definitions (SSOT)
// Every log line, observer event and error message uses these constants.
//
// Pipeline flow:
//   FETCH → PREPROCESS → NEWS ┐
//                    FORECAST ┴→ REPORT → RENDER → DONE
//
// NEWS runs alongside FORECAST and never fails the run.

// Stage represents a pipeline stage
type Stage string

const (
	// StageFetch pulls the raw daily series from the market data source.
	// Failure here is terminal.
	StageFetch Stage = "FETCH_DATA"

	// StagePreprocess cleans the raw series and derives return features.
	StagePreprocess Stage = "PREPROCESS"

	// StageNews scrapes headlines. Non-fatal.
	StageNews Stage = "SCRAPE_NEWS"

	// StageForecast fits ARIMA(5,1,0) and projects 7 days.
	StageForecast Stage = "FORECAST"

	// StageReport composes the narrative report.
	StageReport Stage = "COMPOSE_REPORT"

	// StageRender draws the forecast chart.
	StageRender Stage = "RENDER"

	// StageDone marks the terminal state.
	StageDone Stage = "DONE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// Fatal reports whether a failure in this stage voids the rest of the run
func (s Stage) Fatal() bool {
	return s != StageNews
}

// StageStatus is the outcome of a single stage
type StageStatus string

const (
	StatusStarted   StageStatus = "started"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// StageEvent is emitted to observers as the pipeline progresses
type StageEvent struct {
	RunID  string      `json:"run_id"`
	Symbol string      `json:"symbol"`
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}
