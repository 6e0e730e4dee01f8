// Package pipeline runs one stock analysis end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/internal/preprocess"
	"github.com/wonny/stockcast/pkg/logger"
)

// Forecaster projects future closes from a preprocessed series
type Forecaster interface {
	Forecast(ctx context.Context, series []contracts.PreprocessedPoint) ([]contracts.ForecastPoint, error)
}

// ReportComposer writes the narrative for a forecasted state
type ReportComposer interface {
	Compose(ctx context.Context, state *contracts.AnalysisState) (string, error)
}

// ChartRenderer draws the forecast chart and returns its file name
type ChartRenderer interface {
	Render(ctx context.Context, state *contracts.AnalysisState) (string, error)
}

// Components are the collaborators of a run
type Components struct {
	Source     contracts.MarketDataSource
	News       contracts.NewsScraper // optional
	Forecaster Forecaster
	Composer   ReportComposer
	Renderer   ChartRenderer
}

// Options tune a run
type Options struct {
	Lookback      string // e.g. 1mo
	Interval      string // e.g. 1d
	FetchTimeout  time.Duration
	NewsTimeout   time.Duration
	ReportTimeout time.Duration
}

// Orchestrator sequences the stages of an analysis
// ⭐ SSOT: stage ordering and failure policy live here only
type Orchestrator struct {
	components Components
	opts       Options
	logger     *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(components Components, opts Options, log *logger.Logger) *Orchestrator {
	if opts.Lookback == "" {
		opts.Lookback = "1mo"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	return &Orchestrator{
		components: components,
		opts:       opts,
		logger:     log,
	}
}

// RunAnalysis runs every stage for symbol and returns the final state.
// Stage failures are recorded on the state, never returned; the error is
// only for an unusable symbol.
func (o *Orchestrator) RunAnalysis(ctx context.Context, symbol string) (*contracts.AnalysisState, error) {
	return o.RunAnalysisWithObserver(ctx, symbol, nil)
}

// RunAnalysisWithObserver is RunAnalysis with progress events sent to observer
func (o *Orchestrator) RunAnalysisWithObserver(ctx context.Context, symbol string, observer contracts.StageObserver) (*contracts.AnalysisState, error) {
	state, err := contracts.NewAnalysisState(symbol)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	r := &run{
		Orchestrator: o,
		id:           runID,
		state:        state,
		observer:     observer,
		log: o.logger.WithFields(map[string]interface{}{
			"symbol": state.Symbol(),
			"run_id": runID,
		}),
	}

	startTime := time.Now()
	r.log.Info("Starting analysis")

	r.execute(ctx)

	if state.HasError() {
		r.emit(contracts.StageDone, contracts.StatusFailed, nil)
	} else {
		r.emit(contracts.StageDone, contracts.StatusCompleted, nil)
	}

	fields := map[string]interface{}{
		"duration":   time.Since(startTime).String(),
		"forecast":   len(state.Forecast),
		"headlines":  len(state.NewsHeadlines),
		"error_kind": string(state.ErrorKind),
	}
	if state.HasError() {
		r.log.WithFields(fields).Warn("Analysis finished with error: " + state.Error)
	} else {
		r.log.WithFields(fields).Info("Analysis completed")
	}

	return state, nil
}

// run carries the per-request state; it is never shared between requests
type run struct {
	*Orchestrator
	id       string
	state    *contracts.AnalysisState
	observer contracts.StageObserver
	log      *logger.Logger

	emitMu sync.Mutex // news and forecast report concurrently
}

func (r *run) execute(ctx context.Context) {
	current := contracts.StageFetch
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("internal error in %s: %v", current, rec)
			r.log.WithField("panic", fmt.Sprint(rec)).Error("Recovered panic in pipeline")
			r.fail(current, err)
		}
	}()

	// FETCH (terminal on failure)
	r.emit(current, contracts.StatusStarted, nil)
	raw, err := r.fetch(ctx)
	if err != nil {
		r.fail(current, err)
		r.skip(contracts.StagePreprocess, contracts.StageNews, contracts.StageForecast, contracts.StageReport, contracts.StageRender)
		return
	}
	r.state.RawSeries = raw
	r.emit(current, contracts.StatusCompleted, nil)

	// PREPROCESS
	current = contracts.StagePreprocess
	r.emit(current, contracts.StatusStarted, nil)
	r.state.PreprocessedSeries = preprocess.Preprocess(raw)
	if !r.state.HasSeries() {
		r.fail(current, fmt.Errorf("%w: no complete rows after cleaning", contracts.ErrInsufficientData))
		r.skip(contracts.StageNews, contracts.StageForecast, contracts.StageReport, contracts.StageRender)
		return
	}
	r.emit(current, contracts.StatusCompleted, nil)

	// NEWS runs alongside FORECAST
	var g errgroup.Group
	var headlines []string
	g.Go(func() error {
		headlines = r.scrapeNews(ctx)
		return nil
	})
	defer func() { _ = g.Wait() }() // also on panic

	current = contracts.StageForecast
	r.emit(current, contracts.StatusStarted, nil)
	forecast, forecastErr := r.components.Forecaster.Forecast(ctx, r.state.PreprocessedSeries)

	_ = g.Wait()
	r.state.NewsHeadlines = headlines

	if forecastErr != nil {
		r.fail(current, forecastErr)
		r.skip(contracts.StageReport, contracts.StageRender)
		return
	}
	r.state.Forecast = forecast
	r.emit(current, contracts.StatusCompleted, nil)

	// REPORT
	current = contracts.StageReport
	if !r.state.HasForecast() {
		r.skip(contracts.StageReport, contracts.StageRender)
		return
	}
	r.emit(current, contracts.StatusStarted, nil)
	report, err := r.compose(ctx)
	if err != nil {
		r.fail(current, err)
		r.skip(contracts.StageRender)
		return
	}
	r.state.NarrativeReport = report
	r.emit(current, contracts.StatusCompleted, nil)

	// RENDER
	current = contracts.StageRender
	r.emit(current, contracts.StatusStarted, nil)
	ref, err := r.components.Renderer.Render(ctx, r.state)
	if err != nil {
		r.fail(current, err)
		return
	}
	r.state.VisualizationRef = ref
	r.emit(current, contracts.StatusCompleted, nil)
}

func (r *run) fetch(ctx context.Context) ([]contracts.PriceBar, error) {
	ctx, cancel := withTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	raw, err := r.components.Source.FetchDailySeries(ctx, r.state.Symbol(), r.opts.Lookback, r.opts.Interval)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no price data for %s", contracts.ErrNotFound, r.state.Symbol())
	}
	return raw, nil
}

// scrapeNews never fails the run; errors and panics degrade to no headlines
func (r *run) scrapeNews(ctx context.Context) (headlines []string) {
	headlines = []string{}
	if r.components.News == nil {
		r.emit(contracts.StageNews, contracts.StatusSkipped, nil)
		return headlines
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("panic", fmt.Sprint(rec)).Warn("News scraper panicked")
			r.emit(contracts.StageNews, contracts.StatusFailed, fmt.Errorf("panic: %v", rec))
			headlines = []string{}
		}
	}()

	r.emit(contracts.StageNews, contracts.StatusStarted, nil)

	ctx, cancel := withTimeout(ctx, r.opts.NewsTimeout)
	defer cancel()

	got, err := r.components.News.FetchHeadlines(ctx, r.state.Symbol())
	if err != nil {
		r.log.WithError(err).Warn("News scraping failed; continuing without headlines")
		r.emit(contracts.StageNews, contracts.StatusFailed, err)
		return headlines
	}
	if len(got) > contracts.MaxHeadlines {
		got = got[:contracts.MaxHeadlines]
	}
	if got != nil {
		headlines = got
	}
	r.emit(contracts.StageNews, contracts.StatusCompleted, nil)
	return headlines
}

func (r *run) compose(ctx context.Context) (string, error) {
	ctx, cancel := withTimeout(ctx, r.opts.ReportTimeout)
	defer cancel()

	report, err := r.components.Composer.Compose(ctx, r.state)
	if err != nil && !errors.Is(err, contracts.ErrReportGeneration) && !errors.Is(err, contracts.ErrInsufficientData) {
		err = fmt.Errorf("%w: %w", contracts.ErrReportGeneration, err)
	}
	return report, err
}

func (r *run) fail(stage contracts.Stage, err error) {
	r.state.SetError(err)
	r.log.WithFields(map[string]interface{}{
		"stage": stage.String(),
		"kind":  string(contracts.KindOf(err)),
	}).WithError(err).Warn("Stage failed")
	r.emit(stage, contracts.StatusFailed, err)
}

func (r *run) skip(stages ...contracts.Stage) {
	for _, s := range stages {
		r.emit(s, contracts.StatusSkipped, nil)
	}
}

func (r *run) emit(stage contracts.Stage, status contracts.StageStatus, err error) {
	if r.observer == nil {
		return
	}
	event := contracts.StageEvent{
		RunID:  r.id,
		Symbol: r.state.Symbol(),
		Stage:  stage,
		Status: status,
	}
	if err != nil {
		event.Error = err.Error()
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.observer.OnStage(event)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
