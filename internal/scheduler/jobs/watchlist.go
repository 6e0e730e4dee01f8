package jobs

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/logger"
)

// Analyzer runs one analysis
type Analyzer interface {
	RunAnalysis(ctx context.Context, symbol string) (*contracts.AnalysisState, error)
}

// watchlistConcurrency bounds simultaneous analyses (Yahoo and Gemini quotas)
const watchlistConcurrency = 2

// WatchlistJob refreshes the analysis and chart for every watchlist symbol
type WatchlistJob struct {
	analyzer Analyzer
	symbols  []string
	schedule string
	logger   *logger.Logger
}

// NewWatchlistJob creates a new watchlist job
func NewWatchlistJob(analyzer Analyzer, symbols []string, schedule string, log *logger.Logger) *WatchlistJob {
	return &WatchlistJob{
		analyzer: analyzer,
		symbols:  symbols,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return "watchlist_refresh"
}

// Schedule returns the cron schedule (with seconds)
func (j *WatchlistJob) Schedule() string {
	return j.schedule
}

// Run analyzes every symbol. It fails only when every symbol fails.
func (j *WatchlistJob) Run(ctx context.Context) error {
	if len(j.symbols) == 0 {
		j.logger.Info("Watchlist is empty, skipping")
		return nil
	}

	var failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(watchlistConcurrency)

	for _, symbol := range j.symbols {
		symbol := symbol
		g.Go(func() error {
			state, err := j.analyzer.RunAnalysis(gctx, symbol)
			if err != nil || state.HasError() {
				mu.Lock()
				failed++
				mu.Unlock()

				msg := ""
				if err != nil {
					msg = err.Error()
				} else {
					msg = state.Error
				}
				j.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  msg,
				}).Warn("Watchlist analysis failed")
				return nil
			}

			j.logger.WithFields(map[string]interface{}{
				"symbol":        symbol,
				"visualization": state.VisualizationRef,
			}).Info("Watchlist analysis refreshed")
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed == len(j.symbols) {
		return fmt.Errorf("all %d watchlist analyses failed", failed)
	}
	return nil
}
