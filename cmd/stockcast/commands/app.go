package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stockcast/internal/external/gemini"
	"github.com/wonny/stockcast/internal/external/yahoo"
	"github.com/wonny/stockcast/internal/forecast"
	"github.com/wonny/stockcast/internal/pipeline"
	"github.com/wonny/stockcast/internal/report"
	"github.com/wonny/stockcast/internal/visualization"
	"github.com/wonny/stockcast/pkg/config"
	"github.com/wonny/stockcast/pkg/httputil"
	"github.com/wonny/stockcast/pkg/logger"
	"github.com/wonny/stockcast/pkg/redis"
)

// app holds the collaborators shared by every command
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	redis        *redis.Client
	gemini       *gemini.Client
	orchestrator *pipeline.Orchestrator
}

// loadConfig reads config and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp wires the analysis pipeline
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	// 1. Redis (optional; a disabled client is a pass-through)
	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 2. HTTP clients, rate limited per upstream when Redis is on
	chartHTTP := httputil.NewWithTimeout(log, cfg.Analysis.FetchTimeout)
	pageHTTP := httputil.NewWithTimeout(log, cfg.Analysis.NewsTimeout)
	if rdb.Enabled() {
		limiter := redis.NewRateLimiter(rdb, "stockcast")
		chartHTTP.WithRateLimiter(limiter, redis.YahooRateLimit)
		pageHTTP.WithRateLimiter(limiter, redis.YahooPageRateLimit)
	}

	// 3. External clients
	chart := yahoo.NewChartClient(chartHTTP, log, cfg.Yahoo.ChartURL)
	news := yahoo.NewNewsScraper(pageHTTP, log, cfg.Yahoo.QuoteURL)
	if rdb.Enabled() {
		cache := redis.NewCache(rdb, "stockcast")
		chart.WithCache(cache, cfg.Analysis.SeriesCacheTTL)
		news.WithCache(cache, redis.TTLMedium)
	}

	gem, err := gemini.New(ctx, cfg.Gemini, log)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	// 4. Pipeline stages
	orchestrator := pipeline.NewOrchestrator(pipeline.Components{
		Source:     chart,
		News:       news,
		Forecaster: forecast.NewForecaster(log.Zerolog()),
		Composer:   report.NewComposer(gem, log.Zerolog()),
		Renderer:   visualization.NewRenderer(cfg.Analysis.VisualizationDir, log.Zerolog()),
	}, pipeline.Options{
		Lookback:      cfg.Yahoo.Range,
		Interval:      cfg.Yahoo.Interval,
		FetchTimeout:  cfg.Analysis.FetchTimeout,
		NewsTimeout:   cfg.Analysis.NewsTimeout,
		ReportTimeout: cfg.Analysis.ReportTimeout,
	}, log)

	return &app{
		cfg:          cfg,
		log:          log,
		redis:        rdb,
		gemini:       gem,
		orchestrator: orchestrator,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("close redis")
	}
}
