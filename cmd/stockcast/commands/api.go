package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/internal/api"
	"github.com/wonny/stockcast/internal/api/handlers"
	"github.com/wonny/stockcast/internal/chat"
	"github.com/wonny/stockcast/internal/feedback"
	"github.com/wonny/stockcast/pkg/database"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST and websocket API.

Endpoints:
  GET  /health                     - Health check
  POST /analyze-stock              - Run an analysis
  GET  /api/analysis/{symbol}      - Run an analysis (path form)
  GET  /ws/analyze?symbol=X        - Stream stage events, then the result
  GET  /visualizations/{filename}  - Forecast chart PNG
  POST /financial-chat             - Analyst assistant chat
  POST /submit-feedback            - Rate an analysis (needs DATABASE_URL)
  GET  /feedback-summary           - Rating summary (needs DATABASE_URL)

Example:
  go run ./cmd/stockcast api
  go run ./cmd/stockcast api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (defaults to PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also refresh the watchlist on its cron schedule")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== stockcast API Server ===")

	ctx := context.Background()

	// 1. Pipeline (config, logger, redis, external clients)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 2. Feedback store (optional)
	var store feedback.Store
	if cfg.Database.Enabled() {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		store = feedback.NewRepository(db.Pool)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, feedback endpoints disabled")
	}

	// 3. Handlers
	h := api.Handlers{
		Analysis:      handlers.NewAnalysisHandler(a.orchestrator, log),
		Visualization: handlers.NewVisualizationHandler(cfg.Analysis.VisualizationDir, log),
		Chat:          handlers.NewChatHandler(chat.NewService(a.gemini, log.Zerolog()), log),
		Feedback:      handlers.NewFeedbackHandler(feedback.NewService(store, log), log),
	}

	// 4. Router and server
	server := api.New(cfg, log, api.NewRouter(h, log))

	// 5. Optional watchlist refresh
	if withScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
