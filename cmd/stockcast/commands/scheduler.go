package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/internal/scheduler"
	"github.com/wonny/stockcast/internal/scheduler/jobs"
	"github.com/wonny/stockcast/internal/watchlist"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the watchlist scheduler",
	Long: `Starts the scheduler or manages its jobs.

Subcommands:
  start   - Start the scheduler
  list    - List registered jobs
  run     - Run a job now

The watchlist comes from WATCHLIST (comma separated) and the schedule from
WATCHLIST_CRON (seconds field first). WATCHLIST_FILE points at a YAML file
that overrides both.

Example:
  go run ./cmd/stockcast scheduler start
  go run ./cmd/stockcast scheduler run watchlist_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// resolveWatchlist applies WATCHLIST_FILE over the env settings
func resolveWatchlist(a *app) error {
	path := a.cfg.Scheduler.File
	if path == "" {
		return nil
	}

	f, err := watchlist.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	a.cfg.Scheduler.Watchlist = f.Symbols
	if f.Schedule != "" {
		a.cfg.Scheduler.Cron = f.Schedule
	}

	hash, _ := watchlist.Hash(f)
	a.log.WithFields(map[string]interface{}{
		"file":    path,
		"symbols": len(f.Symbols),
		"hash":    hash,
	}).Info("Loaded watchlist file")
	return nil
}

// newScheduler registers the watchlist job on a fresh scheduler
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	if err := resolveWatchlist(a); err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log)

	job := jobs.NewWatchlistJob(a.orchestrator, a.cfg.Scheduler.Watchlist, a.cfg.Scheduler.Cron, a.log)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== stockcast Scheduler ===")

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if len(a.cfg.Scheduler.Watchlist) == 0 {
		a.log.Warn("WATCHLIST is empty, scheduled runs will do nothing")
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s (%s)\n", jobName, a.cfg.Scheduler.Cron)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  - %s  schedule=%q\n", name, stat.Schedule)
	}
	fmt.Printf("\nWatchlist: %v\n", a.cfg.Scheduler.Watchlist)

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error)
	}

	fmt.Printf("✅ Job completed in %s\n", result.Duration)
	return nil
}
