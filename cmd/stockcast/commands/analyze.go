package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/internal/contracts"
)

// analyzeCmd runs one analysis from the terminal
var analyzeCmd = &cobra.Command{
	Use:   "analyze <SYMBOL>",
	Short: "Run an analysis for one symbol",
	Long: `Fetches prices, forecasts 7 days, composes the report and renders the chart.

Example:
  go run ./cmd/stockcast analyze AAPL
  go run ./cmd/stockcast analyze msft --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeJSON bool

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full analysis state as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.orchestrator.RunAnalysis(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
	} else {
		printState(cmd, state, a.cfg.Analysis.VisualizationDir)
	}

	if state.HasError() {
		return fmt.Errorf("analysis failed (%s): %s", state.ErrorKind, state.Error)
	}
	return nil
}

func printState(cmd *cobra.Command, state *contracts.AnalysisState, dir string) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "=== %s ===\n", state.Symbol())
	fmt.Fprintf(out, "Rows: %d raw, %d clean\n", len(state.RawSeries), len(state.PreprocessedSeries))

	if state.HasForecast() {
		fmt.Fprintln(out, "\nForecast:")
		for _, p := range state.Forecast {
			fmt.Fprintf(out, "  %s  %10.2f\n", p.Date.Format("2006-01-02"), p.PredictedClose)
		}
	}

	if len(state.NewsHeadlines) > 0 {
		fmt.Fprintln(out, "\nHeadlines:")
		for _, h := range state.NewsHeadlines {
			fmt.Fprintf(out, "  - %s\n", h)
		}
	}

	if state.NarrativeReport != "" {
		fmt.Fprintln(out, "\nReport:")
		fmt.Fprintln(out, strings.TrimSpace(state.NarrativeReport))
	}

	if state.VisualizationRef != "" {
		fmt.Fprintf(out, "\nChart: %s\n", filepath.Join(dir, state.VisualizationRef))
	}

	if state.HasError() {
		fmt.Fprintf(out, "\n❌ %s\n", state.Error)
	}
}
