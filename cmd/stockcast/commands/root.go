package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockcast",
	Short: "stockcast - short-horizon stock forecasts with narrative reports",
	Long: `stockcast CLI

Fetches recent daily prices, fits an ARIMA(5,1,0) model, forecasts the next
7 days, writes a narrative report and renders a chart.

Usage:
  go run ./cmd/stockcast [command]

Examples:
  go run ./cmd/stockcast api
  go run ./cmd/stockcast analyze AAPL
  go run ./cmd/stockcast scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
