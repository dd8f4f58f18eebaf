package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "triarb",
	Short: "Triangular arbitrage event pipeline",
	Long: `triarb watches a base/settlement/alt symbol universe on a single
exchange, reconstructs full order books from a WebSocket delta stream plus
REST snapshots, detects triangular arbitrage cycles that clear a configured
profit threshold, and dispatches limit orders for the ones the gatekeeper
admits against the account's risk budget.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
