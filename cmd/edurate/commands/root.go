package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edurate",
	Short: "Edurate - teacher rating and ranking engine",
	Long: `Edurate Unified CLI

Aggregates six weighted performance components per teacher and period,
applies a growth bonus from historical scores, and ranks teachers
within their school, sector, region and subject.

Usage:
  go run ./cmd/edurate [command]

Examples:
  go run ./cmd/edurate api
  go run ./cmd/edurate recalc --institution 1 --period 2024-2025
  go run ./cmd/edurate scheduler
  go run ./cmd/edurate config-check`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
