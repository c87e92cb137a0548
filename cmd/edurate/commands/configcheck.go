package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/config"
)

// configCheckCmd represents the config-check command
var configCheckCmd = &cobra.Command{
	Use:   "config-check",
	Short: "Validate the rating weights file",
	Long: `Loads the configured weights file, validates it and prints the
effective weights and their content hash.

Example:
  go run ./cmd/edurate config-check
  go run ./cmd/edurate config-check --file config/rating_weights.yaml`,
	RunE: runConfigCheck,
}

var configCheckFile string

func init() {
	rootCmd.AddCommand(configCheckCmd)

	configCheckCmd.Flags().StringVar(&configCheckFile, "file", "", "weights file (default from RATING_WEIGHTS_FILE)")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := configCheckFile
	if path == "" {
		path = cfg.Rating.WeightsFile
	}

	rc, _, err := ratingconfig.Load(path)
	if err != nil {
		return fmt.Errorf("weights file %s: %w", path, err)
	}

	hash, err := ratingconfig.Hash(rc)
	if err != nil {
		return fmt.Errorf("hash configuration: %w", err)
	}

	fmt.Printf("Weights file: %s\n", path)
	fmt.Printf("Hash: %s\n\n", hash)
	for _, key := range contracts.AllComponents() {
		r := rc.RangeFor(key)
		fmt.Printf("  %-20s %3d%%  (range %d-%d)\n", key, rc.Weights.Get(key), r.Min, r.Max)
	}
	fmt.Printf("\nGrowth bonus: rate %.2f, clamp [%.1f, %.1f], history %d periods\n",
		rc.Growth.Rate, rc.Growth.Min, rc.Growth.Max, rc.Growth.HistoryLimit)

	if len(rc.YearWeights) > 0 {
		fmt.Println("\nYear weights:")
		for _, yw := range rc.EffectiveYearWeights("") {
			fmt.Printf("  %s  %.2f\n", yw.Period, yw.Weight)
		}
	}

	fmt.Println("\nConfiguration is valid")
	return nil
}
