package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/service"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/database"
	"github.com/elmarb/edurate/pkg/logger"
	"github.com/elmarb/edurate/pkg/redis"
)

// recalcCmd represents the recalc command
var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recompute and rerank a scope once",
	Long: `Recomputes every teacher under an institution for a period,
then ranks the cohort and persists the ranks.

Example:
  go run ./cmd/edurate recalc --institution 1 --period 2024-2025`,
	RunE: runRecalc,
}

var (
	recalcInstitution int64
	recalcPeriod      string
)

func init() {
	rootCmd.AddCommand(recalcCmd)

	recalcCmd.Flags().Int64Var(&recalcInstitution, "institution", 0, "root institution of the scope")
	recalcCmd.Flags().StringVar(&recalcPeriod, "period", "", "academic year, e.g. 2024-2025")
	recalcCmd.MarkFlagRequired("institution")
	recalcCmd.MarkFlagRequired("period")
}

func runRecalc(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	svc := buildService(cfg, log, db, rdb)

	batch, err := svc.ComputeRatingsForScope(cmd.Context(), recalcInstitution, contracts.Period(recalcPeriod), service.BatchOptions{
		Progress: func(processed, total int) {
			if processed%100 == 0 || processed == total {
				fmt.Printf("  %d/%d persons\n", processed, total)
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rated %d persons in %s", len(batch.Results), batch.Duration)
	if len(batch.Skipped) > 0 {
		fmt.Printf(", skipped %d: %v", len(batch.Skipped), batch.Skipped)
	}
	fmt.Println()

	return nil
}
