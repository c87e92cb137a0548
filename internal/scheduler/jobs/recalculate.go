package jobs

import (
	"context"
	"fmt"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/service"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/logger"
)

// RecalculateJob recomputes and reranks every person under the root
// institution each night, so ratings track input data entered during
// the day without anyone triggering a batch by hand.
type RecalculateJob struct {
	service       *service.Service
	institutionID int64
	period        contracts.Period
	logger        *logger.Logger
}

// NewRecalculateJob creates a new nightly recalculation job.
func NewRecalculateJob(svc *service.Service, cfg *config.Config, log *logger.Logger) *RecalculateJob {
	return &RecalculateJob{
		service:       svc,
		institutionID: cfg.Rating.RootInstitutionID,
		period:        contracts.Period(cfg.Rating.CurrentPeriod),
		logger:        log,
	}
}

// Name returns the job name
func (j *RecalculateJob) Name() string {
	return "rating_recalculation"
}

// Schedule returns the cron schedule (every day at 2 AM)
func (j *RecalculateJob) Schedule() string {
	return "0 0 2 * * *"
}

// Run executes the scope-wide recalculation
func (j *RecalculateJob) Run(ctx context.Context) error {
	if j.institutionID == 0 || j.period == "" {
		return fmt.Errorf("nightly recalculation needs RATING_ROOT_INSTITUTION_ID and RATING_CURRENT_PERIOD")
	}

	batch, err := j.service.ComputeRatingsForScope(ctx, j.institutionID, j.period, service.BatchOptions{})
	if err != nil {
		return fmt.Errorf("nightly recalculation: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rated":   len(batch.Results),
		"skipped": len(batch.Skipped),
	}).Info("Nightly recalculation completed")

	return nil
}
