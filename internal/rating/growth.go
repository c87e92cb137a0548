package rating

import (
	"context"
	"fmt"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/logger"
)

// GrowthBonusCalculator derives a signed bonus from the trend in a
// person's historical academic scores. Improvement is rewarded and
// regression penalized symmetrically; insufficient history is neutral,
// never punitive.
type GrowthBonusCalculator struct {
	history contracts.HistoryStore
	logger  *logger.Logger
}

// NewGrowthBonusCalculator creates a new growth bonus calculator.
func NewGrowthBonusCalculator(history contracts.HistoryStore, log *logger.Logger) *GrowthBonusCalculator {
	return &GrowthBonusCalculator{
		history: history,
		logger:  log,
	}
}

// Compute returns the growth bonus for a person entering the given
// period. With fewer than two prior periods of academic history the
// bonus is 0. Otherwise the most recent prior score is compared against
// the mean of the available prior scores (capped at the configured
// history limit) and the difference is scaled and clamped.
func (g *GrowthBonusCalculator) Compute(ctx context.Context, personID int64, period contracts.Period, cfg ratingconfig.Config) (float64, error) {
	scores, err := g.history.AcademicWeightedScores(ctx, personID, period, cfg.Growth.HistoryLimit)
	if err != nil {
		return 0, fmt.Errorf("load academic history: %w", err)
	}

	return BonusFromHistory(scores, cfg.Growth), nil
}

// BonusFromHistory computes the bonus from an already-loaded history
// slice, most recent first.
func BonusFromHistory(scores []float64, growth ratingconfig.GrowthBonus) float64 {
	if len(scores) < 2 {
		return 0
	}

	if growth.HistoryLimit > 0 && len(scores) > growth.HistoryLimit {
		scores = scores[:growth.HistoryLimit]
	}

	latest := scores[0]

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	bonus := (latest - mean) * growth.Rate
	if bonus < growth.Min {
		bonus = growth.Min
	} else if bonus > growth.Max {
		bonus = growth.Max
	}
	return bonus
}
