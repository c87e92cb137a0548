package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/internal/scoring"
	"github.com/elmarb/edurate/pkg/logger"
)

// Aggregator combines the six component scores and the growth bonus
// into a single RatingResult per person and period. Aggregation is
// deterministic: identical inputs and configuration yield identical
// scored values; only the audit timestamp differs between runs.
type Aggregator struct {
	calculator *scoring.Calculator
	growth     *GrowthBonusCalculator
	people     contracts.PersonDirectory
	ratings    contracts.RatingRepository
	logger     *logger.Logger
}

// NewAggregator creates a new rating aggregator.
func NewAggregator(
	calculator *scoring.Calculator,
	growth *GrowthBonusCalculator,
	people contracts.PersonDirectory,
	ratings contracts.RatingRepository,
	log *logger.Logger,
) *Aggregator {
	return &Aggregator{
		calculator: calculator,
		growth:     growth,
		people:     people,
		ratings:    ratings,
		logger:     log,
	}
}

// Aggregate computes and persists the rating of one person for one
// period. The configuration is validated up front; on validation
// failure nothing is computed or written. The (person, period) row is
// overwritten with a single atomic upsert, so concurrent recomputations
// resolve last-writer-wins without interleaving.
func (a *Aggregator) Aggregate(ctx context.Context, personID int64, period contracts.Period, cfg ratingconfig.Config) (*contracts.RatingResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, InvalidConfigurationError{Err: err}
	}

	school, err := a.people.School(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("resolve school for person %d: %w", personID, err)
	}

	result := &contracts.RatingResult{
		PersonID:        personID,
		InstitutionID:   school,
		Period:          period,
		Components:      make(map[contracts.ComponentKey]contracts.ComponentScore, 6),
		YearlyBreakdown: make(map[contracts.Period]map[contracts.ComponentKey]float64),
		Status:          contracts.StatusPublished,
	}

	for _, key := range contracts.AllComponents() {
		score, years, err := a.calculator.Compute(ctx, key, personID, period, cfg)
		if err != nil {
			return nil, fmt.Errorf("compute %s score for person %d: %w", key, personID, err)
		}

		result.Components[key] = score
		for _, y := range years {
			if result.YearlyBreakdown[y.Period] == nil {
				result.YearlyBreakdown[y.Period] = make(map[contracts.ComponentKey]float64, 6)
			}
			result.YearlyBreakdown[y.Period][key] = y.Raw
		}
	}

	bonus, err := a.growth.Compute(ctx, personID, period, cfg)
	if err != nil {
		return nil, fmt.Errorf("compute growth bonus for person %d: %w", personID, err)
	}
	result.GrowthBonus = bonus

	// No floor is applied: manual penalties and a negative bonus may
	// legitimately drive the total below zero.
	result.TotalScore = result.SumWeighted() + bonus
	result.ComputedAt = time.Now()

	if err := a.ratings.Upsert(ctx, result); err != nil {
		return nil, fmt.Errorf("persist rating for person %d: %w", personID, err)
	}

	a.logger.WithFields(map[string]interface{}{
		"person_id":    personID,
		"period":       period,
		"total_score":  result.TotalScore,
		"growth_bonus": bonus,
	}).Debug("Rating aggregated")

	return result, nil
}
