package service

import (
	"context"
	"fmt"
	"time"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/notify"
	"github.com/elmarb/edurate/internal/ranking"
	"github.com/elmarb/edurate/internal/rating"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/logger"
)

// ResultCache is the slice of the redis cache the service uses for
// computed ratings. *redis.Cache satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service coordinates the rating workflow: single-person aggregation
// with a read-through result cache, scope-wide batch recalculation with
// ranking, and configuration updates.
type Service struct {
	cfg *config.Config

	configs    ratingconfig.Store
	aggregator *rating.Aggregator
	ranker     *ranking.Engine

	institutions contracts.InstitutionScopeResolver
	people       contracts.PersonDirectory
	ratings      contracts.RatingRepository

	cache    ResultCache
	notifier *notify.Notifier
	logger   *logger.Logger
}

// New creates the rating service.
func New(
	cfg *config.Config,
	configs ratingconfig.Store,
	aggregator *rating.Aggregator,
	ranker *ranking.Engine,
	institutions contracts.InstitutionScopeResolver,
	people contracts.PersonDirectory,
	ratings contracts.RatingRepository,
	cache ResultCache,
	notifier *notify.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		configs:      configs,
		aggregator:   aggregator,
		ranker:       ranker,
		institutions: institutions,
		people:       people,
		ratings:      ratings,
		cache:        cache,
		notifier:     notifier,
		logger:       log,
	}
}

// BatchOptions tunes a scope-wide recalculation.
type BatchOptions struct {
	// Progress, when set, is called after every processed person with
	// the running count and the cohort size.
	Progress func(processed, total int)
}

// BatchResult summarizes a scope-wide recalculation. Skipped lists the
// persons whose aggregation failed; their previous ratings are left
// untouched and they do not participate in ranking.
type BatchResult struct {
	InstitutionID int64
	Period        contracts.Period
	Results       []*contracts.RatingResult
	Skipped       []int64
	Duration      time.Duration
}

func cacheKey(personID int64, period contracts.Period) string {
	return fmt.Sprintf("rating:%d:%s", personID, period)
}

// ComputeRating computes and persists one person's rating under the
// active configuration. Unless force is set, a cached result from a
// recent computation is returned as is. Single-person computation does
// not assign ranks; those change only through scope recalculation.
func (s *Service) ComputeRating(ctx context.Context, personID int64, period contracts.Period, force bool) (*contracts.RatingResult, error) {
	key := cacheKey(personID, period)

	if !force {
		var cached contracts.RatingResult
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Rating cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active configuration: %w", err)
	}

	result, err := s.aggregator.Aggregate(ctx, personID, period, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, result, s.cfg.Rating.CacheTTL); err != nil {
		s.logger.WithError(err).Warn("Rating cache write failed")
	}

	return result, nil
}

// GetRating returns the stored rating of one person without
// recomputing anything.
func (s *Service) GetRating(ctx context.Context, personID int64, period contracts.Period) (*contracts.RatingResult, error) {
	return s.ratings.Get(ctx, personID, period)
}

// ListRatings returns the stored ratings of every person in the given
// institution subtree for the period.
func (s *Service) ListRatings(ctx context.Context, institutionID int64, period contracts.Period) ([]*contracts.RatingResult, error) {
	scope, err := s.institutions.DescendantIDs(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("resolve institution scope %d: %w", institutionID, err)
	}
	return s.ratings.ListByPeriod(ctx, period, scope)
}

// ComputeRatingsForScope recomputes every person under the given
// institution for the period, then ranks the freshly aggregated cohort
// and persists the ranks. Aggregation runs in chunks; a failing person
// is skipped and logged, never aborting the batch. Ranking starts only
// after the whole cohort is aggregated, over the surviving results.
func (s *Service) ComputeRatingsForScope(ctx context.Context, institutionID int64, period contracts.Period, opts BatchOptions) (*BatchResult, error) {
	start := time.Now()

	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, rating.InvalidConfigurationError{Err: err}
	}

	scope, err := s.institutions.DescendantIDs(ctx, institutionID)
	if err != nil {
		return nil, fmt.Errorf("resolve institution scope %d: %w", institutionID, err)
	}

	persons, err := s.people.TeacherIDs(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list persons in scope %d: %w", institutionID, err)
	}

	batch := &BatchResult{
		InstitutionID: institutionID,
		Period:        period,
		Results:       make([]*contracts.RatingResult, 0, len(persons)),
	}

	s.logger.WithFields(map[string]interface{}{
		"institution_id": institutionID,
		"period":         period,
		"persons":        len(persons),
	}).Info("Scope recalculation started")

	chunkSize := s.cfg.Rating.BatchChunkSize
	processed := 0
	for chunkStart := 0; chunkStart < len(persons); chunkStart += chunkSize {
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > len(persons) {
			chunkEnd = len(persons)
		}

		for _, personID := range persons[chunkStart:chunkEnd] {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scope recalculation canceled after %d of %d persons: %w", processed, len(persons), err)
			}

			result, err := s.aggregator.Aggregate(ctx, personID, period, cfg)
			if err != nil {
				batch.Skipped = append(batch.Skipped, personID)
				s.logger.WithError(err).WithFields(map[string]interface{}{
					"person_id": personID,
					"period":    period,
				}).Warn("Person skipped during scope recalculation")
			} else {
				batch.Results = append(batch.Results, result)
			}

			processed++
			if opts.Progress != nil {
				opts.Progress(processed, len(persons))
			}
		}
	}

	if err := s.ranker.Rank(ctx, batch.Results); err != nil {
		return nil, fmt.Errorf("rank scope %d: %w", institutionID, err)
	}
	if len(batch.Results) > 0 {
		if err := s.ratings.UpdateRanks(ctx, batch.Results); err != nil {
			return nil, fmt.Errorf("persist ranks for scope %d: %w", institutionID, err)
		}
	}

	for _, result := range batch.Results {
		if err := s.cache.Set(ctx, cacheKey(result.PersonID, period), result, s.cfg.Rating.CacheTTL); err != nil {
			s.logger.WithError(err).WithField("person_id", result.PersonID).Warn("Rating cache write failed")
			continue
		}
	}

	batch.Duration = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"institution_id": institutionID,
		"period":         period,
		"rated":          len(batch.Results),
		"skipped":        len(batch.Skipped),
		"duration":       batch.Duration.String(),
	}).Info("Scope recalculation finished")

	if err := s.notifier.BatchFinished(ctx, notify.BatchFinishedEvent{
		InstitutionID: institutionID,
		Period:        period,
		Rated:         len(batch.Results),
		Skipped:       batch.Skipped,
		Duration:      batch.Duration.String(),
		FinishedAt:    time.Now(),
	}); err != nil {
		s.logger.WithError(err).Warn("Batch webhook delivery failed")
	}

	return batch, nil
}

// ActiveConfiguration returns the configuration batches run under.
func (s *Service) ActiveConfiguration(ctx context.Context) (ratingconfig.Config, error) {
	return s.configs.Active(ctx)
}

// UpdateConfiguration replaces the six component weights atomically.
// The new weight set is validated against the ranges and the sum
// constraint before anything is stored; on failure the active
// configuration is untouched. The update does not recompute existing
// ratings, it only governs computations from here on.
func (s *Service) UpdateConfiguration(ctx context.Context, weights map[contracts.ComponentKey]int) (ratingconfig.Config, error) {
	active, err := s.configs.Active(ctx)
	if err != nil {
		return ratingconfig.Config{}, fmt.Errorf("load active configuration: %w", err)
	}

	updated, err := active.Update(weights)
	if err != nil {
		return ratingconfig.Config{}, err
	}

	if err := s.configs.Save(ctx, updated); err != nil {
		return ratingconfig.Config{}, fmt.Errorf("save configuration: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"weights": updated.Weights.Map(),
	}).Info("Rating configuration updated")

	return updated, nil
}
