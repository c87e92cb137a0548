package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/pkg/logger"
)

// Engine assigns per-scope ranks to a set of aggregated rating results.
// Within each scope the results are ordered by total score descending
// with person id ascending as the tie-break, and ranked 1..N in that
// order. Ranking mutates the given results in place; persistence is the
// caller's concern.
type Engine struct {
	institutions contracts.InstitutionScopeResolver
	people       contracts.PersonDirectory
	logger       *logger.Logger
}

// NewEngine creates a new ranking engine.
func NewEngine(institutions contracts.InstitutionScopeResolver, people contracts.PersonDirectory, log *logger.Logger) *Engine {
	return &Engine{
		institutions: institutions,
		people:       people,
		logger:       log,
	}
}

// Rank computes the school, sector, region and subject ranks for all
// given results. Results whose school has no ancestor at the sector or
// region level keep a nil rank for that scope, as do persons without a
// primary subject for the subject scope.
func (e *Engine) Rank(ctx context.Context, results []*contracts.RatingResult) error {
	if len(results) == 0 {
		return nil
	}

	schoolGroups := make(map[int64][]*contracts.RatingResult)
	sectorGroups := make(map[int64][]*contracts.RatingResult)
	regionGroups := make(map[int64][]*contracts.RatingResult)
	subjectGroups := make(map[int64][]*contracts.RatingResult)

	// Ancestor lookups are cached per school; a cohort shares a handful
	// of schools, not one per person.
	sectorOf := make(map[int64]int64)
	regionOf := make(map[int64]int64)

	for _, r := range results {
		school := r.InstitutionID
		schoolGroups[school] = append(schoolGroups[school], r)

		sector, ok := sectorOf[school]
		if !ok {
			var err error
			sector, err = e.institutions.AncestorAtLevel(ctx, school, contracts.LevelSector)
			if err != nil {
				return fmt.Errorf("resolve sector of institution %d: %w", school, err)
			}
			sectorOf[school] = sector
		}
		if sector != 0 {
			sectorGroups[sector] = append(sectorGroups[sector], r)
		}

		region, ok := regionOf[school]
		if !ok {
			var err error
			region, err = e.institutions.AncestorAtLevel(ctx, school, contracts.LevelRegion)
			if err != nil {
				return fmt.Errorf("resolve region of institution %d: %w", school, err)
			}
			regionOf[school] = region
		}
		if region != 0 {
			regionGroups[region] = append(regionGroups[region], r)
		}

		subject, err := e.people.PrimarySubject(ctx, r.PersonID)
		if err != nil {
			return fmt.Errorf("resolve primary subject of person %d: %w", r.PersonID, err)
		}
		if subject != nil {
			subjectGroups[*subject] = append(subjectGroups[*subject], r)
		}
	}

	assignRanks(schoolGroups, func(r *contracts.RatingResult, rank int) { r.RankSchool = &rank })
	assignRanks(sectorGroups, func(r *contracts.RatingResult, rank int) { r.RankSector = &rank })
	assignRanks(regionGroups, func(r *contracts.RatingResult, rank int) { r.RankRegion = &rank })
	assignRanks(subjectGroups, func(r *contracts.RatingResult, rank int) { r.RankSubject = &rank })

	e.logger.WithFields(map[string]interface{}{
		"results":  len(results),
		"schools":  len(schoolGroups),
		"sectors":  len(sectorGroups),
		"regions":  len(regionGroups),
		"subjects": len(subjectGroups),
	}).Debug("Ranks assigned")

	return nil
}

// assignRanks orders each group and writes positional ranks 1..N
// through set. Equal total scores are broken by person id ascending, so
// the assignment is a pure function of the scored set.
func assignRanks(groups map[int64][]*contracts.RatingResult, set func(*contracts.RatingResult, int)) {
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if group[i].TotalScore != group[j].TotalScore {
				return group[i].TotalScore > group[j].TotalScore
			}
			return group[i].PersonID < group[j].PersonID
		})

		for i, r := range group {
			rank := i + 1
			set(r, rank)
		}
	}
}
