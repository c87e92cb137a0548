package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/logger"
)

// Calculator computes raw and weighted scores for the six rating
// components. Missing data is a legitimate zero, never an error;
// out-of-range upstream data is clamped and logged, never rejected.
type Calculator struct {
	classes      contracts.ClassResultRepository
	observations contracts.LessonObservationRepository
	assessments  contracts.AssessmentRepository
	certificates contracts.CertificateRepository
	olympiads    contracts.OlympiadRepository
	awards       contracts.AwardRepository

	logger *logger.Logger
}

// NewCalculator creates a new component score calculator.
func NewCalculator(
	classes contracts.ClassResultRepository,
	observations contracts.LessonObservationRepository,
	assessments contracts.AssessmentRepository,
	certificates contracts.CertificateRepository,
	olympiads contracts.OlympiadRepository,
	awards contracts.AwardRepository,
	log *logger.Logger,
) *Calculator {
	return &Calculator{
		classes:      classes,
		observations: observations,
		assessments:  assessments,
		certificates: certificates,
		olympiads:    olympiads,
		awards:       awards,
		logger:       log,
	}
}

// YearScore is one academic year's contribution to a component score.
type YearScore struct {
	Period contracts.Period
	Weight float64
	Raw    float64
}

// Compute calculates the score of one component for one person and
// period. When the configuration carries year weights, the raw score is
// the year-weighted combination of the per-year raw scores; the
// per-year values are returned alongside for the yearly breakdown.
func (c *Calculator) Compute(ctx context.Context, key contracts.ComponentKey, personID int64, period contracts.Period, cfg ratingconfig.Config) (contracts.ComponentScore, []YearScore, error) {
	if !key.Valid() {
		return contracts.ComponentScore{}, nil, fmt.Errorf("unknown rating component %q", key)
	}

	years := cfg.EffectiveYearWeights(period)

	var raw float64
	var targetWeight float64
	var details map[string]interface{}
	yearScores := make([]YearScore, 0, len(years))

	for _, yw := range years {
		if yw.Weight == 0 {
			continue
		}

		r, det, err := c.rawScore(ctx, key, personID, yw.Period, cfg)
		if err != nil {
			return contracts.ComponentScore{}, nil, err
		}
		r = c.clampRaw(key, personID, yw.Period, r)

		raw += yw.Weight * r
		yearScores = append(yearScores, YearScore{Period: yw.Period, Weight: yw.Weight, Raw: r})

		if yw.Period == period {
			targetWeight = yw.Weight
			details = det
		} else if details == nil {
			details = det
		}
	}

	// Year weights sum to 1 and per-year raws are clamped, so the
	// combined raw already sits in [0, 100]; clamp again to be safe
	// against float drift.
	raw = c.clampRaw(key, personID, period, raw)

	weight := cfg.Weights.Get(key)
	score := contracts.ComponentScore{
		Key:        key,
		RawScore:   raw,
		Weighted:   raw / 100 * float64(weight),
		YearWeight: targetWeight,
		Details:    details,
	}

	return score, yearScores, nil
}

// rawScore dispatches to the component-specific calculation. The switch
// is exhaustive over ComponentKey.
func (c *Calculator) rawScore(ctx context.Context, key contracts.ComponentKey, personID int64, period contracts.Period, cfg ratingconfig.Config) (float64, map[string]interface{}, error) {
	switch key {
	case contracts.ComponentAcademic:
		return c.academicScore(ctx, personID, period)
	case contracts.ComponentLessonObservation:
		return c.observationScore(ctx, personID, period)
	case contracts.ComponentAssessment:
		return c.assessmentScore(ctx, personID, period)
	case contracts.ComponentCertificate:
		return c.certificateScore(ctx, personID, period, cfg)
	case contracts.ComponentOlympiad:
		return c.olympiadScore(ctx, personID, period, cfg)
	case contracts.ComponentAward:
		return c.awardScore(ctx, personID, period, cfg)
	default:
		return 0, nil, fmt.Errorf("unknown rating component %q", key)
	}
}

// academicScore is the enrollment-weighted average of the class-level
// average scores the person is responsible for in the period.
func (c *Calculator) academicScore(ctx context.Context, personID int64, period contracts.Period) (float64, map[string]interface{}, error) {
	results, err := c.classes.ListByPersonAndPeriod(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list class results: %w", err)
	}

	if len(results) == 0 {
		return 0, nil, nil
	}

	var weightedSum, plainSum float64
	var students int
	for _, r := range results {
		weightedSum += r.AvgScore * float64(r.StudentCount)
		plainSum += r.AvgScore
		students += r.StudentCount
	}

	// Classes with no recorded enrollment fall back to the plain mean.
	var raw float64
	if students > 0 {
		raw = weightedSum / float64(students)
	} else {
		raw = plainSum / float64(len(results))
	}

	details := map[string]interface{}{
		"classes":  len(results),
		"students": students,
	}
	return raw, details, nil
}

// observationScore is the average of the observation-protocol scores
// recorded in the period.
func (c *Calculator) observationScore(ctx context.Context, personID int64, period contracts.Period) (float64, map[string]interface{}, error) {
	observations, err := c.observations.ListByPersonAndPeriod(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list lesson observations: %w", err)
	}

	if len(observations) == 0 {
		return 0, nil, nil
	}

	var sum float64
	for _, o := range observations {
		sum += o.FinalScore
	}

	details := map[string]interface{}{
		"observations": len(observations),
	}
	return sum / float64(len(observations)), details, nil
}

// assessmentScore normalizes the most recent qualifying assessment of
// the highest-priority available type. Types are never averaged
// together: certification beats diagnostic beats everything else.
func (c *Calculator) assessmentScore(ctx context.Context, personID int64, period contracts.Period) (float64, map[string]interface{}, error) {
	assessments, err := c.assessments.ListByPersonAndPeriod(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list assessments: %w", err)
	}

	var selected *contracts.AssessmentScore
	for _, a := range assessments {
		if a.MaxScore <= 0 {
			c.logger.WithFields(map[string]interface{}{
				"person_id": personID,
				"period":    period,
				"type":      a.Type,
			}).Warn("Assessment record with non-positive max score skipped")
			continue
		}

		if selected == nil {
			selected = a
			continue
		}
		if a.Type.Priority() > selected.Type.Priority() ||
			(a.Type.Priority() == selected.Type.Priority() && a.TakenAt.After(selected.TakenAt)) {
			selected = a
		}
	}

	if selected == nil {
		return 0, nil, nil
	}

	details := map[string]interface{}{
		"assessment_type": string(selected.Type),
		"assessments":     len(assessments),
	}
	return selected.Score / selected.MaxScore * 100, details, nil
}

// certificateScore sums per-type point values over active certificates
// held through the period, saturating at 100.
func (c *Calculator) certificateScore(ctx context.Context, personID int64, period contracts.Period, cfg ratingconfig.Config) (float64, map[string]interface{}, error) {
	certificates, err := c.certificates.ListActiveThrough(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list certificates: %w", err)
	}

	if len(certificates) == 0 {
		return 0, nil, nil
	}

	var total float64
	for _, cert := range certificates {
		total += ratingconfig.ItemPoints(cfg.CertificatePoints, cert.Type)
	}

	details := map[string]interface{}{
		"certificates": len(certificates),
	}
	return saturate(total), details, nil
}

// olympiadScore sums per-level point values over olympiad achievements
// in the period, saturating at 100.
func (c *Calculator) olympiadScore(ctx context.Context, personID int64, period contracts.Period, cfg ratingconfig.Config) (float64, map[string]interface{}, error) {
	achievements, err := c.olympiads.ListByPersonAndPeriod(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list olympiad results: %w", err)
	}

	if len(achievements) == 0 {
		return 0, nil, nil
	}

	var total float64
	levels := make(map[string]int)
	for _, a := range achievements {
		total += ratingconfig.ItemPoints(cfg.OlympiadPoints, a.Level)
		levels[a.Level]++
	}

	details := map[string]interface{}{
		"achievements": len(achievements),
		"levels":       levels,
	}
	return saturate(total), details, nil
}

// awardScore sums per-type point values over awards received through
// the period, saturating at 100.
func (c *Calculator) awardScore(ctx context.Context, personID int64, period contracts.Period, cfg ratingconfig.Config) (float64, map[string]interface{}, error) {
	awards, err := c.awards.ListThrough(ctx, personID, period)
	if err != nil {
		return 0, nil, fmt.Errorf("list awards: %w", err)
	}

	if len(awards) == 0 {
		return 0, nil, nil
	}

	var total float64
	types := make([]string, 0, len(awards))
	for _, a := range awards {
		total += ratingconfig.ItemPoints(cfg.AwardPoints, a.Type)
		types = append(types, a.Type)
	}
	sort.Strings(types)

	details := map[string]interface{}{
		"awards": len(awards),
		"types":  types,
	}
	return saturate(total), details, nil
}

// clampRaw bounds a raw score to [0, 100]. Out-of-range upstream data
// is a data-quality warning, not a failure: reporting must always get a
// number.
func (c *Calculator) clampRaw(key contracts.ComponentKey, personID int64, period contracts.Period, raw float64) float64 {
	if raw >= 0 && raw <= 100 {
		return raw
	}

	clamped := raw
	if clamped < 0 {
		clamped = 0
	} else if clamped > 100 {
		clamped = 100
	}

	c.logger.WithFields(map[string]interface{}{
		"component": key,
		"person_id": personID,
		"period":    period,
		"raw_score": raw,
	}).Warn("Raw score outside [0, 100], clamped")

	return clamped
}

// saturate caps accumulated item points at 100 so repeated items
// saturate instead of growing without bound.
func saturate(total float64) float64 {
	if total > 100 {
		return 100
	}
	return total
}
