package ratingconfig

import (
	"fmt"
	"sort"

	"github.com/elmarb/edurate/internal/contracts"
)

// Config is the full rating configuration: component weights, editable
// weight ranges, year weights, growth bonus constants and item point
// tables. It is an immutable value passed explicitly into every
// computation; there is no ambient configuration state.
type Config struct {
	Weights Weights `yaml:"weights" json:"weights"`

	// Ranges bound what each weight may be set to. Empty means the
	// built-in defaults apply.
	Ranges map[contracts.ComponentKey]Range `yaml:"ranges,omitempty" json:"ranges,omitempty"`

	// YearWeights spreads component scores across academic years, e.g.
	// {2022-2023: 0.25, 2023-2024: 0.30, 2024-2025: 0.45}. Must sum to
	// 1.0. Empty means the target period counts fully.
	YearWeights map[contracts.Period]float64 `yaml:"year_weights,omitempty" json:"year_weights,omitempty"`

	Growth GrowthBonus `yaml:"growth_bonus" json:"growth_bonus"`

	// Per-item point tables for the saturating components. Item types
	// missing from the table count 1 point.
	CertificatePoints map[string]float64 `yaml:"certificate_points,omitempty" json:"certificate_points,omitempty"`
	OlympiadPoints    map[string]float64 `yaml:"olympiad_points,omitempty" json:"olympiad_points,omitempty"`
	AwardPoints       map[string]float64 `yaml:"award_points,omitempty" json:"award_points,omitempty"`
}

// Weights holds the six component weights as integer percentages.
// Invariant: the six must sum to exactly 100.
type Weights struct {
	Academic          int `yaml:"academic" json:"academic"`
	LessonObservation int `yaml:"lesson_observation" json:"lesson_observation"`
	Olympiad          int `yaml:"olympiad" json:"olympiad"`
	Assessment        int `yaml:"assessment" json:"assessment"`
	Certificate       int `yaml:"certificate" json:"certificate"`
	Award             int `yaml:"award" json:"award"`
}

// Sum returns the total of the six weights.
func (w Weights) Sum() int {
	return w.Academic + w.LessonObservation + w.Olympiad +
		w.Assessment + w.Certificate + w.Award
}

// Get returns the weight of one component.
func (w Weights) Get(key contracts.ComponentKey) int {
	switch key {
	case contracts.ComponentAcademic:
		return w.Academic
	case contracts.ComponentLessonObservation:
		return w.LessonObservation
	case contracts.ComponentOlympiad:
		return w.Olympiad
	case contracts.ComponentAssessment:
		return w.Assessment
	case contracts.ComponentCertificate:
		return w.Certificate
	case contracts.ComponentAward:
		return w.Award
	}
	return 0
}

// Map returns the weights keyed by component.
func (w Weights) Map() map[contracts.ComponentKey]int {
	m := make(map[contracts.ComponentKey]int, 6)
	for _, key := range contracts.AllComponents() {
		m[key] = w.Get(key)
	}
	return m
}

// Range is the editable [min, max] bound of one weight.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// GrowthBonus holds the growth bonus constants: the latest prior
// period's academic score is compared against the mean of the available
// prior periods and the difference is scaled and clamped.
type GrowthBonus struct {
	Rate float64 `yaml:"rate" json:"rate"`
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	// HistoryLimit caps how many prior periods enter the mean.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`
}

// Default returns the built-in configuration. Weights sum to 100.
func Default() Config {
	return Config{
		Weights: Weights{
			Academic:          25,
			LessonObservation: 20,
			Assessment:        20,
			Certificate:       15,
			Olympiad:          10,
			Award:             10,
		},
		Ranges: DefaultRanges(),
		Growth: GrowthBonus{
			Rate:         0.5,
			Min:          -5,
			Max:          5,
			HistoryLimit: 3,
		},
	}
}

// DefaultRanges returns the built-in editable bounds per component.
func DefaultRanges() map[contracts.ComponentKey]Range {
	return map[contracts.ComponentKey]Range{
		contracts.ComponentAcademic:          {Min: 0, Max: 50},
		contracts.ComponentLessonObservation: {Min: 0, Max: 40},
		contracts.ComponentOlympiad:          {Min: 0, Max: 30},
		contracts.ComponentAssessment:        {Min: 0, Max: 30},
		contracts.ComponentCertificate:       {Min: 0, Max: 20},
		contracts.ComponentAward:             {Min: 0, Max: 20},
	}
}

// RangeFor returns the bound for one component, falling back to the
// built-in defaults when the config carries none.
func (c Config) RangeFor(key contracts.ComponentKey) Range {
	if r, ok := c.Ranges[key]; ok {
		return r
	}
	return DefaultRanges()[key]
}

// Update returns a copy of the configuration with all six weights
// replaced and re-validated. The receiver is never modified; on any
// error the previously active configuration stays in force. Partial
// weight maps are rejected.
func (c Config) Update(newWeights map[contracts.ComponentKey]int) (Config, error) {
	if len(newWeights) != 6 {
		return Config{}, ValidationError{
			Field:   "weights",
			Message: fmt.Sprintf("update requires exactly the six component weights, got %d", len(newWeights)),
		}
	}

	updated := c
	for _, key := range contracts.AllComponents() {
		w, ok := newWeights[key]
		if !ok {
			return Config{}, ValidationError{
				Field:   "weights",
				Message: fmt.Sprintf("update requires all six component weights, missing %q", key),
			}
		}
		switch key {
		case contracts.ComponentAcademic:
			updated.Weights.Academic = w
		case contracts.ComponentLessonObservation:
			updated.Weights.LessonObservation = w
		case contracts.ComponentOlympiad:
			updated.Weights.Olympiad = w
		case contracts.ComponentAssessment:
			updated.Weights.Assessment = w
		case contracts.ComponentCertificate:
			updated.Weights.Certificate = w
		case contracts.ComponentAward:
			updated.Weights.Award = w
		}
	}

	if err := updated.Validate(); err != nil {
		return Config{}, err
	}

	return updated, nil
}

// YearWeight is one academic year's share of a component score.
type YearWeight struct {
	Period contracts.Period
	Weight float64
}

// EffectiveYearWeights returns the configured year weights as a slice
// sorted by period, or a single full-weight entry for the target period
// when no year weighting is configured. Academic year names sort
// chronologically as strings.
func (c Config) EffectiveYearWeights(period contracts.Period) []YearWeight {
	if len(c.YearWeights) == 0 {
		return []YearWeight{{Period: period, Weight: 1.0}}
	}

	weights := make([]YearWeight, 0, len(c.YearWeights))
	for p, w := range c.YearWeights {
		weights = append(weights, YearWeight{Period: p, Weight: w})
	}
	sort.Slice(weights, func(i, j int) bool {
		return weights[i].Period < weights[j].Period
	})
	return weights
}

// ItemPoints looks up the point value of one item type in the given
// table; unknown types count 1 point, matching the legacy behavior.
func ItemPoints(table map[string]float64, itemType string) float64 {
	if pts, ok := table[itemType]; ok {
		return pts
	}
	return 1
}
