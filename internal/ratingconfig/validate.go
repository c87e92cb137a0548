package ratingconfig

import (
	"fmt"
	"math"

	"github.com/elmarb/edurate/internal/contracts"
)

// WeightSumError reports six weights that do not sum to exactly 100.
type WeightSumError struct {
	Sum int
}

func (e WeightSumError) Error() string {
	return fmt.Sprintf("component weights must sum to 100, got %d", e.Sum)
}

// WeightRangeError reports a weight outside its editable range.
type WeightRangeError struct {
	Component contracts.ComponentKey
	Weight    int
	Min       int
	Max       int
}

func (e WeightRangeError) Error() string {
	return fmt.Sprintf("weight for %s must be in [%d, %d], got %d",
		e.Component, e.Min, e.Max, e.Weight)
}

// ValidationError reports any other invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every configuration invariant. It is called before
// any computation uses the config; an invalid configuration is always
// rejected, never silently corrected.
func (c Config) Validate() error {
	// Weight ranges first, so a range violation is reported even when
	// the sum also happens to be off.
	for _, key := range contracts.AllComponents() {
		w := c.Weights.Get(key)
		r := c.RangeFor(key)
		if w < r.Min || w > r.Max {
			return WeightRangeError{Component: key, Weight: w, Min: r.Min, Max: r.Max}
		}
	}

	if sum := c.Weights.Sum(); sum != 100 {
		return WeightSumError{Sum: sum}
	}

	if len(c.YearWeights) > 0 {
		var sum float64
		for period, w := range c.YearWeights {
			if w < 0 {
				return ValidationError{Field: fmt.Sprintf("year_weights.%s", period), Message: "must be >= 0"}
			}
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return ValidationError{Field: "year_weights", Message: fmt.Sprintf("must sum to 1.0, got %g", sum)}
		}
	}

	if c.Growth.Rate < 0 {
		return ValidationError{Field: "growth_bonus.rate", Message: "must be >= 0"}
	}
	if c.Growth.Min > c.Growth.Max {
		return ValidationError{Field: "growth_bonus", Message: "min must be <= max"}
	}
	if c.Growth.HistoryLimit < 2 {
		return ValidationError{Field: "growth_bonus.history_limit", Message: "must be >= 2"}
	}

	for name, table := range map[string]map[string]float64{
		"certificate_points": c.CertificatePoints,
		"olympiad_points":    c.OlympiadPoints,
		"award_points":       c.AwardPoints,
	} {
		for itemType, pts := range table {
			if pts < 0 {
				return ValidationError{Field: fmt.Sprintf("%s.%s", name, itemType), Message: "must be >= 0"}
			}
		}
	}

	return nil
}
