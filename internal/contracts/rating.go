package contracts

import "time"

// ComponentKey identifies one of the six rating components.
// The set is closed: every switch over ComponentKey must handle all six
// and treat anything else as a programming error.
type ComponentKey string

const (
	ComponentAcademic          ComponentKey = "academic"
	ComponentLessonObservation ComponentKey = "lesson_observation"
	ComponentOlympiad          ComponentKey = "olympiad"
	ComponentAssessment        ComponentKey = "assessment"
	ComponentCertificate       ComponentKey = "certificate"
	ComponentAward             ComponentKey = "award"
)

// AllComponents returns the six components in canonical order.
// Aggregation iterates this slice so that totals are computed in a
// deterministic order regardless of map iteration.
func AllComponents() []ComponentKey {
	return []ComponentKey{
		ComponentAcademic,
		ComponentLessonObservation,
		ComponentOlympiad,
		ComponentAssessment,
		ComponentCertificate,
		ComponentAward,
	}
}

// Valid reports whether k is one of the six known components.
func (k ComponentKey) Valid() bool {
	switch k {
	case ComponentAcademic, ComponentLessonObservation, ComponentOlympiad,
		ComponentAssessment, ComponentCertificate, ComponentAward:
		return true
	}
	return false
}

// Period is an academic year in "YYYY-YYYY" form, e.g. "2024-2025".
type Period string

// RatingStatus is the publication state of a stored rating.
type RatingStatus string

const (
	StatusDraft     RatingStatus = "draft"
	StatusPublished RatingStatus = "published"
)

// ComponentScore is the scored value of one component for one person
// and period.
type ComponentScore struct {
	Key      ComponentKey `json:"key"`
	RawScore float64      `json:"raw_score"` // component-native 0-100 scale
	Weighted float64      `json:"weighted_score"`
	// YearWeight is the fraction the target period contributed when the
	// component was combined across academic years (1.0 when no year
	// weighting is configured).
	YearWeight float64                `json:"year_weight,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// RatingResult is the aggregated rating of one person for one period.
// Recomputation overwrites the unique (person, period) record; ranks are
// assigned by a later ranking pass and stay nil until then.
type RatingResult struct {
	PersonID      int64                           `json:"person_id"`
	InstitutionID int64                           `json:"institution_id"`
	Period        Period                          `json:"period"`
	Components    map[ComponentKey]ComponentScore `json:"components"`
	GrowthBonus   float64                         `json:"growth_bonus"`
	TotalScore    float64                         `json:"total_score"`

	RankSchool  *int `json:"rank_school,omitempty"`
	RankSector  *int `json:"rank_sector,omitempty"`
	RankRegion  *int `json:"rank_region,omitempty"`
	RankSubject *int `json:"rank_subject,omitempty"`

	// YearlyBreakdown holds the per-year raw component scores that went
	// into the year-weighted combination, keyed by academic year.
	YearlyBreakdown map[Period]map[ComponentKey]float64 `json:"yearly_breakdown,omitempty"`

	Status RatingStatus `json:"status"`
	// ComputedAt is an audit timestamp only; it never influences the
	// scored values.
	ComputedAt time.Time `json:"computed_at"`
}

// SumWeighted returns the sum of the six weighted component scores,
// iterated in canonical component order.
func (r *RatingResult) SumWeighted() float64 {
	var sum float64
	for _, key := range AllComponents() {
		sum += r.Components[key].Weighted
	}
	return sum
}

// Component returns the score for one component, zero-valued when the
// component has not been computed.
func (r *RatingResult) Component(key ComponentKey) ComponentScore {
	return r.Components[key]
}
