package contracts

import "time"

// Raw performance inputs consumed by the component calculators. These
// records are written by the import/CRUD surfaces, which are outside
// this engine; the engine only reads them.

// AssessmentType classifies a qualifying assessment record. When a
// person has several types in one period, the highest-priority type wins
// (certification > diagnostic > other); types are never averaged together.
type AssessmentType string

const (
	AssessmentCertification AssessmentType = "certification"
	AssessmentDiagnostic    AssessmentType = "diagnostic"
	AssessmentOther         AssessmentType = "other"
)

// Priority returns the selection priority of the type, higher first.
func (t AssessmentType) Priority() int {
	switch t {
	case AssessmentCertification:
		return 2
	case AssessmentDiagnostic:
		return 1
	default:
		return 0
	}
}

// ClassResult is the academic outcome of one class a person is
// responsible for in a period.
type ClassResult struct {
	PersonID     int64
	Period       Period
	ClassName    string
	AvgScore     float64 // class average on a 0-100 scale
	StudentCount int
}

// LessonObservation is one recorded observation-protocol score.
type LessonObservation struct {
	PersonID   int64
	Period     Period
	FinalScore float64 // 0-100
	ObservedAt time.Time
}

// AssessmentScore is one qualifying assessment (certification or
// diagnostic exam) result.
type AssessmentScore struct {
	PersonID int64
	Period   Period
	Type     AssessmentType
	Score    float64
	MaxScore float64
	TakenAt  time.Time
}

// Certificate is an earned certificate; its point value is looked up by
// type in the rating configuration.
type Certificate struct {
	PersonID int64
	Type     string
	IssuedAt time.Time
	Active   bool
}

// OlympiadResult is one olympiad achievement; its point value is looked
// up by level in the rating configuration.
type OlympiadResult struct {
	PersonID  int64
	Period    Period
	Level     string // e.g. "school", "region", "republic", "international"
	Placement int
}

// Award is a received award; its point value is looked up by type in the
// rating configuration.
type Award struct {
	PersonID  int64
	Type      string
	AwardedAt time.Time
}
