package contracts

import "context"

// Institution hierarchy levels, as stored in the institutions table.
// Schools hang under sectors, sectors under regions.
const (
	LevelRegion = 2
	LevelSector = 3
	LevelSchool = 4
)

// InstitutionScopeResolver exposes read-only traversal of the
// institution tree. It is consumed for scoping queries and for mapping a
// school to its sector and region; the hierarchy CRUD itself lives
// elsewhere.
type InstitutionScopeResolver interface {
	// DescendantIDs returns the transitive set of descendant institution
	// ids, including institutionID itself.
	DescendantIDs(ctx context.Context, institutionID int64) ([]int64, error)

	// AncestorAtLevel walks up from institutionID to the ancestor at the
	// given level. Returns 0 when no such ancestor exists.
	AncestorAtLevel(ctx context.Context, institutionID int64, level int) (int64, error)
}

// PersonDirectory exposes the person attributes that rating needs:
// school membership and the optional primary subject.
type PersonDirectory interface {
	School(ctx context.Context, personID int64) (int64, error)

	// PrimarySubject returns nil when the person has no primary subject;
	// such persons are excluded from subject-scope ranking.
	PrimarySubject(ctx context.Context, personID int64) (*int64, error)

	// TeacherIDs lists the rateable persons belonging to any of the
	// given institutions, ordered by person id.
	TeacherIDs(ctx context.Context, institutionIDs []int64) ([]int64, error)
}

// HistoryStore provides a person's academic component history for the
// growth bonus. Scores are weighted academic scores of periods strictly
// before the given one, most recent first.
type HistoryStore interface {
	AcademicWeightedScores(ctx context.Context, personID int64, before Period, limit int) ([]float64, error)
}

// RatingRepository persists aggregated rating results. Upsert is a
// single-row atomic write keyed by (person, period): concurrent
// recomputations resolve last-writer-wins.
type RatingRepository interface {
	Upsert(ctx context.Context, result *RatingResult) error
	Get(ctx context.Context, personID int64, period Period) (*RatingResult, error)
	ListByPeriod(ctx context.Context, period Period, institutionIDs []int64) ([]*RatingResult, error)

	// UpdateRanks writes only the four rank columns of the given results.
	UpdateRanks(ctx context.Context, results []*RatingResult) error
}

// Component input repositories. Each returns the raw records the
// corresponding calculator needs; absence of records is an empty slice,
// never an error.

type ClassResultRepository interface {
	ListByPersonAndPeriod(ctx context.Context, personID int64, period Period) ([]*ClassResult, error)
}

type LessonObservationRepository interface {
	ListByPersonAndPeriod(ctx context.Context, personID int64, period Period) ([]*LessonObservation, error)
}

type AssessmentRepository interface {
	ListByPersonAndPeriod(ctx context.Context, personID int64, period Period) ([]*AssessmentScore, error)
}

type CertificateRepository interface {
	// ListActiveThrough returns active certificates issued up to the end
	// of the given academic year.
	ListActiveThrough(ctx context.Context, personID int64, period Period) ([]*Certificate, error)
}

type OlympiadRepository interface {
	ListByPersonAndPeriod(ctx context.Context, personID int64, period Period) ([]*OlympiadResult, error)
}

type AwardRepository interface {
	// ListThrough returns awards received up to the end of the given
	// academic year.
	ListThrough(ctx context.Context, personID int64, period Period) ([]*Award, error)
}
