package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/logger"
)

// In-memory fakes for the component input repositories.

type fakeClasses struct{ classes []*contracts.ClassResult }

func (f *fakeClasses) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.ClassResult, error) {
	var out []*contracts.ClassResult
	for _, r := range f.classes {
		if r.PersonID == personID && r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeObservations struct {
	records []*contracts.LessonObservation
}

func (f *fakeObservations) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.LessonObservation, error) {
	var out []*contracts.LessonObservation
	for _, r := range f.records {
		if r.PersonID == personID && r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAssessments struct{ records []*contracts.AssessmentScore }

func (f *fakeAssessments) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.AssessmentScore, error) {
	var out []*contracts.AssessmentScore
	for _, r := range f.records {
		if r.PersonID == personID && r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCertificates struct{ records []*contracts.Certificate }

func (f *fakeCertificates) ListActiveThrough(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.Certificate, error) {
	var out []*contracts.Certificate
	for _, r := range f.records {
		if r.PersonID == personID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeOlympiads struct{ records []*contracts.OlympiadResult }

func (f *fakeOlympiads) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.OlympiadResult, error) {
	var out []*contracts.OlympiadResult
	for _, r := range f.records {
		if r.PersonID == personID && r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAwards struct{ records []*contracts.Award }

func (f *fakeAwards) ListThrough(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.Award, error) {
	var out []*contracts.Award
	for _, r := range f.records {
		if r.PersonID == personID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestCalculator(classes *fakeClasses, obs *fakeObservations, asm *fakeAssessments, certs *fakeCertificates, oly *fakeOlympiads, awd *fakeAwards) *Calculator {
	if classes == nil {
		classes = &fakeClasses{}
	}
	if obs == nil {
		obs = &fakeObservations{}
	}
	if asm == nil {
		asm = &fakeAssessments{}
	}
	if certs == nil {
		certs = &fakeCertificates{}
	}
	if oly == nil {
		oly = &fakeOlympiads{}
	}
	if awd == nil {
		awd = &fakeAwards{}
	}
	return NewCalculator(classes, obs, asm, certs, oly, awd, logger.NewNop())
}

const testPeriod = contracts.Period("2024-2025")

func TestCalculator_AcademicScore(t *testing.T) {
	tests := []struct {
		name    string
		classes []*contracts.ClassResult
		wantRaw float64
	}{
		{
			name:    "no classes is zero, not an error",
			classes: nil,
			wantRaw: 0,
		},
		{
			name: "enrollment weighted average",
			classes: []*contracts.ClassResult{
				{PersonID: 1, Period: testPeriod, AvgScore: 80, StudentCount: 30},
				{PersonID: 1, Period: testPeriod, AvgScore: 60, StudentCount: 10},
			},
			// (80*30 + 60*10) / 40 = 75
			wantRaw: 75,
		},
		{
			name: "zero enrollment falls back to plain mean",
			classes: []*contracts.ClassResult{
				{PersonID: 1, Period: testPeriod, AvgScore: 80, StudentCount: 0},
				{PersonID: 1, Period: testPeriod, AvgScore: 60, StudentCount: 0},
			},
			wantRaw: 70,
		},
		{
			name: "other persons and periods are ignored",
			classes: []*contracts.ClassResult{
				{PersonID: 1, Period: testPeriod, AvgScore: 90, StudentCount: 20},
				{PersonID: 2, Period: testPeriod, AvgScore: 10, StudentCount: 20},
				{PersonID: 1, Period: "2023-2024", AvgScore: 10, StudentCount: 20},
			},
			wantRaw: 90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := newTestCalculator(&fakeClasses{classes: tt.classes}, nil, nil, nil, nil, nil)

			cfg := ratingconfig.Default()
			score, _, err := calc.Compute(context.Background(), contracts.ComponentAcademic, 1, testPeriod, cfg)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantRaw, score.RawScore, 1e-9)
			assert.InDelta(t, tt.wantRaw/100*float64(cfg.Weights.Academic), score.Weighted, 1e-9)
		})
	}
}

func TestCalculator_ObservationScore(t *testing.T) {
	obs := &fakeObservations{records: []*contracts.LessonObservation{
		{PersonID: 1, Period: testPeriod, FinalScore: 90},
		{PersonID: 1, Period: testPeriod, FinalScore: 70},
	}}
	calc := newTestCalculator(nil, obs, nil, nil, nil, nil)

	score, _, err := calc.Compute(context.Background(), contracts.ComponentLessonObservation, 1, testPeriod, ratingconfig.Default())
	require.NoError(t, err)
	assert.InDelta(t, 80.0, score.RawScore, 1e-9)
}

func TestCalculator_AssessmentScore_PriorityAndRecency(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	asm := &fakeAssessments{records: []*contracts.AssessmentScore{
		// Newer diagnostic must lose to older certification.
		{PersonID: 1, Period: testPeriod, Type: contracts.AssessmentDiagnostic, Score: 95, MaxScore: 100, TakenAt: base.AddDate(0, 2, 0)},
		{PersonID: 1, Period: testPeriod, Type: contracts.AssessmentCertification, Score: 40, MaxScore: 50, TakenAt: base},
		// An older certification loses to the newer one of the same type.
		{PersonID: 1, Period: testPeriod, Type: contracts.AssessmentCertification, Score: 10, MaxScore: 50, TakenAt: base.AddDate(0, -6, 0)},
	}}
	calc := newTestCalculator(nil, nil, asm, nil, nil, nil)

	score, _, err := calc.Compute(context.Background(), contracts.ComponentAssessment, 1, testPeriod, ratingconfig.Default())
	require.NoError(t, err)

	// 40/50 of the most recent certification, normalized to 0-100.
	assert.InDelta(t, 80.0, score.RawScore, 1e-9)
	assert.Equal(t, "certification", score.Details["assessment_type"])
}

func TestCalculator_AssessmentScore_SkipsInvalidMaxScore(t *testing.T) {
	asm := &fakeAssessments{records: []*contracts.AssessmentScore{
		{PersonID: 1, Period: testPeriod, Type: contracts.AssessmentCertification, Score: 50, MaxScore: 0},
		{PersonID: 1, Period: testPeriod, Type: contracts.AssessmentDiagnostic, Score: 30, MaxScore: 60},
	}}
	calc := newTestCalculator(nil, nil, asm, nil, nil, nil)

	score, _, err := calc.Compute(context.Background(), contracts.ComponentAssessment, 1, testPeriod, ratingconfig.Default())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, score.RawScore, 1e-9)
}

func TestCalculator_ItemComponents_Saturate(t *testing.T) {
	cfg := ratingconfig.Default()
	cfg.CertificatePoints = map[string]float64{"international": 40}
	cfg.OlympiadPoints = map[string]float64{"republic": 60}
	cfg.AwardPoints = map[string]float64{"honored_teacher": 30}

	certs := &fakeCertificates{records: []*contracts.Certificate{
		{PersonID: 1, Type: "international", Active: true},
		{PersonID: 1, Type: "international", Active: true},
		{PersonID: 1, Type: "international", Active: true}, // 120 points, capped at 100
		{PersonID: 1, Type: "expired", Active: false},      // inactive, ignored
	}}
	oly := &fakeOlympiads{records: []*contracts.OlympiadResult{
		{PersonID: 1, Period: testPeriod, Level: "republic"},
		{PersonID: 1, Period: testPeriod, Level: "unknown_level"}, // defaults to 1 point
	}}
	awd := &fakeAwards{records: []*contracts.Award{
		{PersonID: 1, Type: "honored_teacher"},
		{PersonID: 1, Type: "unlisted"},
	}}

	calc := newTestCalculator(nil, nil, nil, certs, oly, awd)
	ctx := context.Background()

	certScore, _, err := calc.Compute(ctx, contracts.ComponentCertificate, 1, testPeriod, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, certScore.RawScore, 1e-9)
	assert.InDelta(t, float64(cfg.Weights.Certificate), certScore.Weighted, 1e-9)

	olyScore, _, err := calc.Compute(ctx, contracts.ComponentOlympiad, 1, testPeriod, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 61.0, olyScore.RawScore, 1e-9)

	awardScore, _, err := calc.Compute(ctx, contracts.ComponentAward, 1, testPeriod, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 31.0, awardScore.RawScore, 1e-9)
}

func TestCalculator_ClampsOutOfRangeRawScore(t *testing.T) {
	obs := &fakeObservations{records: []*contracts.LessonObservation{
		{PersonID: 1, Period: testPeriod, FinalScore: 140}, // bad upstream data
	}}
	calc := newTestCalculator(nil, obs, nil, nil, nil, nil)

	cfg := ratingconfig.Default()
	score, _, err := calc.Compute(context.Background(), contracts.ComponentLessonObservation, 1, testPeriod, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, score.RawScore, 1e-9)
	assert.LessOrEqual(t, score.Weighted, float64(cfg.Weights.LessonObservation))
}

func TestCalculator_YearWeightedCombination(t *testing.T) {
	cfg := ratingconfig.Default()
	cfg.YearWeights = map[contracts.Period]float64{
		"2022-2023": 0.25,
		"2023-2024": 0.30,
		"2024-2025": 0.45,
	}

	classes := &fakeClasses{classes: []*contracts.ClassResult{
		{PersonID: 1, Period: "2022-2023", AvgScore: 60, StudentCount: 20},
		{PersonID: 1, Period: "2023-2024", AvgScore: 70, StudentCount: 20},
		{PersonID: 1, Period: "2024-2025", AvgScore: 80, StudentCount: 20},
	}}
	calc := newTestCalculator(classes, nil, nil, nil, nil, nil)

	score, years, err := calc.Compute(context.Background(), contracts.ComponentAcademic, 1, testPeriod, cfg)
	require.NoError(t, err)

	// 60*0.25 + 70*0.30 + 80*0.45 = 72
	assert.InDelta(t, 72.0, score.RawScore, 1e-9)
	assert.InDelta(t, 0.45, score.YearWeight, 1e-9)

	require.Len(t, years, 3)
	assert.Equal(t, contracts.Period("2022-2023"), years[0].Period)
	assert.InDelta(t, 60.0, years[0].Raw, 1e-9)
	assert.Equal(t, contracts.Period("2024-2025"), years[2].Period)
	assert.InDelta(t, 80.0, years[2].Raw, 1e-9)
}

func TestCalculator_RejectsUnknownComponent(t *testing.T) {
	calc := newTestCalculator(nil, nil, nil, nil, nil, nil)

	_, _, err := calc.Compute(context.Background(), contracts.ComponentKey("bogus"), 1, testPeriod, ratingconfig.Default())
	assert.Error(t, err)
}
