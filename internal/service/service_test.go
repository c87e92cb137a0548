package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/notify"
	"github.com/elmarb/edurate/internal/ranking"
	"github.com/elmarb/edurate/internal/rating"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/internal/scoring"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/logger"
	"github.com/elmarb/edurate/pkg/redis"
)

const testPeriod contracts.Period = "2024-2025"

type fakeConfigs struct {
	active ratingconfig.Config
	saved  *ratingconfig.Config
}

func (f *fakeConfigs) Active(_ context.Context) (ratingconfig.Config, error) {
	return f.active, nil
}

func (f *fakeConfigs) Save(_ context.Context, cfg ratingconfig.Config) error {
	f.saved = &cfg
	return nil
}

type fakeClasses struct{ byPerson map[int64]float64 }

func (f *fakeClasses) ListByPersonAndPeriod(_ context.Context, personID int64, period contracts.Period) ([]*contracts.ClassResult, error) {
	avg, ok := f.byPerson[personID]
	if !ok {
		return nil, nil
	}
	return []*contracts.ClassResult{
		{PersonID: personID, Period: period, AvgScore: avg, StudentCount: 20},
	}, nil
}

type emptyObservations struct{}

func (emptyObservations) ListByPersonAndPeriod(_ context.Context, _ int64, _ contracts.Period) ([]*contracts.LessonObservation, error) {
	return nil, nil
}

type emptyAssessments struct{}

func (emptyAssessments) ListByPersonAndPeriod(_ context.Context, _ int64, _ contracts.Period) ([]*contracts.AssessmentScore, error) {
	return nil, nil
}

type emptyCertificates struct{}

func (emptyCertificates) ListActiveThrough(_ context.Context, _ int64, _ contracts.Period) ([]*contracts.Certificate, error) {
	return nil, nil
}

type emptyOlympiads struct{}

func (emptyOlympiads) ListByPersonAndPeriod(_ context.Context, _ int64, _ contracts.Period) ([]*contracts.OlympiadResult, error) {
	return nil, nil
}

type emptyAwards struct{}

func (emptyAwards) ListThrough(_ context.Context, _ int64, _ contracts.Period) ([]*contracts.Award, error) {
	return nil, nil
}

type emptyHistory struct{}

func (emptyHistory) AcademicWeightedScores(_ context.Context, _ int64, _ contracts.Period, _ int) ([]float64, error) {
	return nil, nil
}

type fakePeople struct {
	school     map[int64]int64
	order      []int64
	failSchool map[int64]bool
}

func (f *fakePeople) School(_ context.Context, personID int64) (int64, error) {
	if f.failSchool[personID] {
		return 0, errors.New("person record corrupted")
	}
	return f.school[personID], nil
}

func (f *fakePeople) PrimarySubject(_ context.Context, _ int64) (*int64, error) {
	return nil, nil
}

func (f *fakePeople) TeacherIDs(_ context.Context, _ []int64) ([]int64, error) {
	return f.order, nil
}

type fakeInstitutions struct {
	parents map[int64]int64
	levels  map[int64]int
}

func (f *fakeInstitutions) DescendantIDs(_ context.Context, institutionID int64) ([]int64, error) {
	ids := []int64{institutionID}
	for id, parent := range f.parents {
		if parent == institutionID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeInstitutions) AncestorAtLevel(_ context.Context, institutionID int64, level int) (int64, error) {
	for id := institutionID; id != 0; id = f.parents[id] {
		if f.levels[id] == level {
			return id, nil
		}
	}
	return 0, nil
}

// *redis.Cache is what production wiring hands the service.
var _ ResultCache = (*redis.Cache)(nil)

type fakeCache struct {
	sets     []string
	failKeys map[string]bool
}

func (f *fakeCache) Get(_ context.Context, _ string, _ interface{}) (bool, error) {
	return false, nil
}

func (f *fakeCache) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	f.sets = append(f.sets, key)
	if f.failKeys[key] {
		return errors.New("cache write refused")
	}
	return nil
}

type fakeRatings struct {
	stored      map[int64]*contracts.RatingResult
	ranksCalled int
}

func newFakeRatings() *fakeRatings {
	return &fakeRatings{stored: make(map[int64]*contracts.RatingResult)}
}

func (f *fakeRatings) Upsert(_ context.Context, result *contracts.RatingResult) error {
	f.stored[result.PersonID] = result
	return nil
}

func (f *fakeRatings) Get(_ context.Context, personID int64, _ contracts.Period) (*contracts.RatingResult, error) {
	return f.stored[personID], nil
}

func (f *fakeRatings) ListByPeriod(_ context.Context, _ contracts.Period, _ []int64) ([]*contracts.RatingResult, error) {
	results := make([]*contracts.RatingResult, 0, len(f.stored))
	for _, r := range f.stored {
		results = append(results, r)
	}
	return results, nil
}

func (f *fakeRatings) UpdateRanks(_ context.Context, _ []*contracts.RatingResult) error {
	f.ranksCalled++
	return nil
}

type harness struct {
	service *Service
	configs *fakeConfigs
	ratings *fakeRatings
	people  *fakePeople
	cache   *fakeCache
}

// newHarness wires a service over in-memory fakes: sector 30 holds
// schools 400 and 401, persons 1 and 2 teach at 400 and person 3 at
// 401, with academic averages 80, 90 and 70.
func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.NewNop()

	cfg := &config.Config{}
	cfg.Rating.BatchChunkSize = 2
	cfg.Rating.CacheTTL = 5 * time.Minute
	cfg.Notify.Timeout = time.Second

	configs := &fakeConfigs{active: ratingconfig.Default()}
	ratings := newFakeRatings()
	people := &fakePeople{
		school: map[int64]int64{1: 400, 2: 400, 3: 401},
		order:  []int64{1, 2, 3},
	}
	institutions := &fakeInstitutions{
		parents: map[int64]int64{400: 30, 401: 30},
		levels:  map[int64]int{30: contracts.LevelSector, 400: contracts.LevelSchool, 401: contracts.LevelSchool},
	}

	calculator := scoring.NewCalculator(
		&fakeClasses{byPerson: map[int64]float64{1: 80, 2: 90, 3: 70}},
		emptyObservations{},
		emptyAssessments{},
		emptyCertificates{},
		emptyOlympiads{},
		emptyAwards{},
		log,
	)
	growth := rating.NewGrowthBonusCalculator(emptyHistory{}, log)
	aggregator := rating.NewAggregator(calculator, growth, people, ratings, log)
	ranker := ranking.NewEngine(institutions, people, log)

	cache := &fakeCache{}
	notifier := notify.NewNotifier(cfg, log)

	return &harness{
		service: New(cfg, configs, aggregator, ranker, institutions, people, ratings, cache, notifier, log),
		configs: configs,
		ratings: ratings,
		people:  people,
		cache:   cache,
	}
}

func TestComputeRatingsForScope(t *testing.T) {
	h := newHarness(t)

	var calls []int
	batch, err := h.service.ComputeRatingsForScope(context.Background(), 30, testPeriod, BatchOptions{
		Progress: func(processed, total int) {
			require.Equal(t, 3, total)
			calls = append(calls, processed)
		},
	})
	require.NoError(t, err)

	assert.Len(t, batch.Results, 3)
	assert.Empty(t, batch.Skipped)
	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 1, h.ratings.ranksCalled)

	// Person 2 leads the sector with the highest academic average.
	byPerson := make(map[int64]*contracts.RatingResult)
	for _, r := range batch.Results {
		byPerson[r.PersonID] = r
	}
	require.NotNil(t, byPerson[2].RankSector)
	assert.Equal(t, 1, *byPerson[2].RankSector)
	assert.Equal(t, 2, *byPerson[1].RankSector)
	assert.Equal(t, 3, *byPerson[3].RankSector)

	// Persons 1 and 2 share school 400; person 3 ranks alone.
	assert.Equal(t, 1, *byPerson[2].RankSchool)
	assert.Equal(t, 2, *byPerson[1].RankSchool)
	assert.Equal(t, 1, *byPerson[3].RankSchool)
}

func TestComputeRatingsForScopeSkipsFailingPerson(t *testing.T) {
	h := newHarness(t)
	h.people.failSchool = map[int64]bool{2: true}

	batch, err := h.service.ComputeRatingsForScope(context.Background(), 30, testPeriod, BatchOptions{})
	require.NoError(t, err)

	assert.Len(t, batch.Results, 2)
	assert.Equal(t, []int64{2}, batch.Skipped)

	// The survivors are still ranked against each other.
	for _, r := range batch.Results {
		require.NotNil(t, r.RankSector)
	}
	assert.Equal(t, 1, h.ratings.ranksCalled)
}

func TestComputeRatingsForScopeCacheFailureDoesNotStopWarming(t *testing.T) {
	h := newHarness(t)
	h.cache.failKeys = map[string]bool{cacheKey(2, testPeriod): true}

	batch, err := h.service.ComputeRatingsForScope(context.Background(), 30, testPeriod, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)

	// The failed write for person 2 must not stop persons 1 and 3 from
	// being cached.
	assert.Equal(t, []string{
		cacheKey(1, testPeriod),
		cacheKey(2, testPeriod),
		cacheKey(3, testPeriod),
	}, h.cache.sets)
}

func TestComputeRatingsForScopeCancellation(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	batch, err := h.service.ComputeRatingsForScope(ctx, 30, testPeriod, BatchOptions{
		Progress: func(processed, total int) {
			if processed == 1 {
				cancel()
			}
		},
	})
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, context.Canceled)

	// Ranks are never written for a canceled batch.
	assert.Equal(t, 0, h.ratings.ranksCalled)
}

func TestComputeRatingsForScopeInvalidConfiguration(t *testing.T) {
	h := newHarness(t)
	h.configs.active.Weights.Award = 35 // sum 125

	batch, err := h.service.ComputeRatingsForScope(context.Background(), 30, testPeriod, BatchOptions{})
	require.Error(t, err)
	assert.Nil(t, batch)

	var invalidErr rating.InvalidConfigurationError
	assert.ErrorAs(t, err, &invalidErr)
	assert.Empty(t, h.ratings.stored)
}

func TestComputeRating(t *testing.T) {
	h := newHarness(t)

	result, err := h.service.ComputeRating(context.Background(), 1, testPeriod, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(1), result.PersonID)
	// Academic average 80 at the default 25% weight, everything else 0.
	assert.InDelta(t, 20, result.TotalScore, 1e-9)

	stored, err := h.service.GetRating(context.Background(), 1, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, result, stored)
}

func TestUpdateConfiguration(t *testing.T) {
	h := newHarness(t)

	updated, err := h.service.UpdateConfiguration(context.Background(), map[contracts.ComponentKey]int{
		contracts.ComponentAcademic:          30,
		contracts.ComponentLessonObservation: 20,
		contracts.ComponentOlympiad:          15,
		contracts.ComponentAssessment:        15,
		contracts.ComponentCertificate:       10,
		contracts.ComponentAward:             10,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, updated.Weights.Academic)
	assert.Equal(t, 100, updated.Weights.Sum())
	require.NotNil(t, h.configs.saved)
	assert.Equal(t, updated, *h.configs.saved)
}

func TestUpdateConfigurationRejectsBadSum(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.UpdateConfiguration(context.Background(), map[contracts.ComponentKey]int{
		contracts.ComponentAcademic:          40,
		contracts.ComponentLessonObservation: 20,
		contracts.ComponentOlympiad:          15,
		contracts.ComponentAssessment:        15,
		contracts.ComponentCertificate:       10,
		contracts.ComponentAward:             10,
	})
	require.Error(t, err)

	var sumErr ratingconfig.WeightSumError
	assert.ErrorAs(t, err, &sumErr)
	assert.Nil(t, h.configs.saved)
}
