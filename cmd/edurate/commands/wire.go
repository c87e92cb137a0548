package commands

import (
	"github.com/elmarb/edurate/internal/notify"
	"github.com/elmarb/edurate/internal/ranking"
	"github.com/elmarb/edurate/internal/rating"
	"github.com/elmarb/edurate/internal/scoring"
	"github.com/elmarb/edurate/internal/service"
	"github.com/elmarb/edurate/internal/store"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/database"
	"github.com/elmarb/edurate/pkg/logger"
	"github.com/elmarb/edurate/pkg/redis"
)

// buildService wires the full rating stack over an open database
// connection and redis client. Every command that computes ratings
// goes through this one assembly.
func buildService(cfg *config.Config, log *logger.Logger, db *database.DB, rdb *redis.Client) *service.Service {
	institutions := store.NewInstitutionStore(db.Pool)
	people := store.NewPersonStore(db.Pool)
	ratings := store.NewRatingStore(db.Pool)
	history := store.NewHistoryStore(db.Pool)
	configs := store.NewConfigStore(db.Pool)

	calculator := scoring.NewCalculator(
		store.NewClassResultStore(db.Pool),
		store.NewLessonObservationStore(db.Pool),
		store.NewAssessmentStore(db.Pool),
		store.NewCertificateStore(db.Pool),
		store.NewOlympiadStore(db.Pool),
		store.NewAwardStore(db.Pool),
		log,
	)
	growth := rating.NewGrowthBonusCalculator(history, log)
	aggregator := rating.NewAggregator(calculator, growth, people, ratings, log)
	ranker := ranking.NewEngine(institutions, people, log)

	cache := redis.NewCache(rdb, "edurate")
	notifier := notify.NewNotifier(cfg, log)

	return service.New(cfg, configs, aggregator, ranker, institutions, people, ratings, cache, notifier, log)
}
