package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elmarb/edurate/internal/api"
	"github.com/elmarb/edurate/internal/api/handlers"
	"github.com/elmarb/edurate/internal/api/live"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/database"
	"github.com/elmarb/edurate/pkg/logger"
	"github.com/elmarb/edurate/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the rating API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                              - Health check
  GET  /api/v1/ratings                      - List ratings of a scope
  GET  /api/v1/ratings/{id}                 - Get one rating
  POST /api/v1/ratings/{id}/compute         - Recompute one rating
  POST /api/v1/ratings/recalculate          - Recompute and rerank a scope
  GET  /api/v1/config/weights               - Active weights and bounds
  PUT  /api/v1/config/weights               - Replace the six weights
  GET  /ws/batches                          - Batch progress stream

Example:
  go run ./cmd/edurate api
  go run ./cmd/edurate api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	svc := buildService(cfg, log, db, rdb)

	hub := live.NewHub(log)
	ratingHandler := handlers.NewRatingHandler(svc, hub.Progress, log)
	configHandler := handlers.NewConfigHandler(svc, log)

	router := api.NewRouter(ratingHandler, configHandler, hub, log)
	server := api.New(cfg, log, router)

	// Run server in a goroutine so shutdown signals are handled
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
