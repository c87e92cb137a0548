package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/elmarb/edurate/internal/api/handlers"
	"github.com/elmarb/edurate/internal/api/live"
	"github.com/elmarb/edurate/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	ratingHandler *handlers.RatingHandler,
	configHandler *handlers.ConfigHandler,
	hub *live.Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Rating endpoints
	api.HandleFunc("/ratings", ratingHandler.List).Methods("GET")
	api.HandleFunc("/ratings/recalculate", ratingHandler.Recalculate).Methods("POST")
	api.HandleFunc("/ratings/{person_id:[0-9]+}", ratingHandler.Get).Methods("GET")
	api.HandleFunc("/ratings/{person_id:[0-9]+}/compute", ratingHandler.Compute).Methods("POST")

	// Configuration endpoints
	api.HandleFunc("/config/weights", configHandler.GetWeights).Methods("GET")
	api.HandleFunc("/config/weights", configHandler.UpdateWeights).Methods("PUT")

	// Batch progress stream
	r.HandleFunc("/ws/batches", hub.HandleWS)

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "edurate-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
