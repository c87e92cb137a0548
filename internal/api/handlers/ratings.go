package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/rating"
	"github.com/elmarb/edurate/internal/service"
	"github.com/elmarb/edurate/pkg/logger"
)

// RatingService is the slice of the rating service the HTTP handlers
// consume.
type RatingService interface {
	ComputeRating(ctx context.Context, personID int64, period contracts.Period, force bool) (*contracts.RatingResult, error)
	GetRating(ctx context.Context, personID int64, period contracts.Period) (*contracts.RatingResult, error)
	ListRatings(ctx context.Context, institutionID int64, period contracts.Period) ([]*contracts.RatingResult, error)
	ComputeRatingsForScope(ctx context.Context, institutionID int64, period contracts.Period, opts service.BatchOptions) (*service.BatchResult, error)
}

// RatingHandler handles rating computation and retrieval endpoints.
type RatingHandler struct {
	service  RatingService
	progress func(processed, total int)
	logger   *logger.Logger
}

// NewRatingHandler creates a new rating handler. progress may be nil;
// when set it receives batch progress, typically fanned out to
// websocket subscribers.
func NewRatingHandler(svc RatingService, progress func(processed, total int), log *logger.Logger) *RatingHandler {
	return &RatingHandler{
		service:  svc,
		progress: progress,
		logger:   log,
	}
}

// Get returns the stored rating of one person.
// GET /api/v1/ratings/{person_id}?period=2024-2025
func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.ParseInt(mux.Vars(r)["person_id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid person id")
		return
	}
	period := contracts.Period(r.URL.Query().Get("period"))
	if period == "" {
		respondError(w, http.StatusBadRequest, "Missing period")
		return
	}

	result, err := h.service.GetRating(r.Context(), personID, period)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get rating")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve rating")
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "Rating not found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Compute recomputes and returns one person's rating.
// POST /api/v1/ratings/{person_id}/compute?period=2024-2025&force=true
func (h *RatingHandler) Compute(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.ParseInt(mux.Vars(r)["person_id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid person id")
		return
	}
	period := contracts.Period(r.URL.Query().Get("period"))
	if period == "" {
		respondError(w, http.StatusBadRequest, "Missing period")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := h.service.ComputeRating(r.Context(), personID, period, force)
	if err != nil {
		var invalidErr rating.InvalidConfigurationError
		if errors.As(err, &invalidErr) {
			respondError(w, http.StatusUnprocessableEntity, invalidErr.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to compute rating")
		respondError(w, http.StatusInternalServerError, "Failed to compute rating")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// List returns the stored ratings of an institution subtree.
// GET /api/v1/ratings?institution_id=30&period=2024-2025
func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	institutionID, err := strconv.ParseInt(r.URL.Query().Get("institution_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid institution id")
		return
	}
	period := contracts.Period(r.URL.Query().Get("period"))
	if period == "" {
		respondError(w, http.StatusBadRequest, "Missing period")
		return
	}

	results, err := h.service.ListRatings(r.Context(), institutionID, period)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list ratings")
		respondError(w, http.StatusInternalServerError, "Failed to list ratings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"count":   len(results),
		"ratings": results,
	})
}

type recalculateRequest struct {
	InstitutionID int64            `json:"institution_id"`
	Period        contracts.Period `json:"period"`
}

// Recalculate recomputes and reranks every person under an institution.
// POST /api/v1/ratings/recalculate
func (h *RatingHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.InstitutionID == 0 || req.Period == "" {
		respondError(w, http.StatusBadRequest, "Missing institution_id or period")
		return
	}

	batch, err := h.service.ComputeRatingsForScope(r.Context(), req.InstitutionID, req.Period, service.BatchOptions{
		Progress: h.progress,
	})
	if err != nil {
		var invalidErr rating.InvalidConfigurationError
		if errors.As(err, &invalidErr) {
			respondError(w, http.StatusUnprocessableEntity, invalidErr.Error())
			return
		}
		h.logger.WithError(err).Error("Scope recalculation failed")
		respondError(w, http.StatusInternalServerError, "Recalculation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"institution_id": batch.InstitutionID,
		"period":         batch.Period,
		"rated":          len(batch.Results),
		"skipped":        batch.Skipped,
		"duration":       batch.Duration.String(),
	})
}
