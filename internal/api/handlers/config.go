package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/elmarb/edurate/internal/contracts"
	"github.com/elmarb/edurate/internal/ratingconfig"
	"github.com/elmarb/edurate/pkg/logger"
)

// ConfigService is the slice of the rating service the configuration
// handlers consume.
type ConfigService interface {
	ActiveConfiguration(ctx context.Context) (ratingconfig.Config, error)
	UpdateConfiguration(ctx context.Context, weights map[contracts.ComponentKey]int) (ratingconfig.Config, error)
}

// ConfigHandler handles rating configuration endpoints.
type ConfigHandler struct {
	service ConfigService
	logger  *logger.Logger
}

// NewConfigHandler creates a new configuration handler.
func NewConfigHandler(svc ConfigService, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{
		service: svc,
		logger:  log,
	}
}

type weightsResponse struct {
	Weights map[contracts.ComponentKey]int                `json:"weights"`
	Ranges  map[contracts.ComponentKey]ratingconfig.Range `json:"ranges"`
}

// GetWeights returns the active component weights and their editable
// bounds.
// GET /api/v1/config/weights
func (h *ConfigHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.ActiveConfiguration(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load configuration")
		respondError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	ranges := make(map[contracts.ComponentKey]ratingconfig.Range, 6)
	for _, key := range contracts.AllComponents() {
		ranges[key] = cfg.RangeFor(key)
	}

	respondJSON(w, http.StatusOK, weightsResponse{
		Weights: cfg.Weights.Map(),
		Ranges:  ranges,
	})
}

type updateWeightsRequest struct {
	Weights map[contracts.ComponentKey]int `json:"weights"`
}

// UpdateWeights replaces the six component weights. All six must be
// present, within their ranges, and sum to 100; otherwise nothing
// changes.
// PUT /api/v1/config/weights
func (h *ConfigHandler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req updateWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := h.service.UpdateConfiguration(r.Context(), req.Weights)
	if err != nil {
		var sumErr ratingconfig.WeightSumError
		var rangeErr ratingconfig.WeightRangeError
		var validationErr ratingconfig.ValidationError
		if errors.As(err, &sumErr) || errors.As(err, &rangeErr) || errors.As(err, &validationErr) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to update configuration")
		respondError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}

	respondJSON(w, http.StatusOK, weightsResponse{
		Weights: cfg.Weights.Map(),
	})
}
