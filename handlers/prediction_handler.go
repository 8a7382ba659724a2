package handlers

import (
	"encoding/json"
	"healthcure-server/middleware"
	"healthcure-server/models"
	"healthcure-server/services"
	"healthcure-server/utils/errors"
	"net/http"
	"strconv"
)

type PredictionHandler struct {
	predictions *services.PredictionService
}

func NewPredictionHandler(predictions *services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// ListSymptoms handles GET /symptoms
func (h *PredictionHandler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms, err := h.predictions.Symptoms(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, models.SymptomCatalog{Symptoms: symptoms})
}

// SuggestSymptoms handles GET /symptoms/suggest?q=..&limit=..
func (h *PredictionHandler) SuggestSymptoms(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
		limit = n
	}

	suggestions, err := h.predictions.SuggestSymptoms(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, models.SymptomCatalog{Symptoms: suggestions})
}

// Predict handles POST /predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var input models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	prediction, err := h.predictions.Predict(r.Context(), input.Symptoms)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, prediction)
}
