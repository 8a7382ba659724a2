package handlers

import (
	"encoding/json"
	"healthcure-server/middleware"
	"healthcure-server/models"
	"healthcure-server/services"
	"healthcure-server/utils/errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

type SessionHandler struct {
	store *services.SessionStore
}

func NewSessionHandler(store *services.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

type createSessionInput struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type createSessionResponse struct {
	Session services.SessionSnapshot `json:"session"`
	Search  *services.SearchOutcome  `json:"search,omitempty"`
}

type searchInput struct {
	Place     string   `json:"place"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Specialty string   `json:"specialty"`
	RankBy    string   `json:"rank_by"`
}

// CreateSession handles POST /sessions. A body with lat/lon starts the initial geolocated search.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input createSessionInput
	if err := decodeOptionalBody(r, &input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	origin, err := coordinateFrom(input.Lat, input.Lon)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	snapshot, outcome, err := h.store.Create(r.Context(), origin)
	if err != nil && snapshot.ID == "" {
		middleware.WriteError(w, err)
		return
	}
	// A failed initial search still leaves a usable session; the error is on the snapshot.
	middleware.WriteJSON(w, http.StatusCreated, createSessionResponse{Session: snapshot, Search: outcome})
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, session.Snapshot())
}

// Search handles POST /sessions/{id}/search
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var input searchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	origin, err := coordinateFrom(input.Lat, input.Lon)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	outcome, err := h.store.Search(r.Context(), mux.Vars(r)["id"], services.SearchRequest{
		Place:     input.Place,
		Origin:    origin,
		Specialty: input.Specialty,
		RankBy:    input.RankBy,
	})
	if outcome.Superseded {
		middleware.WriteJSON(w, http.StatusOK, outcome)
		return
	}
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, outcome)
}

// CloseSession handles DELETE /sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Close(mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func coordinateFrom(lat, lon *float64) (*models.Coordinate, error) {
	if lat == nil && lon == nil {
		return nil, nil
	}
	if lat == nil || lon == nil {
		return nil, errors.ErrInvalidCoords
	}
	return &models.Coordinate{Lat: *lat, Lon: *lon}, nil
}

func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}
