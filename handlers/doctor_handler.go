package handlers

import (
	"healthcure-server/middleware"
	"healthcure-server/models"
	"healthcure-server/services"
	"healthcure-server/utils/errors"
	"net/http"
	"strconv"
	"strings"
)

type DoctorHandler struct {
	locator *services.Locator
}

func NewDoctorHandler(locator *services.Locator) *DoctorHandler {
	return &DoctorHandler{locator: locator}
}

// FindDoctors handles GET /doctors?place=..|lat=..&lon=..&specialty=..&rank_by=..
func (h *DoctorHandler) FindDoctors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	origin, err := parseOrigin(query.Get("lat"), query.Get("lon"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	result, err := h.locator.Locate(r.Context(), services.SearchRequest{
		Place:     query.Get("place"),
		Origin:    origin,
		Specialty: query.Get("specialty"),
		RankBy:    query.Get("rank_by"),
	}, nil)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Specializations handles GET /specializations
func (h *DoctorHandler) Specializations(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{"specializations": models.Specializations})
}

// parseOrigin returns nil when neither coordinate is given.
func parseOrigin(latStr, lonStr string) (*models.Coordinate, error) {
	latStr = strings.TrimSpace(latStr)
	lonStr = strings.TrimSpace(lonStr)
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.ErrInvalidCoords
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.ErrInvalidCoords
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, errors.ErrInvalidCoords
	}
	return &models.Coordinate{Lat: lat, Lon: lon}, nil
}
