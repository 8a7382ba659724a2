package handlers

import (
	"encoding/json"
	"healthcure-server/middleware"
	"healthcure-server/models"
	"healthcure-server/services"
	"healthcure-server/utils/errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService *services.UserService
}

type FavoritesResponse struct {
	Favorites []models.FavoriteDoctor `json:"favorites"`
	Count     int                     `json:"count"`
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListFavorites handles GET /user/favorites
func (h *UserHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.userService.Favorites(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, FavoritesResponse{Favorites: favorites, Count: len(favorites)})
}

// AddFavorite handles POST /user/favorites
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var input models.FavoriteDoctor
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.userService.AddFavorite(r.Context(), input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Favorite added"})
}

// RemoveFavorite handles DELETE /user/favorites/{id}
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.userService.RemoveFavorite(r.Context(), doctorID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
