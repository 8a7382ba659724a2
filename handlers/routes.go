package handlers

import (
	"healthcure-server/middleware"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig carries the handlers to mount. Users and Auth may be nil when accounts are disabled.
type RouterConfig struct {
	Doctors        *DoctorHandler
	Sessions       *SessionHandler
	Predictions    *PredictionHandler
	Users          *UserHandler
	Auth           *AuthHandler
	JWTSecret      string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Doctor locator
	r.HandleFunc("/specializations", cfg.Doctors.Specializations).Methods("GET", "OPTIONS")
	r.HandleFunc("/doctors", cfg.Doctors.FindDoctors).Methods("GET", "OPTIONS")

	// Map sessions
	sessionRouter := r.PathPrefix("/sessions").Subrouter()
	sessionRouter.HandleFunc("", cfg.Sessions.CreateSession).Methods("POST", "OPTIONS")
	sessionRouter.HandleFunc("/{id}", cfg.Sessions.GetSession).Methods("GET", "OPTIONS")
	sessionRouter.HandleFunc("/{id}", cfg.Sessions.CloseSession).Methods("DELETE")
	sessionRouter.HandleFunc("/{id}/search", cfg.Sessions.Search).Methods("POST", "OPTIONS")

	// Prediction gateway
	r.HandleFunc("/symptoms", cfg.Predictions.ListSymptoms).Methods("GET", "OPTIONS")
	r.HandleFunc("/symptoms/suggest", cfg.Predictions.SuggestSymptoms).Methods("GET", "OPTIONS")
	r.HandleFunc("/predict", cfg.Predictions.Predict).Methods("POST", "OPTIONS")

	// Accounts
	if cfg.Auth != nil && cfg.Users != nil {
		authRouter := r.PathPrefix("/auth").Subrouter()
		authRouter.HandleFunc("/register", cfg.Auth.RegisterUser).Methods("POST", "OPTIONS")
		authRouter.HandleFunc("/login", cfg.Auth.LoginUser).Methods("POST", "OPTIONS")

		userRouter := r.PathPrefix("/user").Subrouter()
		userRouter.Use(middleware.JWTMiddleware(cfg.JWTSecret))
		userRouter.HandleFunc("/favorites", cfg.Users.ListFavorites).Methods("GET", "OPTIONS")
		userRouter.HandleFunc("/favorites", cfg.Users.AddFavorite).Methods("POST")
		userRouter.HandleFunc("/favorites/{id}", cfg.Users.RemoveFavorite).Methods("DELETE", "OPTIONS")
	}

	return r
}
