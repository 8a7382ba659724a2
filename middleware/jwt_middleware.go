package middleware

import (
	"healthcure-server/services"
	"healthcure-server/utils/errors"
	"net/http"
	"strings"
)

// JWTMiddleware rejects requests without a valid bearer token and puts the user id on the context.
func JWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				WriteError(w, errors.ErrUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := services.ParseToken(jwtSecret, tokenString)
			if err != nil {
				WriteError(w, errors.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(services.WithUserID(r.Context(), userID)))
		})
	}
}
