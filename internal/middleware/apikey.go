package middleware

import (
	"context"
	"net/http"
	"strings"
)

// APIKeyValidator checks a peer hub's bearer key against the active-key
// registry.
type APIKeyValidator interface {
	ValidateAPIKey(ctx context.Context, rawKey string) (bool, error)
}

// APIKeyAuth guards the federation sync endpoints. Peers authenticate
// with "Authorization: Bearer <key>".
func APIKeyAuth(validator APIKeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			active, err := validator.ValidateAPIKey(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "Failed to validate API key", http.StatusInternalServerError)
				return
			}
			if !active {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
