package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/noyon-ahamed/are-you-okay/internal/service"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Auth validates the bearer token and stores the authenticated user id in
// the request context.
func Auth(auth service.IAuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			// Browsers cannot set headers on websocket upgrades, so the
			// token may arrive as a query parameter there.
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				token = r.URL.Query().Get("token")
			}

			if token == "" {
				unauthorized(w, "Missing authorization token")
				return
			}

			userID, err := auth.ValidateToken(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, or "" outside an authenticated
// request.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + msg + `"}`))
}
