package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

type contextKey string

const userIDKey contextKey = "userId"

// TokenFromRequest pulls the bearer token from the Authorization header,
// then the access_token cookie, then the access_token query parameter. The
// fallbacks exist for the server-rendered dashboard and audio playback,
// where the browser cannot attach a header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("access_token")
}

// Middleware authenticates each request and stores the user ID on the
// context. Requests without a valid token get a 401.
func Middleware(verifier Verifier, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := verifier.UserID(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					logger.Error("verify token", "error", err.Error())
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user's ID, or "" outside the middleware.
func UserID(r *http.Request) string {
	id, ok := r.Context().Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
