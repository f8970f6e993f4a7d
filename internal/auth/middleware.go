package auth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type contextKey string

const AdminIDKey contextKey = "admin_id"

// AuthMiddleware guards plain chi routes with a scanner key (X-API-KEY) or an
// admin session cookie, refreshing sessions past half their lifetime.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Check for API Key Header
		if apiKey := r.Header.Get("X-API-KEY"); apiKey != "" {
			keyModel, err := h.ValidateAPIKey(r.Context(), apiKey)
			switch {
			case err == nil:
				ctx := context.WithValue(r.Context(), AdminIDKey, keyModel.AdminID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			case errors.Is(err, ErrExpiredAPIKey):
				http.Error(w, "Unauthorized: API Key expired", http.StatusUnauthorized)
				return
			case !errors.Is(err, ErrInvalidAPIKey):
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		// 2. Fallback to JWT Cookie
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		adminID, exp, err := h.ParseToken(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if !exp.IsZero() && time.Until(exp) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(adminID); err == nil {
				http.SetCookie(w, sessionCookie(newToken))
			}
		}

		ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
