package client

import (
	"log/slog"
	"net/http"

	"github.com/gla1v3/console-auth/pkg/sessions"
)

// RequireRole checks that the authenticated user holds one of the given
// roles. Must be used after AuthUserMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := r.Context().Value(AuthUserKey).(*AuthUser)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if authUser.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("User lacks required role",
				"username", authUser.Username,
				"role", authUser.Role,
				"requiredRoles", roles)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		})
	}
}

// SessionMiddleware checks that the session behind the token is still alive.
// A valid signature is not enough: a revoked or expired session kills the
// token immediately. Activity is bumped on every authenticated request.
// Must be used after AuthUserMiddleware.
func SessionMiddleware(sessionService *sessions.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := r.Context().Value(AuthUserKey).(*AuthUser)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if authUser.SessionBearer == "" {
				http.Error(w, "Session required", http.StatusUnauthorized)
				return
			}

			session, err := sessionService.ValidateBearer(r.Context(), authUser.SessionBearer)
			if err != nil {
				slog.Info("Rejected request on dead session", "username", authUser.Username, "reason", err)
				http.Error(w, "Session expired or revoked", http.StatusUnauthorized)
				return
			}
			if session.Username != authUser.Username {
				http.Error(w, "Session mismatch", http.StatusUnauthorized)
				return
			}

			if err := sessionService.UpdateActivity(r.Context(), authUser.SessionBearer); err != nil {
				slog.Warn("Failed to update session activity", "username", authUser.Username, "err", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}
