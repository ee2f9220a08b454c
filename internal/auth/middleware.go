package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/httpx"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// LoadSession resolves the bearer token into a session on the request
// context. Unknown or expired tokens leave the request anonymous.
func LoadSession(sessions *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			if err != nil {
				if !errors.Is(err, shared.ErrSessionNotFound) {
					logger.WarnContext(r.Context(), "load session", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := sessions.Touch(r.Context(), sess); err != nil {
				logger.WarnContext(r.Context(), "touch session", slog.Any("error", err))
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.ActorFromContext(r.Context()) == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
