package middleware

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

// SessionReader reports the process-wide identity.
type SessionReader interface {
	Current() (model.Principal, session.State)
}

func isPublic(p string) bool {
	switch p {
	case "/health", "/metrics", "/api/v1/categories", "/api/v1/stream":
		return true
	}
	return strings.HasPrefix(p, "/api/v1/auth/")
}

// RequireSession rejects record requests unless the session is
// Authenticated and attaches the principal to the request context.
func RequireSession(s SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(path.Clean(r.URL.Path)) {
				next.ServeHTTP(w, r)
				return
			}

			p, state := s.Current()
			switch state {
			case session.StateAuthenticated:
				next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), p)))
			case session.StateLoading:
				writeError(w, http.StatusServiceUnavailable, "SESSION_LOADING", "session is still loading")
			default:
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
			}
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
