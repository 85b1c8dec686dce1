package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/core"
)

// APIKeyUsername is recorded as the actor for requests authenticated by
// X-API-Key.
const APIKeyUsername = "api-key"

// SessionSource validates session tokens.
type SessionSource interface {
	Authenticate(token string) (core.Session, bool)
}

// Session attaches the caller's session to the request context. A valid
// X-API-Key header acts as an admin session; otherwise the session cookie is
// looked up. Requests without credentials pass through anonymous so public
// routes keep working; RequireRole enforces access.
func Session(src SessionSource, cookieName string, apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				if !isValidAPIKey(apiKey, apiKeys) {
					slog.Warn("auth: invalid API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeError(w, core.ErrInvalidCredentials, http.StatusUnauthorized)
					return
				}
				ctx = core.ContextWithSession(ctx, &core.Session{Username: APIKeyUsername, Role: core.RoleAdmin})
			} else if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				if sess, ok := src.Authenticate(c.Value); ok {
					ctx = core.ContextWithSession(ctx, &sess)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose session lacks role. RoleUser accepts
// any signed-in caller. Browser page loads are redirected instead of
// receiving an error body: anonymous callers go to /login and employees
// who open an admin page go to their own profile.
func RequireRole(role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := core.SessionFromContext(r.Context())
			switch {
			case !ok:
				deny(w, r, "/login", core.ErrInvalidCredentials, http.StatusUnauthorized)
			case role == core.RoleAdmin && !sess.IsAdmin():
				slog.Warn("auth: admin route denied",
					"path", r.URL.Path,
					"username", sess.Username,
				)
				deny(w, r, "/me", core.ErrForbidden, http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, redirect string, err error, status int) {
	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(status)
	case isPageRequest(r):
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	default:
		writeError(w, err, status)
	}
}

// isPageRequest reports whether r is a browser navigation.
func isPageRequest(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		!strings.HasPrefix(r.URL.Path, "/api/") &&
		!strings.Contains(r.Header.Get("Accept"), "application/json")
}

// isValidAPIKey checks if the provided key matches any configured key.
// Uses constant-time comparison and checks ALL keys so the comparison time
// does not depend on which key matches.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		if validKey == "" {
			continue
		}
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

// writeError writes the same JSON error shape the handlers use.
func writeError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
