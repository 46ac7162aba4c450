package auth

import (
	"net/http"

	"github.com/creativeplayground/accounts/internal/httputil"
	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/requestctx"
)

// Middleware resolves the requesting identity for protected routes
type Middleware struct {
	sessions *SessionManager
	engine   *Engine
}

func NewMiddleware(sessions *SessionManager, engine *Engine) *Middleware {
	return &Middleware{sessions: sessions, engine: engine}
}

// WithUser attaches the authenticated identity to the request context when
// one can be resolved. Order matters: a live session cookie wins; failing
// that, a remember-me cookie restores the identity through the engine's
// cookie path and a fresh session is established. Either way the request
// continues — anonymously when both fail.
func (m *Middleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, email, err := m.sessions.Resolve(r); err == nil {
			next.ServeHTTP(w, r.WithContext(requestctx.WithUser(r.Context(), userID, email)))
			return
		}

		signedToken, err := GetRememberTokenFromCookie(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		logger := logging.GetLoggerFromContext(r.Context())

		result, err := m.engine.CookieLogin(r.Context(), signedToken, clientIP(r))
		if err != nil {
			// Rejected silently: log the distinct kind, continue anonymous,
			// leave no session side effects.
			logger.Warn("remember-me cookie rejected", "reason", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		if err := m.sessions.Establish(w, result.User); err != nil {
			logger.Error("failed to establish session from remember-me cookie", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		logger.Info("session restored from remember-me cookie", "user_id", result.User.ID)

		ctx := requestctx.WithUser(r.Context(), result.User.ID, result.User.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that WithUser left anonymous
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requestctx.GetUserIDFromContext(r.Context()); !ok {
			httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
