package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/creativeplayground/accounts/internal/logging"
	"github.com/creativeplayground/accounts/internal/requestctx"
)

// Middleware records each authenticated request in the user's activity
// history. Anonymous requests pass through untouched. Recording happens
// off the request path so a slow Redis never delays the response.
func Middleware(recorder *Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := requestctx.GetUserIDFromContext(r.Context()); ok {
				entry := Entry{
					Method: r.Method,
					Path:   r.URL.Path,
					At:     time.Now().UTC(),
				}
				logger := logging.GetLoggerFromContext(r.Context())
				go func() {
					ctx, cancel := contextWithTimeout()
					defer cancel()
					if err := recorder.Record(ctx, userID, entry); err != nil {
						logger.Error("failed to record user activity", "user_id", userID, "error", err.Error())
					}
				}()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// The request context is gone once the handler returns, so recording
// uses its own short-lived context.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
