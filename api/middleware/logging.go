package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/printdock/printdock-backend/pkg/logger"
)

// quietPaths are polled constantly by the platform and only logged on failure.
var quietPaths = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
	"/metrics":      true,
}

// Logging writes one request.complete line per request with status, size and
// latency. user_id and actor_role are added when Auth identified the caller.
// 5xx responses log at warn.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, trace := withTrace(r.Context())
			ctx = logg.WithFields(ctx, map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.code()
			if quietPaths[strings.TrimSuffix(r.URL.Path, "/")] && status < http.StatusInternalServerError {
				return
			}

			fields := trace.fields()
			fields["status"] = status
			fields["bytes"] = rec.bytes
			fields["duration_ms"] = time.Since(start).Milliseconds()
			ctx = logg.WithFields(ctx, fields)
			if status >= http.StatusInternalServerError {
				logg.Warn(ctx, "request.complete")
				return
			}
			logg.Info(ctx, "request.complete")
		})
	}
}
