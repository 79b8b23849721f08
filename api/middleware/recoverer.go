package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/printdock/printdock-backend/api/responses"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope and an error log
// carrying the request id. http.ErrAbortHandler is re-raised so net/http can
// drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := withTrace(r.Context())
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				logCtx := logg.WithFields(ctx, map[string]any{
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": RequestIDFromContext(ctx),
				})
				logg.Error(logCtx, "request.panic", err)
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
