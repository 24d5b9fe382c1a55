package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"notes-server/internal/domain"
	"notes-server/internal/httperror"
	"notes-server/internal/logger"
)

// Recovery turns a handler panic into an internal error envelope.
func Recovery(errs *httperror.Writer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					errs.Write(w, domain.NewInternalError("internal server error", fmt.Errorf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
