package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/logiflow/logiflow/internal/web/response"
	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// Recovery converts handler panics into 500 responses. The panic value
// and stack go to the log, never to the client.
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", webcontext.RequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					response.RenderInternalError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
