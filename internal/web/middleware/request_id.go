package middleware

import (
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// RequestIDHeader is the header the request ID is read from and echoed
// into.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns every request a ULID, unless the caller already
// supplied one, and stores it in the context for the logger.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = ulid.Make().String()
			}

			ctx := webcontext.SetRequestID(r.Context(), id)
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
