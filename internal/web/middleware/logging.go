package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/logiflow/logiflow/internal/web/webcontext"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger *zap.Logger
	// SkipPaths lists paths that are not logged (health checks).
	SkipPaths []string
}

// Logging logs one structured line per request.
func Logging(logger *zap.Logger) Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

// LoggingWithConfig creates the logging middleware with custom
// configuration.
func LoggingWithConfig(config LoggingConfig) Middleware {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("request",
				zap.String("request_id", webcontext.RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Int("bytes", rw.bytesWritten),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// responseWriter captures the status code and bytes written for the
// log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}
