package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nDmitry/imagefeed/internal/app"
)

// statusClientClosed is logged when the client went away before a response was written
const statusClientClosed = 499

// Logger wraps an http.Handler with request logging. Metrics scrapes and
// image bytes are logged at debug level, failures at warn or error, everything else at info.
func Logger(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = app.Logger()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w}

		next.ServeHTTP(lrw, r)

		status := lrw.status()

		if !lrw.wroteHeader && r.Context().Err() != nil {
			status = statusClientClosed
		}

		level := requestLevel(r, status)

		if !logger.Enabled(r.Context(), level) {
			return
		}

		logger.LogAttrs(context.WithoutCancel(r.Context()), level, "HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.Int64("bytes", lrw.bytesWritten),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
	})
}

func requestLevel(r *http.Request, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		return slog.LevelError
	case status == http.StatusServiceUnavailable:
		return slog.LevelWarn
	case r.URL.Path == "/metrics", strings.HasPrefix(r.URL.Path, "/images/data"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// loggingResponseWriter captures the status code and response size
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if !lrw.wroteHeader {
		lrw.statusCode = code
		lrw.wroteHeader = true
	}

	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if !lrw.wroteHeader {
		lrw.WriteHeader(http.StatusOK)
	}

	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func (lrw *loggingResponseWriter) status() int {
	if !lrw.wroteHeader {
		return http.StatusOK
	}

	return lrw.statusCode
}

// Unwrap returns the original ResponseWriter
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
