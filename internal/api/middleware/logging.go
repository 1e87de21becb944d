// logging.go — middleware логирования входящих HTTP-запросов через slog.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter — обёртка для перехвата статус-кода и размера ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestLogger логирует каждый запрос. Уровень зависит от статуса:
// INFO до 4xx, WARN для 4xx, ERROR для 5xx. Идентификатор запроса
// (chi RequestID) возвращается клиенту в заголовке X-Request-Id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(chimw.RequestIDHeader, reqID)
			}
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", normalizePath(r)),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			attrs = append(attrs, registryAttrs(r)...)
			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}

// registryAttrs — реестр и резервная копия, к которым относится запрос.
func registryAttrs(r *http.Request) []slog.Attr {
	var attrs []slog.Attr
	route := normalizePath(r)
	category := chi.URLParam(r, "category")
	if category == "" && strings.HasPrefix(route, "/api/v1/catalog/wire/") {
		category = "wire"
	}
	if category != "" {
		attrs = append(attrs, slog.String("category", category))
	}
	if strings.HasPrefix(route, "/api/v1/backups/{id}") {
		attrs = append(attrs, slog.String("backup_id", chi.URLParam(r, "id")))
	}
	return attrs
}
