package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/weldregistry/internal/api/openapi"
)

func newValidatedRouter(t *testing.T) chi.Router {
	t.Helper()
	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("openapi.Load() ошибка: %v", err)
	}
	v, err := NewRequestValidator(doc, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewRequestValidator() ошибка: %v", err)
	}

	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r := chi.NewRouter()
	r.Use(v.Middleware())
	r.Get("/api/v1/catalog/stats", ok)
	r.Get("/api/v1/catalog/{category}/search", ok)
	r.Delete("/api/v1/catalog/wire/{id}", ok)
	r.Post("/api/v1/import", ok)
	r.Get("/internal/debug", ok)
	return r
}

func TestRequestValidator(t *testing.T) {
	router := newValidatedRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"корректный поиск", http.MethodGet, "/api/v1/catalog/wire/search?class=carbon&method=MP", "", http.StatusOK},
		{"статический путь", http.MethodGet, "/api/v1/catalog/stats", "", http.StatusOK},
		{"неизвестный реестр", http.MethodGet, "/api/v1/catalog/pipes/search", "", http.StatusBadRequest},
		{"неизвестный класс", http.MethodGet, "/api/v1/catalog/wire/search?class=copper", "", http.StatusBadRequest},
		{"нечисловой id", http.MethodDelete, "/api/v1/catalog/wire/abc", "", http.StatusBadRequest},
		{"некорректный confirm", http.MethodDelete, "/api/v1/catalog/wire/1?confirm=maybe", "", http.StatusBadRequest},
		{"импорт объекта", http.MethodPost, "/api/v1/import?confirm=true", `{"wireData":[]}`, http.StatusOK},
		{"импорт массива", http.MethodPost, "/api/v1/import?confirm=true", `[1,2]`, http.StatusBadRequest},
		{"путь вне контракта", http.MethodGet, "/internal/debug", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("статус = %d, ожидался %d, тело: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusBadRequest {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatal(err)
				}
				if body.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("code = %q, ожидался VALIDATION_ERROR", body.Error.Code)
				}
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = normalizePath(req)
		})
	})
	r.Get("/api/v1/backups/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/backups/0192-abc", nil))
	if got != "/api/v1/backups/{id}" {
		t.Errorf("normalizePath = %q, ожидался /api/v1/backups/{id}", got)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if strings.Contains(got, "nope") {
		t.Errorf("normalizePath для неизвестного пути = %q", got)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))

	tests := []struct {
		path  string
		level string
	}{
		{"/", "INFO"},
		{"/missing", "WARN"},
		{"/broken", "ERROR"},
	}
	for _, tt := range tests {
		buf.Reset()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("разбор записи лога: %v", err)
		}
		if entry["level"] != tt.level {
			t.Errorf("%s: level = %v, ожидался %s", tt.path, entry["level"], tt.level)
		}
		if entry["component"] != "http" {
			t.Errorf("%s: component = %v", tt.path, entry["component"])
		}
	}
}

func TestRequestLogger_RegistryAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r := chi.NewRouter()
	r.Use(chimw.RequestID, RequestLogger(logger))
	r.Get("/api/v1/catalog/{category}/search", ok)
	r.Delete("/api/v1/catalog/wire/{id}", ok)
	r.Get("/api/v1/backups/{id}/download", ok)

	tests := []struct {
		method   string
		target   string
		route    string
		category string
		backupID string
	}{
		{http.MethodGet, "/api/v1/catalog/welders/search?group=x", "/api/v1/catalog/{category}/search", "welders", ""},
		{http.MethodDelete, "/api/v1/catalog/wire/7", "/api/v1/catalog/wire/{id}", "wire", ""},
		{http.MethodGet, "/api/v1/backups/0192-abc/download", "/api/v1/backups/{id}/download", "", "0192-abc"},
	}
	for _, tt := range tests {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("разбор записи лога: %v", err)
		}
		if entry["route"] != tt.route {
			t.Errorf("%s: route = %v, ожидался %s", tt.target, entry["route"], tt.route)
		}
		reqID, _ := entry["request_id"].(string)
		if reqID == "" || rec.Header().Get(chimw.RequestIDHeader) != reqID {
			t.Errorf("%s: request_id = %q, заголовок = %q", tt.target, reqID, rec.Header().Get(chimw.RequestIDHeader))
		}
		if got, _ := entry["category"].(string); got != tt.category {
			t.Errorf("%s: category = %q, ожидалась %q", tt.target, got, tt.category)
		}
		if got, _ := entry["backup_id"].(string); got != tt.backupID {
			t.Errorf("%s: backup_id = %q, ожидался %q", tt.target, got, tt.backupID)
		}
	}
}
