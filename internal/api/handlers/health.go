// health.go — обработчики health endpoints.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (каталог загружен, хранилище и источник доступны)
// /metrics — Prometheus метрики
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/weldregistry/internal/config"
)

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// DependencyHealth — состояние внешних зависимостей (topologymetrics).
type DependencyHealth interface {
	Health() map[string]bool
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	storage     ReadinessChecker
	deps        DependencyHealth
	loadedAt    func() time.Time
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// storage и deps могут быть nil: соответствующая проверка пропускается.
// loadedAt — время загрузки каталога (нулевое — каталог не загружен).
func NewHealthHandler(storage ReadinessChecker, deps DependencyHealth, loadedAt func() time.Time) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		deps:        deps,
		loadedAt:    loadedAt,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

const serviceName = "weld-registry"

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    make(map[string]healthCheckResult),
	}

	// Незагруженный каталог не мешает обслуживать резервные копии
	catalog := healthCheckResult{Status: "ok"}
	if h.loadedAt == nil || h.loadedAt().IsZero() {
		catalog = healthCheckResult{Status: statusDegraded, Message: "каталог не загружен"}
	}
	resp.Checks["catalog"] = catalog

	if h.storage != nil {
		st, msg := h.storage.CheckReady()
		resp.Checks["postgresql"] = healthCheckResult{Status: st, Message: msg}
	}

	if h.deps != nil {
		for name, healthy := range h.deps.Health() {
			if healthy {
				resp.Checks[name] = healthCheckResult{Status: "ok"}
			} else {
				resp.Checks[name] = healthCheckResult{Status: statusDegraded, Message: "зависимость недоступна"}
			}
		}
	}

	statuses := make([]string, 0, len(resp.Checks))
	for _, c := range resp.Checks {
		statuses = append(statuses, c.Status)
	}
	resp.Status = overallStatus(statuses...)

	status := http.StatusOK
	if resp.Status == statusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// Константы статусов health check.
const (
	statusFail     = "fail"
	statusDegraded = "degraded"
)

// overallStatus определяет итоговый статус из статусов зависимостей.
// Хотя бы один fail — итог fail, хотя бы один degraded — degraded.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return "ok"
}
