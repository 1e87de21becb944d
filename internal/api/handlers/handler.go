// handler.go — основной обработчик REST API реестра.
// Объединяет health и бизнес-обработчики, регистрирует маршруты в chi.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/weldregistry/internal/api/errors"
	"github.com/bigkaa/weldregistry/internal/domain/codec"
	"github.com/bigkaa/weldregistry/internal/domain/filter"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/service"
)

// Services — сервисный слой, которому делегируются запросы.
type Services struct {
	Catalog *service.CatalogService
	Backups *service.BackupService
	Commits *service.CommitLog
	Reports *service.ReportService
	Archive *service.ArchiveService
}

// APIHandler — основной обработчик API.
type APIHandler struct {
	health  *HealthHandler
	catalog *service.CatalogService
	backups *service.BackupService
	commits *service.CommitLog
	reports *service.ReportService
	archive *service.ArchiveService
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:  health,
		catalog: svc.Catalog,
		backups: svc.Backups,
		commits: svc.Commits,
		reports: svc.Reports,
		archive: svc.Archive,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// Register регистрирует все маршруты API в роутере.
func (h *APIHandler) Register(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Post("/reload", h.ReloadCatalog)
			r.Get("/stats", h.GetStats)
			r.Get("/sources", h.CheckSources)
			r.Delete("/wire/{id}", h.DeleteWire)
			r.Get("/{category}", h.GetCollection)
			r.Get("/{category}/groups", h.GetGroups)
			r.Get("/{category}/search", h.Search)
			r.Get("/{category}/report", h.BuildReport)
			r.Delete("/{category}/{group}/{index}", h.DeleteRecord)
		})

		r.Get("/export", h.ExportAll)
		r.Get("/export/{category}", h.ExportCategory)
		r.Post("/import", h.ImportAll)

		r.Get("/files", h.ListFiles)
		r.Get("/files/content", h.GetFile)
		r.Put("/files/content", h.PutFile)
		r.Delete("/files/content", h.DeleteFile)

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", h.ListBackups)
			r.Post("/", h.CreateBackup)
			r.Post("/restore-file", h.RestoreFromFile)
			r.Get("/{id}", h.GetBackup)
			r.Delete("/{id}", h.DeleteBackup)
			r.Post("/{id}/restore", h.RestoreBackup)
			r.Get("/{id}/download", h.DownloadBackup)
		})

		r.Get("/commits", h.ListCommits)
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// mutationResponse — ответ изменяющей операции.
type mutationResponse struct {
	Data         any                  `json:"data,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// withNotifications подключает к запросу сбор уведомлений сервисов.
func withNotifications(r *http.Request) *http.Request {
	return r.WithContext(notify.WithCollector(r.Context()))
}

// writeMutation записывает результат операции вместе с последним уведомлением.
func writeMutation(w http.ResponseWriter, r *http.Request, status int, data any) {
	resp := mutationResponse{Data: data}
	if list := notify.Collected(r.Context()); len(list) > 0 {
		last := list[len(list)-1]
		resp.Notification = &last
	}
	writeJSON(w, status, resp)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filter.ErrMissingFilter):
		apierrors.MissingFilter(w, filter.MissingFilterMessage)
	case errors.Is(err, filter.ErrInvalidRange), errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrRecordNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, codec.ErrInvalidFormat), errors.Is(err, codec.ErrParse):
		apierrors.InvalidFormat(w, err.Error())
	case errors.Is(err, service.ErrPersistence):
		apierrors.PersistenceFailed(w, err.Error())
	case errors.Is(err, service.ErrEmptyExport), errors.Is(err, service.ErrEmptyReport):
		apierrors.EmptyExport(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// queryParam связывает необязательный query-параметр (style=form, explode=true).
func queryParam(r *http.Request, name string, dest any) error {
	return runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest)
}

// confirmed проверяет confirm=true для разрушающих операций.
// Без подтверждения записывает 409 и возвращает false.
func confirmed(w http.ResponseWriter, r *http.Request) bool {
	var confirm bool
	if err := queryParam(r, "confirm", &confirm); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр confirm")
		return false
	}
	if !confirm {
		apierrors.ConfirmationRequired(w, "Операция требует подтверждения: confirm=true")
		return false
	}
	return true
}

// pathParam возвращает декодированный path-параметр.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
