// transfer.go — выгрузка и загрузка данных, архив файлов.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	apierrors "github.com/bigkaa/weldregistry/internal/api/errors"
	"github.com/bigkaa/weldregistry/internal/service"
)

// maxUploadSize — ограничение размера загружаемого документа.
const maxUploadSize = 32 << 20

// ExportAll — GET /api/v1/export: все реестры одним файлом.
func (h *APIHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	file, err := h.catalog.ExportAll(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeAttachment(w, file)
}

// ExportCategory — GET /api/v1/export/{category}.
func (h *APIHandler) ExportCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	file, err := h.catalog.ExportCategory(r.Context(), cat)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeAttachment(w, file)
}

// ImportAll — POST /api/v1/import?confirm=true.
// Заменяет реестры, присутствующие в документе.
func (h *APIHandler) ImportAll(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	if !confirmed(w, r) {
		return
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	cats, err := h.catalog.ImportAll(r.Context(), data)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]any{
		"categories": cats,
		"counts":     h.catalog.Counts(),
	})
}

// ListFiles — GET /api/v1/files[?dir=...].
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	var dir string
	if err := queryParam(r, "dir", &dir); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр dir")
		return
	}
	files, err := h.archive.List(r.Context(), dir)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// GetFile — GET /api/v1/files/content?path=...
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	p, ok := filePathParam(w, r)
	if !ok {
		return
	}
	data, err := h.archive.Load(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// PutFile — PUT /api/v1/files/content?path=...: тело должно быть JSON.
func (h *APIHandler) PutFile(w http.ResponseWriter, r *http.Request) {
	p, ok := filePathParam(w, r)
	if !ok {
		return
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.archive.Save(r.Context(), p, data); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": p, "size": len(data)})
}

// DeleteFile — DELETE /api/v1/files/content?path=...
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	p, ok := filePathParam(w, r)
	if !ok {
		return
	}
	if err := h.archive.Delete(r.Context(), p); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filePathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var p string
	if err := queryParam(r, "path", &p); err != nil || p == "" {
		apierrors.ValidationError(w, "Не указан параметр path")
		return "", false
	}
	return p, true
}

// readBody читает тело запроса с ограничением размера.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, fmt.Sprintf("Размер документа превышает %d байт", tooLarge.Limit))
			return nil, false
		}
		apierrors.ValidationError(w, "Не удалось прочитать тело запроса")
		return nil, false
	}
	if len(data) == 0 {
		apierrors.ValidationError(w, "Пустое тело запроса")
		return nil, false
	}
	return data, true
}

// writeAttachment отдаёт файл выгрузки с именем в Content-Disposition.
func writeAttachment(w http.ResponseWriter, file service.ExportFile) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(file.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Record-Count", strconv.Itoa(file.Records))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
