// backups.go — обработчики резервных копий и журнала изменений.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/weldregistry/internal/api/errors"
)

// createBackupRequest — тело POST /api/v1/backups (необязательное).
type createBackupRequest struct {
	Description string `json:"description"`
}

// ListBackups — GET /api/v1/backups: от новых к старым.
func (h *APIHandler) ListBackups(w http.ResponseWriter, _ *http.Request) {
	items := h.backups.List()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// CreateBackup — POST /api/v1/backups.
func (h *APIHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)

	var req createBackupRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
			apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
			return
		}
	}

	info, err := h.backups.Create(r.Context(), req.Description)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusCreated, info)
}

// GetBackup — GET /api/v1/backups/{id}: описание без данных.
func (h *APIHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.backups.Get(pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Info())
}

// DeleteBackup — DELETE /api/v1/backups/{id}?confirm=true.
func (h *APIHandler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	if !confirmed(w, r) {
		return
	}
	if err := h.backups.Delete(r.Context(), pathParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]any{"total": len(h.backups.List())})
}

// RestoreBackup — POST /api/v1/backups/{id}/restore?confirm=true.
func (h *APIHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	if !confirmed(w, r) {
		return
	}
	info, err := h.backups.Restore(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, info)
}

// DownloadBackup — GET /api/v1/backups/{id}/download: файл резервной копии.
func (h *APIHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	file, err := h.backups.Export(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeAttachment(w, file)
}

// RestoreFromFile — POST /api/v1/backups/restore-file?confirm=true[&name=...].
// Тело — файл резервной копии.
func (h *APIHandler) RestoreFromFile(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	if !confirmed(w, r) {
		return
	}
	var name string
	if err := queryParam(r, "name", &name); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр name")
		return
	}
	if name == "" {
		name = "upload.json"
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	info, err := h.backups.RestoreFromExternal(r.Context(), data, name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, info)
}

// ListCommits — GET /api/v1/commits: от новых к старым.
func (h *APIHandler) ListCommits(w http.ResponseWriter, _ *http.Request) {
	items := h.commits.History()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}
