// catalog.go — обработчики реестров: загрузка, выборка, отчёты, удаление.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/weldregistry/internal/api/errors"
	"github.com/bigkaa/weldregistry/internal/domain/codec"
	"github.com/bigkaa/weldregistry/internal/domain/filter"
	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/service"
)

// reloadResponse — итог загрузки из источника.
type reloadResponse struct {
	service.LoadReport
	Errors []string `json:"errors,omitempty"`
}

// listResponse — выборка записей реестра.
type listResponse struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
	Data     any            `json:"data"`
}

// ReloadCatalog — POST /api/v1/catalog/reload[?category=...].
// Без параметра загружаются все реестры.
func (h *APIHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)

	var raw string
	if err := queryParam(r, "category", &raw); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр category")
		return
	}

	var (
		report service.LoadReport
		err    error
	)
	if raw == "" {
		report, err = h.catalog.LoadAll(r.Context())
	} else {
		cat, perr := model.ParseCategory(raw)
		if perr != nil {
			apierrors.ValidationError(w, perr.Error())
			return
		}
		report, err = h.catalog.Load(r.Context(), cat)
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := reloadResponse{LoadReport: report}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeMutation(w, r, http.StatusOK, resp)
}

// GetStats — GET /api/v1/catalog/stats.
func (h *APIHandler) GetStats(w http.ResponseWriter, _ *http.Request) {
	loadedAt := ""
	if t := h.catalog.LoadedAt(); !t.IsZero() {
		loadedAt = t.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loadedAt": loadedAt,
		"counts":   h.catalog.Counts(),
		"stats":    h.catalog.Stats(),
	})
}

// CheckSources — GET /api/v1/catalog/sources.
func (h *APIHandler) CheckSources(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.catalog.CheckSources(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": statuses})
}

// GetCollection — GET /api/v1/catalog/{category}: реестр целиком.
func (h *APIHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	collection, n := codec.Collection(h.catalog.Dataset(), cat)
	writeJSON(w, http.StatusOK, listResponse{Category: cat, Count: n, Data: collection})
}

// GetGroups — GET /api/v1/catalog/{category}/groups: значения фильтра группы.
func (h *APIHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	if cat == model.CategoryWire {
		apierrors.ValidationError(w, "Реестр проволоки не разбит на группы")
		return
	}
	groups := h.catalog.Groups(cat)
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": cat, "groups": groups})
}

// Search — GET /api/v1/catalog/{category}/search.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	q, err := parseReportQuery(r, cat)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var (
		data any
		n    int
	)
	switch cat {
	case model.CategoryWire:
		recs, serr := h.catalog.SearchWire(q.Wire)
		data, n, err = recs, len(recs), serr
	case model.CategoryWelders:
		recs, serr := h.catalog.SearchWelders(q.Group)
		data, n, err = recs, len(recs), serr
	case model.CategorySpecialists:
		recs, serr := h.catalog.SearchSpecialists(q.Fio)
		data, n, err = recs, len(recs), serr
	case model.CategoryTechprocess:
		recs, serr := h.catalog.SearchTechprocess(q.Group)
		data, n, err = recs, len(recs), serr
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Category: cat, Count: n, Data: data})
}

// BuildReport — GET /api/v1/catalog/{category}/report: таблица для PDF.
func (h *APIHandler) BuildReport(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	q, err := parseReportQuery(r, cat)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	table, err := h.reports.Build(r.Context(), cat, q)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, table)
}

// DeleteWire — DELETE /api/v1/catalog/wire/{id}?confirm=true.
func (h *APIHandler) DeleteWire(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	id, err := strconv.Atoi(pathParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id записи")
		return
	}
	if !confirmed(w, r) {
		return
	}
	if err := h.catalog.DeleteWire(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]any{"counts": h.catalog.Counts()})
}

// DeleteRecord — DELETE /api/v1/catalog/{category}/{group}/{index}?confirm=true.
func (h *APIHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	r = withNotifications(r)
	cat, ok := categoryParam(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(pathParam(r, "index"))
	if err != nil || index < 0 {
		apierrors.ValidationError(w, "Некорректный индекс записи")
		return
	}
	if !confirmed(w, r) {
		return
	}
	if err := h.catalog.Delete(r.Context(), cat, pathParam(r, "group"), index); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeMutation(w, r, http.StatusOK, map[string]any{"counts": h.catalog.Counts()})
}

// categoryParam разбирает {category}; при ошибке пишет 400.
func categoryParam(w http.ResponseWriter, r *http.Request) (model.Category, bool) {
	cat, err := model.ParseCategory(pathParam(r, "category"))
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return "", false
	}
	return cat, true
}

// parseReportQuery собирает параметры выборки реестра из query.
// Незаполненные параметры остаются пустыми: их проверяет слой фильтрации.
func parseReportQuery(r *http.Request, cat model.Category) (service.ReportQuery, error) {
	var q service.ReportQuery
	var class, method, diameter, group, fio string
	for name, dest := range map[string]*string{
		"class": &class, "method": &method, "diameter": &diameter, "group": &group, "fio": &fio,
	} {
		if err := queryParam(r, name, dest); err != nil {
			return q, err
		}
	}

	var m model.Method
	if method != "" {
		parsed, err := model.ParseMethod(method)
		if err != nil {
			return q, err
		}
		m = parsed
	}

	switch cat {
	case model.CategoryWire:
		q.Wire = filter.WireQuery{Method: m, Diameter: diameter}
		if class != "" {
			c, err := filter.ParseWireClass(class)
			if err != nil {
				return q, err
			}
			q.Wire.Class = c
		}
	case model.CategorySpecialists:
		q.Fio = fio
	default:
		q.Group = filter.GroupQuery{Group: group, Method: m}
	}
	return q, nil
}
