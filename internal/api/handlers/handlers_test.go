package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/service"
	"github.com/bigkaa/weldregistry/internal/source"
	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixtureFiles() map[string][]byte {
	return map[string][]byte{
		"mp/data-wire-mp.json": []byte(`{"wireDataMP":[
			{"id":1,"brand":"Св-08Г2С","type":"Проволока","diameter":"1.2"},
			{"id":3,"brand":"Св-04Х19Н9","type":"Проволока","diameter":"1,0"}
		]}`),
		"rd/data-wire-rd.json": []byte(`{"wireDataRD":[
			{"id":20,"brand":"УОНИИ-13/55","type":"Электроды","diameter":"3.0"}
		]}`),
		"mp/data-welders-mp.json": []byte(`{"weldersMP":[
			{"fio":"Иванов И.И.","stamp":"A1","validUntil":"01-01-2030"},
			{"fio":"Петров П.П.","stamp":"A2","validUntil":"01-01-2020"}
		]}`),
		"data-specialists.json":       []byte(`{"Иванов И.И.":[{"cert":"C1","validUntil":"01-01-2030"}]}`),
		"mp/data-techprocess-mp.json": []byte(`{"techprocessMP":[{"cert":"T1","validUntil":"01-01-2030"}]}`),
	}
}

const mpWelders = "Полуавтоматическая сварка"

type testAPI struct {
	router   chi.Router
	catalog  *service.CatalogService
	backups  *service.BackupService
	recorder *notify.Recorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	store := kv.NewMemory()
	recorder := &notify.Recorder{}
	notifier := notify.NewDispatcher(recorder)

	commits, err := service.NewCommitLog(ctx, store, 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}
	catalog := service.NewCatalogService(source.NewMemoryFetcher(fixtureFiles()), commits, notifier, testLogger())
	archive := service.NewArchiveService(store, testLogger())
	catalog.SetArchive(archive)
	if _, err := catalog.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() ошибка: %v", err)
	}
	backups, err := service.NewBackupService(ctx, store, catalog, commits, notifier, 10, testLogger())
	if err != nil {
		t.Fatalf("NewBackupService() ошибка: %v", err)
	}

	h := NewAPIHandler(
		NewHealthHandler(nil, nil, catalog.LoadedAt),
		Services{
			Catalog: catalog,
			Backups: backups,
			Commits: commits,
			Reports: service.NewReportService(catalog, notifier),
			Archive: archive,
		},
		testLogger(),
	)
	router := chi.NewRouter()
	h.Register(router)
	recorder.Reset()

	return &testAPI{router: router, catalog: catalog, backups: backups, recorder: recorder}
}

func (a *testAPI) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("статус = %d, ожидался %d, тело: %s", rec.Code, want, rec.Body.String())
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("разбор ошибки: %v", err)
	}
	if body.Error.Code != code {
		t.Errorf("code = %q, ожидался %q", body.Error.Code, code)
	}
}

type mutation struct {
	Data         json.RawMessage      `json:"data"`
	Notification *notify.Notification `json:"notification"`
}

func decodeMutation(t *testing.T, rec *httptest.ResponseRecorder) mutation {
	t.Helper()
	var m mutation
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("разбор ответа: %v", err)
	}
	if m.Notification == nil {
		t.Fatal("в ответе нет уведомления")
	}
	return m
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	expectStatus(t, api.do(t, http.MethodGet, "/health/live", nil), http.StatusOK)

	rec := api.do(t, http.MethodGet, "/health/ready", nil)
	expectStatus(t, rec, http.StatusOK)
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, ожидался ok", body.Status)
	}
}

func TestHealthReady_NotLoaded(t *testing.T) {
	h := NewHealthHandler(nil, nil, func() time.Time { return time.Time{} })
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Errorf("ожидался статус degraded, тело: %s", rec.Body.String())
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail", "ok"}, "fail"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.in...); got != tt.want {
			t.Errorf("overallStatus(%v) = %q, ожидался %q", tt.in, got, tt.want)
		}
	}
}

func TestGetCollection(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/wire", nil)
	expectStatus(t, rec, http.StatusOK)
	var body struct {
		Category string             `json:"category"`
		Count    int                `json:"count"`
		Data     []model.WireRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 3 || len(body.Data) != 3 {
		t.Errorf("count = %d, записей %d, ожидалось 3", body.Count, len(body.Data))
	}

	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/pipes", nil), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestGetGroups(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/welders/groups", nil)
	expectStatus(t, rec, http.StatusOK)
	var body struct {
		Groups []string `json:"groups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{mpWelders}, body.Groups); diff != "" {
		t.Errorf("groups (-want +got):\n%s", diff)
	}

	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/wire/groups", nil), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestSearch(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		path  string
		query url.Values
		count int
	}{
		{"проволока", "wire", url.Values{"class": {"carbon"}, "method": {"MP"}, "diameter": {"1-2"}}, 1},
		{"сварщики по группе", "welders", url.Values{"group": {mpWelders}}, 2},
		{"сварщики по способу", "welders", url.Values{"method": {"mp"}}, 2},
		{"специалист", "specialists", url.Values{"fio": {"Иванов И.И."}}, 1},
		{"нет группы", "techprocess", url.Values{"group": {"Нет такой"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, "/api/v1/catalog/"+tt.path+"/search?"+tt.query.Encode(), nil)
			expectStatus(t, rec, http.StatusOK)
			var body struct {
				Count int `json:"count"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Count != tt.count {
				t.Errorf("count = %d, ожидалось %d", body.Count, tt.count)
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	api := newTestAPI(t)

	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/wire/search?class=carbon", nil),
		http.StatusBadRequest, "MISSING_FILTER")
	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/welders/search", nil),
		http.StatusBadRequest, "MISSING_FILTER")
	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/wire/search?class=copper&method=MP&diameter=1-2", nil),
		http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/wire/search?class=carbon&method=MP&diameter=abc", nil),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestBuildReport(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/welders/report?method=MP", nil)
	expectStatus(t, rec, http.StatusOK)
	m := decodeMutation(t, rec)
	var table service.Table
	if err := json.Unmarshal(m.Data, &table); err != nil {
		t.Fatal(err)
	}
	if table.Count != 2 || len(table.Rows) != 2 {
		t.Errorf("count = %d, строк %d, ожидалось 2", table.Count, len(table.Rows))
	}
	if !strings.HasSuffix(table.FileName, ".pdf") {
		t.Errorf("fileName = %q, ожидалось расширение .pdf", table.FileName)
	}

	expectError(t, api.do(t, http.MethodGet, "/api/v1/catalog/techprocess/report?method=RD", nil),
		http.StatusNotFound, "EMPTY_EXPORT")
}

func TestDeleteWire(t *testing.T) {
	api := newTestAPI(t)

	expectError(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1", nil),
		http.StatusConflict, "CONFIRMATION_REQUIRED")
	if got := api.catalog.Counts().Wire; got != 3 {
		t.Fatalf("без подтверждения Wire = %d, ожидалось 3", got)
	}

	rec := api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1?confirm=true", nil)
	expectStatus(t, rec, http.StatusOK)
	m := decodeMutation(t, rec)
	if m.Notification.Message != "Запись удалена" || m.Notification.Severity != notify.SeveritySuccess {
		t.Errorf("уведомление = %+v", *m.Notification)
	}
	if got := api.catalog.Counts().Wire; got != 2 {
		t.Errorf("Wire = %d, ожидалось 2", got)
	}

	expectError(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/999?confirm=true", nil),
		http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/abc?confirm=true", nil),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestDeleteRecord(t *testing.T) {
	api := newTestAPI(t)
	target := "/api/v1/catalog/welders/" + url.PathEscape(mpWelders) + "/1?confirm=true"

	rec := api.do(t, http.MethodDelete, target, nil)
	expectStatus(t, rec, http.StatusOK)
	if m := decodeMutation(t, rec); m.Notification.Message != "Сварщик удален" {
		t.Errorf("уведомление = %q", m.Notification.Message)
	}
	if got := api.catalog.Counts().Welders; got != 1 {
		t.Errorf("Welders = %d, ожидалось 1", got)
	}

	expectError(t, api.do(t, http.MethodDelete, target, nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodDelete, "/api/v1/catalog/welders/x/-1?confirm=true", nil),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestExportImport(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/export", nil)
	expectStatus(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "all_data_export_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := rec.Body.Bytes()

	// Удаляем запись, затем восстанавливаем выгрузкой
	expectStatus(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1?confirm=true", nil), http.StatusOK)

	expectError(t, api.do(t, http.MethodPost, "/api/v1/import", exported),
		http.StatusConflict, "CONFIRMATION_REQUIRED")
	rec = api.do(t, http.MethodPost, "/api/v1/import?confirm=true", exported)
	expectStatus(t, rec, http.StatusOK)
	if m := decodeMutation(t, rec); m.Notification.Message != "Все данные успешно импортированы" {
		t.Errorf("уведомление = %q", m.Notification.Message)
	}
	if got := api.catalog.Counts().Wire; got != 3 {
		t.Errorf("после импорта Wire = %d, ожидалось 3", got)
	}

	expectError(t, api.do(t, http.MethodPost, "/api/v1/import?confirm=true", []byte(`{"other":1}`)),
		http.StatusUnprocessableEntity, "INVALID_FORMAT")
}

func TestExportCategory(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/export/techprocess", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-Record-Count"); got != "1" {
		t.Errorf("X-Record-Count = %q, ожидалось 1", got)
	}

	// Копия выгрузки сохраняется в архив
	rec = api.do(t, http.MethodGet, "/api/v1/files?dir=exports/", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "techprocess_data_") {
		t.Errorf("выгрузка не найдена в архиве: %s", rec.Body.String())
	}
}

func TestFiles(t *testing.T) {
	api := newTestAPI(t)
	target := "/api/v1/files/content?path=" + url.QueryEscape("notes/a.json")

	expectStatus(t, api.do(t, http.MethodPut, target, []byte(`{"a":1}`)), http.StatusCreated)

	rec := api.do(t, http.MethodGet, target, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Body.String(); got != `{"a":1}` {
		t.Errorf("содержимое = %q", got)
	}

	expectError(t, api.do(t, http.MethodPut, target, []byte(`not json`)), http.StatusBadRequest, "VALIDATION_ERROR")
	expectStatus(t, api.do(t, http.MethodDelete, target, nil), http.StatusNoContent)
	expectError(t, api.do(t, http.MethodGet, target, nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodGet, "/api/v1/files/content", nil), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestBackupsFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/backups", []byte(`{"description":"Перед чисткой"}`))
	expectStatus(t, rec, http.StatusCreated)
	m := decodeMutation(t, rec)
	var info model.SnapshotInfo
	if err := json.Unmarshal(m.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.Description != "Перед чисткой" || info.TotalRecords != 7 {
		t.Errorf("info = %+v", info)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/backups", nil)
	expectStatus(t, rec, http.StatusOK)
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 {
		t.Errorf("total = %d, ожидалась 1", list.Total)
	}

	expectStatus(t, api.do(t, http.MethodGet, "/api/v1/backups/"+info.ID, nil), http.StatusOK)

	rec = api.do(t, http.MethodGet, "/api/v1/backups/"+info.ID+"/download", nil)
	expectStatus(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "backup_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	file := rec.Body.Bytes()

	expectStatus(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1?confirm=true", nil), http.StatusOK)

	expectError(t, api.do(t, http.MethodPost, "/api/v1/backups/"+info.ID+"/restore", nil),
		http.StatusConflict, "CONFIRMATION_REQUIRED")
	rec = api.do(t, http.MethodPost, "/api/v1/backups/"+info.ID+"/restore?confirm=true", nil)
	expectStatus(t, rec, http.StatusOK)
	if m := decodeMutation(t, rec); m.Notification.Message != "Данные успешно восстановлены" {
		t.Errorf("уведомление = %q", m.Notification.Message)
	}
	if got := api.catalog.Counts().Wire; got != 3 {
		t.Errorf("после восстановления Wire = %d, ожидалось 3", got)
	}

	expectStatus(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1?confirm=true", nil), http.StatusOK)
	rec = api.do(t, http.MethodPost, "/api/v1/backups/restore-file?confirm=true&name=backup.json", file)
	expectStatus(t, rec, http.StatusOK)
	if got := api.catalog.Counts().Wire; got != 3 {
		t.Errorf("после восстановления из файла Wire = %d, ожидалось 3", got)
	}

	rec = api.do(t, http.MethodDelete, "/api/v1/backups/"+info.ID+"?confirm=true", nil)
	expectStatus(t, rec, http.StatusOK)
	if len(api.backups.List()) != 0 {
		t.Error("резервная копия не удалена")
	}
}

func TestBackups_Errors(t *testing.T) {
	api := newTestAPI(t)

	expectError(t, api.do(t, http.MethodGet, "/api/v1/backups/missing", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodGet, "/api/v1/backups/missing/download", nil), http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodPost, "/api/v1/backups/missing/restore?confirm=true", nil),
		http.StatusNotFound, "NOT_FOUND")
	expectError(t, api.do(t, http.MethodPost, "/api/v1/backups", []byte(`{`)), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, api.do(t, http.MethodPost, "/api/v1/backups/restore-file?confirm=true", []byte(`{"wireData":[]}`)),
		http.StatusUnprocessableEntity, "INVALID_FORMAT")
	expectError(t, api.do(t, http.MethodPost, "/api/v1/backups/restore-file?confirm=true", []byte(`{oops`)),
		http.StatusUnprocessableEntity, "INVALID_FORMAT")
}

func TestListCommits(t *testing.T) {
	api := newTestAPI(t)

	expectStatus(t, api.do(t, http.MethodPost, "/api/v1/backups", nil), http.StatusCreated)
	expectStatus(t, api.do(t, http.MethodDelete, "/api/v1/catalog/wire/1?confirm=true", nil), http.StatusOK)

	rec := api.do(t, http.MethodGet, "/api/v1/commits", nil)
	expectStatus(t, rec, http.StatusOK)
	var body struct {
		Items []model.Commit `json:"items"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 {
		t.Fatalf("total = %d, ожидалось 2", body.Total)
	}
	if !strings.HasPrefix(body.Items[0].Message, "Удаление записи проволоки") {
		t.Errorf("последний коммит = %q", body.Items[0].Message)
	}
}

func TestReloadCatalog(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/catalog/reload", nil)
	expectStatus(t, rec, http.StatusOK)
	m := decodeMutation(t, rec)
	// Часть ресурсов в наборе отсутствует: загрузка частичная
	if m.Notification.Severity != notify.SeverityWarning {
		t.Errorf("severity = %q, ожидалось warning", m.Notification.Severity)
	}
	var report struct {
		Counts model.Counts `json:"counts"`
		Errors []string     `json:"errors"`
	}
	if err := json.Unmarshal(m.Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Counts.Wire != 3 || len(report.Errors) == 0 {
		t.Errorf("report = %+v", report)
	}

	expectStatus(t, api.do(t, http.MethodPost, "/api/v1/catalog/reload?category=welders", nil), http.StatusOK)
	expectError(t, api.do(t, http.MethodPost, "/api/v1/catalog/reload?category=pipes", nil),
		http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestGetStats(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/stats", nil)
	expectStatus(t, rec, http.StatusOK)
	var body struct {
		LoadedAt string       `json:"loadedAt"`
		Counts   model.Counts `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := model.Counts{Wire: 3, Welders: 2, Specialists: 1, Techprocess: 1}
	if diff := cmp.Diff(want, body.Counts); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
	if body.LoadedAt == "" {
		t.Error("loadedAt пустой")
	}
}
