package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/source"
	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

var errStoreDown = errors.New("хранилище недоступно")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// flakyStore — KV в памяти, запись в который можно отключить.
type flakyStore struct {
	*kv.MemoryStore
	mu      sync.Mutex
	failPut bool
	puts    int
	onPut   func(key string) error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: kv.NewMemory()}
}

func (f *flakyStore) setFailPut(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = v
}

// setOnPut задаёт функцию, вызываемую перед каждой записью; её ошибка
// возвращается вместо записи.
func (f *flakyStore) setOnPut(fn func(key string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPut = fn
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failPut
	hook := f.onPut
	f.puts++
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	if hook != nil {
		if err := hook(key); err != nil {
			return err
		}
	}
	return f.MemoryStore.Put(ctx, key, value)
}

// fixtureFiles — ресурсы data_json: RAD отсутствует полностью,
// в ресурсе сварщиков AF нет ключа коллекции.
func fixtureFiles() map[string][]byte {
	return map[string][]byte{
		"mp/data-wire-mp.json": []byte(`{"wireDataMP":[
			{"id":1,"brand":"Св-08Г2С","type":"Проволока","diameter":"1.2","issueDate":"10-01-2024"},
			{"id":2,"brand":"Св-08Г2С","type":"Проволока","diameter":"1.2"},
			{"id":3,"brand":"Св-04Х19Н9","type":"Проволока","diameter":"1,0"}
		]}`),
		"af/data-wire-af.json": []byte(`{"wireDataAF":[
			{"id":10,"brand":"Св-08ГА","type":"Проволока","diameter":"3.0"},
			{"id":11,"brand":"Св-08Г2С","type":"Проволока","method":"MP","diameter":"1.2"}
		]}`),
		"rd/data-wire-rd.json": []byte(`{"wireDataRD":[
			{"id":20,"brand":"УОНИИ-13/55","type":"Электроды","diameter":"3.0"}
		]}`),
		"mp/data-welders-mp.json": []byte(`{"weldersMP":[
			{"fio":"Иванов И.И.","stamp":"A1","validUntil":"01-01-2030"},
			{"fio":"Петров П.П.","stamp":"A2","validUntil":"01-01-2020"}
		]}`),
		"af/data-welders-af.json": []byte(`{"other":[]}`),
		"rd/data-welders-rd.json": []byte(`{"weldersRD":[{"fio":"Сидоров С.С.","stamp":"B1"}]}`),
		"data-specialists.json": []byte(`{
			"Иванов И.И.":[{"cert":"C1","group":"III уровень","validUntil":"01-01-2030"},{"cert":"C2"}],
			"Петров П.П.":[{"cert":"C3"}]
		}`),
		"mp/data-techprocess-mp.json": []byte(`{"techprocessMP":[{"cert":"T1","validUntil":"01-01-2030"}]}`),
	}
}

// testEnv — сервисы поверх общего KV и ресурсов в памяти.
type testEnv struct {
	store    *flakyStore
	fetcher  *source.MemoryFetcher
	recorder *notify.Recorder
	commits  *CommitLog
	catalog  *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		store:    newFlakyStore(),
		fetcher:  source.NewMemoryFetcher(fixtureFiles()),
		recorder: &notify.Recorder{},
	}

	commits, err := NewCommitLog(ctx, env.store, 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}
	env.commits = commits
	env.catalog = NewCatalogService(env.fetcher, commits, env.recorder, testLogger())
	env.catalog.now = fixedNow
	return env
}

// loaded — окружение с загруженными реестрами и очищенными уведомлениями.
func (e *testEnv) loaded(t *testing.T) *testEnv {
	t.Helper()
	if _, err := e.catalog.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() ошибка: %v", err)
	}
	e.recorder.Reset()
	return e
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 30, 45, 0, time.UTC)
}

// lastNotification возвращает последнее уведомление или падает.
func lastNotification(t *testing.T, r *notify.Recorder) notify.Notification {
	t.Helper()
	n, ok := r.Last()
	if !ok {
		t.Fatal("уведомление не отправлено")
	}
	return n
}
