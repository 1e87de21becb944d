package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestArchiveService(t *testing.T) {
	store := newFlakyStore()
	archive := NewArchiveService(store, testLogger())
	ctx := context.Background()

	files := map[string]string{
		"wire/data.json":    `[{"id":1}]`,
		"wire/old.json":     `[]`,
		"welders/data.json": `{}`,
	}
	for p, data := range files {
		if err := archive.Save(ctx, p, []byte(data)); err != nil {
			t.Fatalf("Save(%s) ошибка: %v", p, err)
		}
	}

	got, err := archive.Load(ctx, "/wire/data.json")
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if string(got) != `[{"id":1}]` {
		t.Errorf("Load() = %s", got)
	}

	list, err := archive.List(ctx, "wire/")
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if diff := cmp.Diff([]string{"wire/data.json", "wire/old.json"}, list); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}

	if err := archive.Delete(ctx, "wire/old.json"); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := archive.Load(ctx, "wire/old.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(удалённого) ошибка = %v, ожидалась ErrNotFound", err)
	}

	all, err := archive.List(ctx, "")
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(List) = %d, ожидалось 2", len(all))
	}
}

func TestArchiveService_Validation(t *testing.T) {
	archive := NewArchiveService(newFlakyStore(), testLogger())
	ctx := context.Background()

	if err := archive.Save(ctx, "a.json", []byte(`{broken`)); !errors.Is(err, ErrValidation) {
		t.Errorf("Save(не JSON) ошибка = %v, ожидалась ErrValidation", err)
	}
	for _, p := range []string{"", "   ", "/", "../.."} {
		if err := archive.Save(ctx, p, []byte(`{}`)); !errors.Is(err, ErrValidation) {
			t.Errorf("Save(%q) ошибка = %v, ожидалась ErrValidation", p, err)
		}
	}

	if err := archive.Save(ctx, "../escape.json", []byte(`{}`)); err != nil {
		t.Fatalf("Save() ошибка: %v", err)
	}
	list, _ := archive.List(ctx, "")
	if diff := cmp.Diff([]string{"escape.json"}, list); diff != "" {
		t.Errorf("путь не нормализован (-want +got):\n%s", diff)
	}
}

func TestArchiveService_PersistenceFailure(t *testing.T) {
	store := newFlakyStore()
	store.setFailPut(true)
	archive := NewArchiveService(store, testLogger())

	if err := archive.Save(context.Background(), "a.json", []byte(`{}`)); !errors.Is(err, ErrPersistence) {
		t.Errorf("Save() ошибка = %v, ожидалась ErrPersistence", err)
	}
}
