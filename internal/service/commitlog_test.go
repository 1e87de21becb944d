package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// TestCommitLog_Cap проверяет, что 51-й коммит вытесняет самый старый.
func TestCommitLog_Cap(t *testing.T) {
	store := newFlakyStore()
	ctx := context.Background()
	log, err := NewCommitLog(ctx, store, 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}

	for i := 1; i <= 51; i++ {
		if _, err := log.Append(ctx, fmt.Sprintf("коммит %d", i), nil); err != nil {
			t.Fatalf("Append(%d) ошибка: %v", i, err)
		}
	}

	history := log.History()
	if len(history) != 50 {
		t.Fatalf("len(History) = %d, ожидалось 50", len(history))
	}
	if history[0].Message != "коммит 51" || history[49].Message != "коммит 2" {
		t.Errorf("первый %q, последний %q", history[0].Message, history[49].Message)
	}
	if history[0].Changes.Summary != DefaultCommitSummary {
		t.Errorf("Summary = %q", history[0].Changes.Summary)
	}

	reopened, err := NewCommitLog(ctx, store, 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}
	if diff := cmp.Diff(history, reopened.History()); diff != "" {
		t.Errorf("журнал после перечитывания (-want +got):\n%s", diff)
	}
}

func TestCommitLog_PersistenceFailure(t *testing.T) {
	store := newFlakyStore()
	ctx := context.Background()
	log, err := NewCommitLog(ctx, store, 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}
	counts := model.Counts{Wire: 1}
	if _, err := log.Append(ctx, "первый", &counts); err != nil {
		t.Fatalf("Append() ошибка: %v", err)
	}

	store.setFailPut(true)
	if _, err := log.Append(ctx, "второй", nil); !errors.Is(err, ErrPersistence) {
		t.Fatalf("Append() ошибка = %v, ожидалась ErrPersistence", err)
	}

	history := log.History()
	if len(history) != 1 || history[0].Message != "первый" {
		t.Errorf("журнал = %+v", history)
	}
	if history[0].Changes.Counts == nil || history[0].Changes.Counts.Wire != 1 {
		t.Errorf("Counts = %+v", history[0].Changes.Counts)
	}
}

func TestCommitLog_HistoryIsCopy(t *testing.T) {
	log, err := NewCommitLog(context.Background(), newFlakyStore(), 50, "Администратор", testLogger())
	if err != nil {
		t.Fatalf("NewCommitLog() ошибка: %v", err)
	}
	if _, err := log.Append(context.Background(), "исходный", nil); err != nil {
		t.Fatalf("Append() ошибка: %v", err)
	}

	h := log.History()
	h[0].Message = "изменён"
	if log.History()[0].Message != "исходный" {
		t.Error("History() возвращает не копию")
	}
}
