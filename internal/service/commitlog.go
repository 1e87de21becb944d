// commitlog.go — журнал изменений реестров.
// Только добавление: новые записи в начало, сверх лимита старые отбрасываются.
// Журнал хранится в KV под ключом commit_registry.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

// CommitRegistryKey — ключ журнала изменений в KV.
const CommitRegistryKey = "commit_registry"

// DefaultCommitSummary — описание изменений по умолчанию.
const DefaultCommitSummary = "Изменения через панель администрирования"

// CommitLog — журнал изменений.
type CommitLog struct {
	mu      sync.Mutex
	store   kv.Store
	max     int
	author  string
	commits []model.Commit
	now     func() time.Time
	logger  *slog.Logger
}

// NewCommitLog создаёт журнал и читает сохранённые записи из KV.
// Отсутствующий или повреждённый журнал заменяется пустым.
func NewCommitLog(ctx context.Context, store kv.Store, maxCommits int, author string, logger *slog.Logger) (*CommitLog, error) {
	l := &CommitLog{
		store:  store,
		max:    maxCommits,
		author: author,
		now:    time.Now,
		logger: logger.With(slog.String("component", "commit_log")),
	}

	commits, err := loadRegistry[model.Commit](ctx, store, CommitRegistryKey, l.logger)
	if err != nil {
		return nil, err
	}
	if len(commits) > l.max {
		commits = commits[:l.max]
	}
	l.commits = commits
	return l, nil
}

// Append добавляет запись в начало журнала и сохраняет журнал.
// При ошибке сохранения журнал в памяти остаётся прежним.
func (l *CommitLog) Append(ctx context.Context, message string, counts *model.Counts) (model.Commit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	commit := model.Commit{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Timestamp: now,
		Message:   message,
		Author:    l.author,
		Changes: model.Changes{
			Timestamp: now,
			Summary:   DefaultCommitSummary,
			Counts:    counts,
		},
	}

	next := make([]model.Commit, 0, len(l.commits)+1)
	next = append(next, commit)
	next = append(next, l.commits...)
	if len(next) > l.max {
		next = next[:l.max]
	}

	if err := saveRegistry(ctx, l.store, CommitRegistryKey, next); err != nil {
		l.logger.Error("Ошибка сохранения журнала изменений",
			slog.String("message", message),
			slog.String("error", err.Error()),
		)
		return model.Commit{}, err
	}

	l.commits = next
	l.logger.Debug("Коммит добавлен", slog.String("id", commit.ID), slog.String("message", message))
	return commit, nil
}

// History возвращает журнал, новые записи первыми.
func (l *CommitLog) History() []model.Commit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Commit(nil), l.commits...)
}

// loadRegistry читает JSON-массив из KV. Отсутствие ключа — пустой список,
// повреждённые данные — пустой список с предупреждением в лог.
func loadRegistry[T any](ctx context.Context, store kv.Store, key string, logger *slog.Logger) ([]T, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		if isKVNotFound(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: чтение %s: %w", ErrPersistence, key, err)
	}

	var items []T
	if err := unmarshalRegistry(data, &items); err != nil {
		logger.Warn("Реестр в хранилище повреждён, используется пустой",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// saveRegistry сохраняет JSON-массив в KV.
func saveRegistry[T any](ctx context.Context, store kv.Store, key string, items []T) error {
	data, err := marshalRegistry(items)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: запись %s: %w", ErrPersistence, key, err)
	}
	return nil
}
