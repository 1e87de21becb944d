// archive.go — архив JSON-файлов поверх KV.
// Файлы хранятся под ключами file_<path>; список файлов каталога —
// выборка ключей по префиксу file_<dir>.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

const (
	// archivePrefix — префикс ключей файлов архива.
	archivePrefix = "file_"
	// ExportsDir — каталог архива для копий выгрузок.
	ExportsDir = "exports/"
)

// ArchiveService — архив файлов.
type ArchiveService struct {
	store  kv.Store
	logger *slog.Logger
}

// NewArchiveService создаёт архив поверх KV.
func NewArchiveService(store kv.Store, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{
		store:  store,
		logger: logger.With(slog.String("component", "archive")),
	}
}

// cleanArchivePath нормализует путь файла; пустой путь и выход
// за корень архива недопустимы.
func cleanArchivePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: пустой путь файла", ErrValidation)
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: недопустимый путь %q", ErrValidation, p)
	}
	return cleaned, nil
}

// Save сохраняет JSON-файл. Содержимое должно быть корректным JSON.
func (a *ArchiveService) Save(ctx context.Context, filePath string, data []byte) error {
	p, err := cleanArchivePath(filePath)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: файл %s не является JSON", ErrValidation, p)
	}
	if err := a.store.Put(ctx, archivePrefix+p, data); err != nil {
		return fmt.Errorf("%w: файл %s: %w", ErrPersistence, p, err)
	}
	a.logger.Debug("Файл сохранён в архив", slog.String("path", p), slog.Int("size", len(data)))
	return nil
}

// Load возвращает содержимое файла или ErrNotFound.
func (a *ArchiveService) Load(ctx context.Context, filePath string) ([]byte, error) {
	p, err := cleanArchivePath(filePath)
	if err != nil {
		return nil, err
	}
	data, err := a.store.Get(ctx, archivePrefix+p)
	if err != nil {
		if isKVNotFound(err) {
			return nil, fmt.Errorf("%w: файл %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: файл %s: %w", ErrPersistence, p, err)
	}
	return data, nil
}

// Delete удаляет файл. Отсутствующий файл ошибкой не считается.
func (a *ArchiveService) Delete(ctx context.Context, filePath string) error {
	p, err := cleanArchivePath(filePath)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, archivePrefix+p); err != nil {
		return fmt.Errorf("%w: файл %s: %w", ErrPersistence, p, err)
	}
	a.logger.Info("Файл удалён из архива", slog.String("path", p))
	return nil
}

// List возвращает отсортированные пути файлов каталога dir.
// Пустой dir — все файлы архива.
func (a *ArchiveService) List(ctx context.Context, dir string) ([]string, error) {
	prefix := archivePrefix + strings.TrimPrefix(dir, "/")
	keys, err := a.store.ListKeysWithPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: список файлов: %w", ErrPersistence, err)
	}
	files := make([]string, len(keys))
	for i, k := range keys {
		files[i] = strings.TrimPrefix(k, archivePrefix)
	}
	return files, nil
}
