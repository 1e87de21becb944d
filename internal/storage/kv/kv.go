// Пакет kv — ключ-значение хранилище для реестра резервных копий,
// журнала изменений и архива выгруженных файлов.
//
// Реализации: memory, file, bolt, sqlite, redis, postgres, s3.
// Все реализации потокобезопасны; Get возвращает копию значения.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound — ключ отсутствует в хранилище.
var ErrNotFound = errors.New("ключ не найден")

// Store — ключ-значение хранилище.
type Store interface {
	// Put записывает значение по ключу (перезаписывает существующее).
	Put(ctx context.Context, key string, value []byte) error
	// Get возвращает значение по ключу или ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete удаляет ключ. Отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, key string) error
	// ListKeysWithPrefix возвращает отсортированные ключи с префиксом.
	ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	// Close освобождает ресурсы хранилища.
	Close() error
}

// Backend — тип хранилища.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendBolt     Backend = "bolt"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendS3       Backend = "s3"
)

// ParseBackend преобразует строку в Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendFile, BackendBolt, BackendSQLite, BackendRedis, BackendPostgres, BackendS3:
		return b, nil
	default:
		return "", fmt.Errorf("недопустимый тип хранилища %q, допустимые: memory, file, bolt, sqlite, redis, postgres, s3", s)
	}
}

func sortedKeys(keys []string) []string {
	sort.Strings(keys)
	return keys
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
