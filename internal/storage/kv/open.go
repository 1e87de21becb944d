// open.go — создание хранилища по типу из конфигурации.
package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Options — параметры создания хранилища.
type Options struct {
	Backend Backend
	// Path — каталог (file) или файл БД (bolt, sqlite).
	Path  string
	Redis RedisOptions
	S3    S3Options
	// Postgres — пул соединений для BackendPostgres (создаётся пакетом database).
	Postgres DBTX
}

// Open создаёт хранилище и оборачивает его метриками.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		store Store
		err   error
	)

	switch opts.Backend {
	case BackendMemory:
		store = NewMemory()
	case BackendFile:
		store, err = NewFile(opts.Path)
	case BackendBolt:
		store, err = openWithDir(opts.Path, func(p string) (Store, error) { return NewBolt(p) })
	case BackendSQLite:
		store, err = openWithDir(opts.Path, func(p string) (Store, error) { return NewSQLite(ctx, p) })
	case BackendRedis:
		store, err = NewRedis(ctx, opts.Redis)
	case BackendS3:
		store, err = NewS3(ctx, opts.S3)
	case BackendPostgres:
		if opts.Postgres == nil {
			return nil, fmt.Errorf("хранилище postgres: не передан пул соединений")
		}
		store = NewPostgres(opts.Postgres)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithMetrics(store, opts.Backend), nil
}

// openWithDir создаёт родительский каталог файла БД перед открытием.
func openWithDir(path string, open func(string) (Store, error)) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}
	return open(path)
}
