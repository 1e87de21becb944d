// Пакет app — сборка инфраструктуры по конфигурации: хранилище и источник данных.
// Общая для сервера и CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/weldregistry/internal/config"
	"github.com/bigkaa/weldregistry/internal/database"
	"github.com/bigkaa/weldregistry/internal/source"
	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

// Storage — открытое хранилище и, для бэкенда postgres, пул соединений.
type Storage struct {
	Store kv.Store
	// Pool — nil для всех бэкендов, кроме postgres.
	Pool *pgxpool.Pool
}

// Close закрывает хранилище и пул.
func (s *Storage) Close() error {
	err := s.Store.Close()
	if s.Pool != nil {
		s.Pool.Close()
	}
	return err
}

// OpenStorage открывает KV-хранилище по WR_KV_BACKEND.
// Для postgres сначала применяются миграции, затем создаётся пул.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	backend, err := kv.ParseBackend(cfg.KVBackend)
	if err != nil {
		return nil, err
	}

	opts := kv.Options{
		Backend: backend,
		Path:    cfg.KVPath,
		Redis: kv.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisNamespace,
		},
		S3: kv.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
			Prefix:    cfg.S3Prefix,
		},
	}

	var pool *pgxpool.Pool
	if backend == kv.BackendPostgres {
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts.Postgres = pool
	}

	store, err := kv.Open(ctx, opts)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("хранилище %s: %w", backend, err)
	}

	logger.Info("Хранилище открыто",
		slog.String("backend", string(backend)),
		slog.String("path", cfg.KVPath),
	)
	return &Storage{Store: store, Pool: pool}, nil
}

// NewFetcher создаёт источник data_json (HTTP или каталог) с LRU-кэшем.
func NewFetcher(cfg *config.Config, logger *slog.Logger) source.Fetcher {
	var fetcher source.Fetcher
	if cfg.SourceURL != "" {
		fetcher = source.NewHTTPFetcher(cfg.SourceURL, cfg.SourceTimeout, logger)
		logger.Info("Источник данных: HTTP", slog.String("url", cfg.SourceURL))
	} else {
		fetcher = source.NewDirFetcher(cfg.SourceDir)
		logger.Info("Источник данных: каталог", slog.String("dir", cfg.SourceDir))
	}
	if cfg.SourceCacheSize > 0 {
		fetcher = source.NewCachedFetcher(fetcher, cfg.SourceCacheSize, cfg.SourceCacheTTL)
	}
	return fetcher
}
