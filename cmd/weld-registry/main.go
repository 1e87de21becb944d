// Точка входа weld-registry — сервиса реестра сварочного производства.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/weldregistry/internal/api/handlers"
	"github.com/bigkaa/weldregistry/internal/api/middleware"
	"github.com/bigkaa/weldregistry/internal/api/openapi"
	"github.com/bigkaa/weldregistry/internal/app"
	"github.com/bigkaa/weldregistry/internal/config"
	"github.com/bigkaa/weldregistry/internal/database"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/server"
	"github.com/bigkaa/weldregistry/internal/service"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Weld Registry запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("kv_backend", cfg.KVBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Инициализация компонентов ---

	// 1. Хранилище резервных копий, журнала и архива
	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Warn("Ошибка закрытия хранилища", slog.String("error", err.Error()))
		}
	}()

	// 2. Источник data_json
	fetcher := app.NewFetcher(cfg, logger)

	// 3. Сервисы
	notifier := notify.NewDispatcher(notify.NewLogNotifier(logger))

	commits, err := service.NewCommitLog(ctx, storage.Store, cfg.CommitMax, cfg.CommitAuthor, logger)
	if err != nil {
		logger.Error("Ошибка инициализации журнала изменений", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalog := service.NewCatalogService(fetcher, commits, notifier, logger)
	archive := service.NewArchiveService(storage.Store, logger)
	catalog.SetArchive(archive)

	backups, err := service.NewBackupService(ctx, storage.Store, catalog, commits, notifier, cfg.BackupMax, logger)
	if err != nil {
		logger.Error("Ошибка инициализации реестра резервных копий", slog.String("error", err.Error()))
		os.Exit(1)
	}
	reports := service.NewReportService(catalog, notifier)

	// 4. Начальная загрузка реестров. Недоступный источник не мешает запуску:
	// каталог можно загрузить позже или восстановить из резервной копии.
	if cfg.LoadOnStart {
		if _, err := catalog.LoadAll(ctx); err != nil {
			logger.Warn("Начальная загрузка реестров не выполнена", slog.String("error", err.Error()))
		}
	}

	// 5. topologymetrics — мониторинг зависимостей
	deps := service.DephealthDeps{SourceURL: cfg.SourceURL}
	var storageChecker handlers.ReadinessChecker
	if storage.Pool != nil {
		deps.DB = stdlib.OpenDBFromPool(storage.Pool)
		deps.PGURL = cfg.DatabaseURL()
		storageChecker = database.NewReadinessChecker(storage.Pool)
	}

	var depHealth handlers.DependencyHealth
	if !deps.Empty() {
		dephealthSvc, dhErr := service.NewDephealthService(
			cfg.ServiceID,
			cfg.DephealthGroup,
			deps,
			cfg.DephealthCheckInterval,
			cfg.DephealthIsEntry,
			logger,
		)
		if dhErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dhErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			depHealth = dephealthSvc
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Handlers
	healthHandler := handlers.NewHealthHandler(storageChecker, depHealth, catalog.LoadedAt)
	apiHandler := handlers.NewAPIHandler(healthHandler, handlers.Services{
		Catalog: catalog,
		Backups: backups,
		Commits: commits,
		Reports: reports,
		Archive: archive,
	}, logger)

	// 7. Middleware: метрики, логирование, проверка по OpenAPI
	middlewares := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}
	if cfg.OpenAPIValidation {
		doc, err := openapi.Load(ctx)
		if err != nil {
			logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
			os.Exit(1)
		}
		validator, err := middleware.NewRequestValidator(doc, logger)
		if err != nil {
			logger.Error("Ошибка инициализации проверки запросов", slog.String("error", err.Error()))
			os.Exit(1)
		}
		middlewares = append(middlewares, validator.Middleware())
	}

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Weld Registry остановлен")
}
