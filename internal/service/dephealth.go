// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Реестр мониторит:
//   - источник data_json — HTTP checker (critical), если источник задан URL
//   - PostgreSQL — SQL checker через pgxpool, если KV хранится в PostgreSQL
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthDeps — отслеживаемые зависимости. Пустые поля не отслеживаются.
type DephealthDeps struct {
	// SourceURL — базовый URL источника data_json
	SourceURL string
	// SourceHealthPath — путь проверки источника (по умолчанию ресурс специалистов)
	SourceHealthPath string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PGURL — URL PostgreSQL (для лейблов, не для подключения)
	PGURL string
}

// Empty — нет ни одной зависимости для мониторинга.
func (d DephealthDeps) Empty() bool {
	return d.SourceURL == "" && d.DB == nil
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(
	serviceID string,
	group string,
	deps DephealthDeps,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, deps, checkInterval, isEntry, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	deps DephealthDeps,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, deps, checkInterval, isEntry, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	deps DephealthDeps,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	common := []dephealth.DependencyOption{
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}
	if isEntry {
		common = append(common, dephealth.WithLabel("isentry", "yes"))
	}

	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	if deps.SourceURL != "" {
		healthPath := deps.SourceHealthPath
		if healthPath == "" {
			healthPath = "/data-specialists.json"
		}
		srcOpts := append([]dephealth.DependencyOption{
			dephealth.FromURL(deps.SourceURL),
			dephealth.WithHTTPHealthPath(healthPath),
		}, common...)
		opts = append(opts, dephealth.HTTP("data-source", srcOpts...))
	}

	if deps.DB != nil {
		pgOpts := append([]dephealth.DependencyOption{dephealth.FromURL(deps.PGURL)}, common...)
		// Connection pool mode: проверка через существующий пул
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(deps.DB)), pgOpts...))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
