// backup.go — реестр резервных копий (Backup Registry).
//
// Копии хранятся newest-first в KV под ключом backup_registry,
// не более max штук: при превышении старые вытесняются.
// Все изменяющие операции сериализованы мьютексом сервиса. Если
// сохранение в KV не удалось, состояние в памяти остаётся прежним.
// Между процессами действует правило «последняя запись побеждает».
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/weldregistry/internal/domain/codec"
	"github.com/bigkaa/weldregistry/internal/domain/lifecycle"
	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

// BackupRegistryKey — ключ реестра копий в KV.
const BackupRegistryKey = "backup_registry"

// DefaultBackupDescription — описание копии, если оно не задано.
const DefaultBackupDescription = "Автоматическое создание резервной копии"

// ExternalSnapshotID — идентификатор копии, загруженной из файла.
const ExternalSnapshotID = "external"

var (
	backupOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wr_backup_operations_total",
			Help: "Количество операций с резервными копиями",
		},
		[]string{"op", "result"},
	)

	backupsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wr_backups_stored",
			Help: "Количество хранимых резервных копий",
		},
	)
)

// BackupService — реестр резервных копий.
type BackupService struct {
	mu        sync.Mutex
	snapshots []model.Snapshot

	store    kv.Store
	catalog  *CatalogService
	commits  *CommitLog
	notifier notify.Notifier
	max      int
	now      func() time.Time
	logger   *slog.Logger
}

// NewBackupService создаёт реестр и читает сохранённые копии из KV.
func NewBackupService(
	ctx context.Context,
	store kv.Store,
	catalog *CatalogService,
	commits *CommitLog,
	notifier notify.Notifier,
	maxBackups int,
	logger *slog.Logger,
) (*BackupService, error) {
	s := &BackupService{
		store:    store,
		catalog:  catalog,
		commits:  commits,
		notifier: notifier,
		max:      maxBackups,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "backup")),
	}

	snapshots, err := loadRegistry[model.Snapshot](ctx, store, BackupRegistryKey, s.logger)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		snapshots[i].State = model.SnapshotActive
		snapshots[i].Data.Normalize()
	}
	if len(snapshots) > s.max {
		snapshots = snapshots[:s.max]
	}
	s.snapshots = snapshots
	backupsStored.Set(float64(len(snapshots)))

	s.logger.Info("Реестр резервных копий загружен", slog.Int("count", len(snapshots)))
	return s, nil
}

// Create создаёт копию текущих реестров, добавляет её в начало
// реестра и журналирует операцию. Копии сверх лимита вытесняются.
func (s *BackupService) Create(ctx context.Context, description string) (model.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if description == "" {
		description = DefaultBackupDescription
	}

	now := s.now().UTC()
	doc := codec.Encode(s.catalog.Dataset(), now)
	data := doc.Dataset()

	snap, err := lifecycle.Transition(model.Snapshot{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Timestamp:   now,
		Description: description,
		Version:     doc.Metadata.Version,
		State:       model.SnapshotCreated,
		Data:        data,
		Metadata:    data.Counts(),
	}, model.SnapshotActive)
	if err != nil {
		return model.SnapshotInfo{}, s.fail(ctx, "create", "Ошибка создания резервной копии", err)
	}

	prev := s.snapshots
	next := make([]model.Snapshot, 0, len(prev)+1)
	next = append(next, snap)
	next = append(next, prev...)
	var evicted []model.Snapshot
	if len(next) > s.max {
		evicted = next[s.max:]
		next = next[:s.max]
	}

	if err := saveRegistry(ctx, s.store, BackupRegistryKey, next); err != nil {
		return model.SnapshotInfo{}, s.fail(ctx, "create", "Ошибка создания резервной копии", err)
	}

	counts := snap.Metadata
	if _, err := s.commits.Append(ctx, "Создана резервная копия: "+description, &counts); err != nil {
		// Копия без записи в журнале не публикуется
		if rbErr := saveRegistry(ctx, s.store, BackupRegistryKey, prev); rbErr != nil {
			s.logger.Error("Не удалось откатить реестр копий", slog.String("error", rbErr.Error()))
		}
		return model.SnapshotInfo{}, s.fail(ctx, "create", "Ошибка создания резервной копии", err)
	}

	s.snapshots = next
	backupsStored.Set(float64(len(next)))
	for _, e := range evicted {
		if _, err := lifecycle.Transition(e, model.SnapshotEvicted); err == nil {
			s.logger.Info("Резервная копия вытеснена по лимиту",
				slog.String("id", e.ID),
				slog.Int("max", s.max),
			)
		}
	}

	s.logger.Info("Резервная копия создана",
		slog.String("id", snap.ID),
		slog.String("description", description),
		slog.Int("records", counts.Total()),
	)
	backupOperations.WithLabelValues("create", "ok").Inc()
	s.notifier.Notify(ctx, "Резервная копия создана", notify.SeveritySuccess)
	return snap.Info(), nil
}

// List возвращает сведения о копиях, новые первыми.
func (s *BackupService) List() []model.SnapshotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]model.SnapshotInfo, len(s.snapshots))
	for i, snap := range s.snapshots {
		infos[i] = snap.Info()
	}
	return infos
}

// Get возвращает копию с данными.
func (s *BackupService) Get(id string) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Snapshot{}, fmt.Errorf("%w: резервная копия %s", ErrNotFound, id)
	}
	snap := s.snapshots[idx]
	snap.Data = snap.Data.Clone()
	return snap, nil
}

func (s *BackupService) indexOf(id string) int {
	for i := range s.snapshots {
		if s.snapshots[i].ID == id {
			return i
		}
	}
	return -1
}

// Restore полностью заменяет реестры данными копии.
// Подтверждение операции — забота вызывающего кода.
func (s *BackupService) Restore(ctx context.Context, id string) (model.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.SnapshotInfo{}, s.fail(ctx, "restore", "Ошибка восстановления из резервной копии",
			fmt.Errorf("%w: резервная копия %s", ErrNotFound, id))
	}
	snap := s.snapshots[idx]

	if err := s.replace(ctx, snap.Data, "Восстановление из резервной копии: "+snap.Description); err != nil {
		return model.SnapshotInfo{}, s.fail(ctx, "restore", "Ошибка восстановления из резервной копии", err)
	}

	s.logger.Info("Данные восстановлены из резервной копии",
		slog.String("id", snap.ID),
		slog.String("description", snap.Description),
	)
	backupOperations.WithLabelValues("restore", "ok").Inc()
	s.notifier.Notify(ctx, "Данные успешно восстановлены", notify.SeveritySuccess)
	return snap.Info(), nil
}

// replace заменяет реестры и журналирует замену. Удаления записей,
// идущие параллельно, ждут окончания замены и применяются к её результату.
func (s *BackupService) replace(ctx context.Context, data model.Dataset, message string) error {
	return s.catalog.ReplaceAllLogged(ctx, data, message)
}

// Delete удаляет копию в любой позиции реестра. Коммит не создаётся.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return s.fail(ctx, "delete", "Ошибка удаления резервной копии",
			fmt.Errorf("%w: резервная копия %s", ErrNotFound, id))
	}

	next := make([]model.Snapshot, 0, len(s.snapshots)-1)
	next = append(next, s.snapshots[:idx]...)
	next = append(next, s.snapshots[idx+1:]...)

	if err := saveRegistry(ctx, s.store, BackupRegistryKey, next); err != nil {
		return s.fail(ctx, "delete", "Ошибка удаления резервной копии", err)
	}

	deleted, _ := lifecycle.Transition(s.snapshots[idx], model.SnapshotDeleted)
	s.snapshots = next
	backupsStored.Set(float64(len(next)))

	s.logger.Info("Резервная копия удалена", slog.String("id", deleted.ID), slog.String("state", string(deleted.State)))
	backupOperations.WithLabelValues("delete", "ok").Inc()
	s.notifier.Notify(ctx, "Резервная копия удалена", notify.SeveritySuccess)
	return nil
}

// ImportFromExternal разбирает документ резервной копии из файла.
// Результат не добавляется в реестр; невалидный документ ничего не меняет.
func (s *BackupService) ImportFromExternal(data []byte) (model.Snapshot, error) {
	ds, meta, err := codec.Decode(data)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{
		ID:          ExternalSnapshotID,
		Timestamp:   meta.Timestamp,
		Description: "Резервная копия из файла",
		Version:     meta.Version,
		State:       model.SnapshotCreated,
		Data:        ds,
		Metadata:    ds.Counts(),
	}, nil
}

// RestoreFromExternal восстанавливает реестры из файла резервной копии.
func (s *BackupService) RestoreFromExternal(ctx context.Context, data []byte, fileName string) (model.SnapshotInfo, error) {
	snap, err := s.ImportFromExternal(data)
	if err != nil {
		return model.SnapshotInfo{}, s.fail(ctx, "restore_file", "Ошибка загрузки файла резервной копии", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fileName == "" {
		fileName = "без имени"
	}
	if err := s.replace(ctx, snap.Data, "Восстановление из файла: "+fileName); err != nil {
		return model.SnapshotInfo{}, s.fail(ctx, "restore_file", "Ошибка загрузки файла резервной копии", err)
	}

	s.logger.Info("Данные восстановлены из файла",
		slog.String("file", fileName),
		slog.Int("records", snap.Metadata.Total()),
	)
	backupOperations.WithLabelValues("restore_file", "ok").Inc()
	s.notifier.Notify(ctx, "Данные восстановлены из файла", notify.SeveritySuccess)
	return snap.Info(), nil
}

// ExportToExternal сериализует копию для скачивания:
// backup_<ГГГГ-ММ-ДД>_<ЧЧ-ММ-СС>.json. Состояние не меняется.
func (s *BackupService) ExportToExternal(snap model.Snapshot) (ExportFile, error) {
	data, err := codec.Marshal(codec.Encode(snap.Data, snap.Timestamp))
	if err != nil {
		return ExportFile{}, err
	}
	return ExportFile{
		Name:    codec.BackupFileName("backup", snap.Timestamp),
		Data:    data,
		Records: snap.Metadata.Total(),
	}, nil
}

// Export находит копию и сериализует её для скачивания.
func (s *BackupService) Export(ctx context.Context, id string) (ExportFile, error) {
	snap, err := s.Get(id)
	if err != nil {
		return ExportFile{}, s.fail(ctx, "export", "Ошибка сохранения файла резервной копии", err)
	}
	file, err := s.ExportToExternal(snap)
	if err != nil {
		return ExportFile{}, s.fail(ctx, "export", "Ошибка сохранения файла резервной копии", err)
	}

	s.logger.Info("Резервная копия выгружена", slog.String("id", snap.ID), slog.String("file", file.Name))
	backupOperations.WithLabelValues("export", "ok").Inc()
	s.notifier.Notify(ctx, "Резервная копия сохранена как "+file.Name, notify.SeveritySuccess)
	return file, nil
}

// fail журналирует ошибку операции, отправляет уведомление и возвращает err.
func (s *BackupService) fail(ctx context.Context, op, message string, err error) error {
	level := slog.LevelError
	if errors.Is(err, ErrNotFound) || errors.Is(err, codec.ErrInvalidFormat) || errors.Is(err, codec.ErrParse) {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, message, slog.String("op", op), slog.String("error", err.Error()))
	backupOperations.WithLabelValues(op, "error").Inc()
	s.notifier.Notify(ctx, message, notify.SeverityError)
	return err
}
