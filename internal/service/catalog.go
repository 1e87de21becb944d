// catalog.go — хранилище записей четырёх реестров (Record Store).
// Загрузка из источника data_json, запросы, удаление записей,
// импорт и выгрузка. Состояние хранится в памяти; замена всегда
// атомарна: читатели видят либо прежний, либо новый набор целиком.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/weldregistry/internal/domain/codec"
	"github.com/bigkaa/weldregistry/internal/domain/filter"
	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/notify"
	"github.com/bigkaa/weldregistry/internal/source"
)

// errMissingKey — в ресурсе нет ожидаемой коллекции.
var errMissingKey = errors.New("в ресурсе нет ключа коллекции")

// LoadReport — итог загрузки реестров из источника.
type LoadReport struct {
	Categories []model.Category `json:"categories"`
	Counts     model.Counts     `json:"counts"`
	// Duplicates — число отброшенных дублей проволоки.
	Duplicates int          `json:"duplicates"`
	Errors     []*LoadError `json:"-"`
	LoadedAt   time.Time    `json:"loadedAt"`
}

// Partial — часть ресурсов была недоступна.
func (r LoadReport) Partial() bool {
	return len(r.Errors) > 0
}

// SourceStatus — доступность одного ресурса источника.
type SourceStatus struct {
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// ExportFile — выгруженный файл.
type ExportFile struct {
	Name    string
	Data    []byte
	Records int
}

// CatalogService — реестры в памяти и операции над ними.
type CatalogService struct {
	mu       sync.RWMutex
	data     model.Dataset
	loadedAt time.Time

	fetcher  source.Fetcher
	commits  *CommitLog
	archive  *ArchiveService
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewCatalogService создаёт сервис с пустыми реестрами.
// commits может быть nil: тогда изменения не журналируются.
func NewCatalogService(
	fetcher source.Fetcher,
	commits *CommitLog,
	notifier notify.Notifier,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		data:     model.NewDataset(),
		fetcher:  fetcher,
		commits:  commits,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// SetArchive подключает архив выгруженных файлов.
// Если nil — выгрузки в архив не сохраняются.
func (s *CatalogService) SetArchive(archive *ArchiveService) {
	s.archive = archive
}

// LoadAll загружает все четыре реестра и атомарно заменяет текущие.
// Недоступные ресурсы не прерывают загрузку и попадают в LoadReport.Errors.
// Ошибка возвращается только при отмене контекста.
func (s *CatalogService) LoadAll(ctx context.Context) (LoadReport, error) {
	ds, report, err := s.load(ctx, model.Categories)
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка загрузки данных. Проверьте доступность источника.", notify.SeverityError)
		return LoadReport{}, err
	}

	s.mu.Lock()
	s.data = ds
	s.loadedAt = report.LoadedAt
	s.mu.Unlock()

	s.notifyLoaded(ctx, report)
	return report, nil
}

// Load загружает один реестр и заменяет только его.
func (s *CatalogService) Load(ctx context.Context, cat model.Category) (LoadReport, error) {
	ds, report, err := s.load(ctx, []model.Category{cat})
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка загрузки данных. Проверьте доступность источника.", notify.SeverityError)
		return LoadReport{}, err
	}

	s.mu.Lock()
	next := s.data.Clone()
	replaceCategories(&next, ds, report.Categories)
	s.data = next
	s.loadedAt = report.LoadedAt
	s.mu.Unlock()

	s.notifyLoaded(ctx, report)
	return report, nil
}

func (s *CatalogService) notifyLoaded(ctx context.Context, report LoadReport) {
	msg := fmt.Sprintf("Данные загружены: %d проволоки, %d сварщиков", report.Counts.Wire, report.Counts.Welders)
	if report.Partial() {
		s.notifier.Notify(ctx,
			fmt.Sprintf("%s (недоступно ресурсов: %d)", msg, len(report.Errors)),
			notify.SeverityWarning)
		return
	}
	s.notifier.Notify(ctx, msg, notify.SeveritySuccess)
}

// load получает ресурсы категорий параллельно и собирает набор
// в фиксированном порядке методов.
func (s *CatalogService) load(ctx context.Context, cats []model.Category) (model.Dataset, LoadReport, error) {
	start := time.Now()
	report := LoadReport{Categories: cats}
	ds := model.NewDataset()

	results := make([][]sourceResult, len(cats))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			res, err := s.fetchCategory(gctx, cat)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Загрузка реестров прервана", slog.String("error", err.Error()))
		return model.Dataset{}, LoadReport{}, err
	}

	for i, cat := range cats {
		var errs []*LoadError
		switch cat {
		case model.CategoryWire:
			var dups int
			ds.Wire, dups, errs = assembleWire(results[i])
			report.Duplicates += dups
		case model.CategoryWelders:
			ds.Welders, errs = assembleGrouped(results[i], cat, model.Method.WelderCategory,
				func(r *model.WelderRecord, group string) { r.Category = group })
		case model.CategoryTechprocess:
			ds.Techprocess, errs = assembleGrouped(results[i], cat, model.Method.TechprocessCategory,
				func(r *model.TechprocessRecord, group string) { r.Category = group })
		case model.CategorySpecialists:
			ds.Specialists, errs = assembleSpecialists(results[i])
		}
		report.Errors = append(report.Errors, errs...)
	}
	ds.Normalize()

	for _, le := range report.Errors {
		s.logger.Warn("Ресурс недоступен, считается пустым",
			slog.String("category", string(le.Category)),
			slog.String("path", le.Path),
			slog.String("error", le.Err.Error()),
		)
	}

	report.Counts = ds.Counts()
	report.LoadedAt = s.now().UTC()
	s.logger.Info("Реестры загружены",
		slog.Int("wire", report.Counts.Wire),
		slog.Int("welders", report.Counts.Welders),
		slog.Int("specialists", report.Counts.Specialists),
		slog.Int("techprocess", report.Counts.Techprocess),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return ds, report, nil
}

// sourceResult — результат получения одного ресурса.
type sourceResult struct {
	category model.Category
	method   model.Method
	path     string
	data     []byte
	err      error
}

// fetchCategory получает все ресурсы категории. Ошибки отдельных
// ресурсов сохраняются в результатах; ошибкой считается только отмена контекста.
func (s *CatalogService) fetchCategory(ctx context.Context, cat model.Category) ([]sourceResult, error) {
	methods := model.Methods
	if cat == model.CategorySpecialists {
		methods = []model.Method{""}
	}

	results := make([]sourceResult, len(methods))
	var g errgroup.Group
	for i, m := range methods {
		g.Go(func() error {
			path := source.Path(cat, m)
			data, err := s.fetcher.Fetch(ctx, path)
			results[i] = sourceResult{category: cat, method: m, path: path, data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("загрузка %s прервана: %w", cat, err)
	}
	return results, nil
}

func (r sourceResult) loadError(err error) *LoadError {
	return &LoadError{Category: r.category, Path: r.path, Err: err}
}

// extractList извлекает массив записей по ключу коллекции.
func extractList[T any](data []byte, key string) ([]T, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("ошибка разбора JSON: %w", err)
	}
	raw, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", errMissingKey, key)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("коллекция %q: %w", key, err)
	}
	return items, nil
}

// assembleWire собирает проволоку по методам. Метод записи по умолчанию
// берётся из ресурса; дубли удаляются внутри ресурса и по всем ресурсам.
func assembleWire(results []sourceResult) ([]model.WireRecord, int, []*LoadError) {
	var (
		all  []model.WireRecord
		errs []*LoadError
		raw  int
	)
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.loadError(r.err))
			continue
		}
		recs, err := extractList[model.WireRecord](r.data, source.Key(model.CategoryWire, r.method))
		if err != nil {
			errs = append(errs, r.loadError(err))
			continue
		}
		raw += len(recs)
		for i := range recs {
			if recs[i].Method == "" {
				recs[i].Method = r.method
			}
		}
		all = append(all, DedupWire(recs)...)
	}
	out := DedupWire(all)
	return out, raw - len(out), errs
}

// assembleGrouped собирает сварщиков или техпроцессы: ресурс метода
// становится группой с именем категории метода.
func assembleGrouped[T any](
	results []sourceResult,
	cat model.Category,
	groupOf func(model.Method) string,
	setGroup func(*T, string),
) (map[string][]T, []*LoadError) {
	groups := make(map[string][]T)
	var errs []*LoadError
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.loadError(r.err))
			continue
		}
		recs, err := extractList[T](r.data, source.Key(cat, r.method))
		if err != nil {
			errs = append(errs, r.loadError(err))
			continue
		}
		group := groupOf(r.method)
		for i := range recs {
			setGroup(&recs[i], group)
		}
		groups[group] = recs
	}
	return groups, errs
}

// assembleSpecialists разбирает ресурс специалистов: объект ФИО → удостоверения.
func assembleSpecialists(results []sourceResult) (map[string][]model.SpecialistRecord, []*LoadError) {
	groups := make(map[string][]model.SpecialistRecord)
	var errs []*LoadError
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.loadError(r.err))
			continue
		}
		var recs map[string][]model.SpecialistRecord
		if err := json.Unmarshal(r.data, &recs); err != nil {
			errs = append(errs, r.loadError(fmt.Errorf("ошибка разбора JSON: %w", err)))
			continue
		}
		for fio, list := range recs {
			groups[fio] = append(groups[fio], list...)
		}
	}
	return groups, errs
}

// DedupWire удаляет повторы по ключу (марка, тип, метод), сохраняя
// первое вхождение и порядок. Повторное применение ничего не меняет.
func DedupWire(records []model.WireRecord) []model.WireRecord {
	seen := make(map[model.WireKey]struct{}, len(records))
	out := make([]model.WireRecord, 0, len(records))
	for _, rec := range records {
		k := rec.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// CheckSources проверяет доступность всех ресурсов источника.
func (s *CatalogService) CheckSources(ctx context.Context) ([]SourceStatus, error) {
	paths := source.Paths()
	statuses := make([]SourceStatus, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			st := SourceStatus{Path: p, Available: true}
			if _, err := s.fetcher.Fetch(ctx, p); err != nil {
				st.Available = false
				st.Error = err.Error()
			}
			statuses[i] = st
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Dataset возвращает копию всех реестров.
func (s *CatalogService) Dataset() model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// LoadedAt — время последней загрузки из источника.
func (s *CatalogService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Counts возвращает количество записей по реестрам.
func (s *CatalogService) Counts() model.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Counts()
}

// ReplaceAll атомарно заменяет все четыре реестра копией ds.
// Уведомлений и коммитов не создаёт: это делает вызывающая операция.
func (s *CatalogService) ReplaceAll(ds model.Dataset) {
	next := ds.Clone()
	next.Normalize()

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
}

// ReplaceAllLogged заменяет все четыре реестра и журналирует замену
// под одной блокировкой набора. Если журнал не сохранён, набор не меняется.
func (s *CatalogService) ReplaceAllLogged(ctx context.Context, ds model.Dataset, message string) error {
	next := ds.Clone()
	return s.mutate(ctx, message, func(d *model.Dataset) error {
		*d = next
		return nil
	})
}

// ImportAll загружает «все данные» из выгрузки: заменяются только
// присутствующие в документе реестры, остальные не меняются.
// Невалидный документ не меняет состояние.
func (s *CatalogService) ImportAll(ctx context.Context, data []byte) ([]model.Category, error) {
	imported, present, err := codec.DecodePartial(data)
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка при импорте данных", notify.SeverityError)
		return nil, err
	}

	names := make([]string, len(present))
	for i, c := range present {
		names[i] = string(c)
	}

	err = s.mutate(ctx, "Импорт данных: "+strings.Join(names, ", "), func(ds *model.Dataset) error {
		replaceCategories(ds, imported, present)
		return nil
	})
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка при импорте данных", notify.SeverityError)
		return nil, err
	}

	s.notifier.Notify(ctx, "Все данные успешно импортированы", notify.SeveritySuccess)
	return present, nil
}

// replaceCategories переносит в dst перечисленные реестры из src.
func replaceCategories(dst *model.Dataset, src model.Dataset, cats []model.Category) {
	for _, c := range cats {
		switch c {
		case model.CategoryWire:
			dst.Wire = src.Wire
		case model.CategoryWelders:
			dst.Welders = src.Welders
		case model.CategorySpecialists:
			dst.Specialists = src.Specialists
		case model.CategoryTechprocess:
			dst.Techprocess = src.Techprocess
		}
	}
	dst.Normalize()
}

// mutate применяет изменение к копии набора, журналирует его и
// публикует копию. Если журнал не удалось сохранить, набор не меняется.
func (s *CatalogService) mutate(ctx context.Context, message string, fn func(*model.Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.Normalize()

	if s.commits != nil {
		counts := next.Counts()
		if _, err := s.commits.Append(ctx, message, &counts); err != nil {
			return err
		}
	}

	s.data = next
	return nil
}

// DeleteWire удаляет записи проволоки с идентификатором id.
func (s *CatalogService) DeleteWire(ctx context.Context, id int) error {
	var brand string
	err := s.mutate(ctx, fmt.Sprintf("Удаление записи проволоки %d", id), func(ds *model.Dataset) error {
		kept := ds.Wire[:0]
		removed := 0
		for _, rec := range ds.Wire {
			if rec.ID == id {
				brand = rec.Brand
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if removed == 0 {
			return fmt.Errorf("%w: проволока id=%d", ErrRecordNotFound, id)
		}
		ds.Wire = kept
		return nil
	})
	return s.reportDelete(ctx, "Запись удалена", err,
		slog.Int("id", id), slog.String("brand", brand))
}

// DeleteWelder удаляет сварщика по индексу в категории.
// Опустевшая категория удаляется.
func (s *CatalogService) DeleteWelder(ctx context.Context, group string, index int) error {
	var fio string
	err := s.mutate(ctx, fmt.Sprintf("Удаление сварщика: %s", group), func(ds *model.Dataset) error {
		rec, err := removeAt(ds.Welders, group, index)
		fio = rec.Fio
		return err
	})
	return s.reportDelete(ctx, "Сварщик удален", err,
		slog.String("group", group), slog.Int("index", index), slog.String("fio", fio))
}

// DeleteSpecialist удаляет удостоверение специалиста по индексу.
// Специалист без удостоверений удаляется.
func (s *CatalogService) DeleteSpecialist(ctx context.Context, fio string, index int) error {
	err := s.mutate(ctx, fmt.Sprintf("Удаление удостоверения специалиста: %s", fio), func(ds *model.Dataset) error {
		_, err := removeAt(ds.Specialists, fio, index)
		return err
	})
	return s.reportDelete(ctx, "Специалист удален", err,
		slog.String("fio", fio), slog.Int("index", index))
}

// DeleteTechprocess удаляет техпроцесс по индексу в категории.
func (s *CatalogService) DeleteTechprocess(ctx context.Context, group string, index int) error {
	err := s.mutate(ctx, fmt.Sprintf("Удаление техпроцесса: %s", group), func(ds *model.Dataset) error {
		_, err := removeAt(ds.Techprocess, group, index)
		return err
	})
	return s.reportDelete(ctx, "Техпроцесс удален", err,
		slog.String("group", group), slog.Int("index", index))
}

// Delete удаляет запись сгруппированного реестра по индексу.
func (s *CatalogService) Delete(ctx context.Context, cat model.Category, group string, index int) error {
	switch cat {
	case model.CategoryWelders:
		return s.DeleteWelder(ctx, group, index)
	case model.CategorySpecialists:
		return s.DeleteSpecialist(ctx, group, index)
	case model.CategoryTechprocess:
		return s.DeleteTechprocess(ctx, group, index)
	}
	return fmt.Errorf("%w: реестр %s не сгруппирован", ErrValidation, cat)
}

func (s *CatalogService) reportDelete(ctx context.Context, success string, err error, attrs ...any) error {
	if err != nil {
		s.logger.Warn("Ошибка удаления записи", append(attrs, slog.String("error", err.Error()))...)
		s.notifier.Notify(ctx, "Ошибка удаления записи", notify.SeverityError)
		return err
	}
	s.logger.Info("Запись удалена", attrs...)
	s.notifier.Notify(ctx, success, notify.SeveritySuccess)
	return nil
}

// removeAt удаляет элемент группы; пустая группа удаляется из map.
func removeAt[T any](groups map[string][]T, key string, index int) (T, error) {
	var zero T
	list, ok := groups[key]
	if !ok {
		return zero, fmt.Errorf("%w: группа %q", ErrRecordNotFound, key)
	}
	if index < 0 || index >= len(list) {
		return zero, fmt.Errorf("%w: индекс %d в группе %q", ErrRecordNotFound, index, key)
	}
	removed := list[index]
	list = append(list[:index:index], list[index+1:]...)
	if len(list) == 0 {
		delete(groups, key)
	} else {
		groups[key] = list
	}
	return removed, nil
}

// SearchWire фильтрует проволоку.
func (s *CatalogService) SearchWire(q filter.WireQuery) ([]model.WireRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Wire(s.data.Wire, q)
}

// SearchWelders возвращает сварщиков выбранной категории.
func (s *CatalogService) SearchWelders(q filter.GroupQuery) ([]model.WelderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Grouped(model.CategoryWelders, s.data.Welders, q)
}

// SearchTechprocess возвращает техпроцессы выбранной категории.
func (s *CatalogService) SearchTechprocess(q filter.GroupQuery) ([]model.TechprocessRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Grouped(model.CategoryTechprocess, s.data.Techprocess, q)
}

// SearchSpecialists возвращает удостоверения специалиста.
func (s *CatalogService) SearchSpecialists(fio string) ([]model.SpecialistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Specialists(s.data.Specialists, fio)
}

// Groups возвращает отсортированные имена групп реестра
// (категории для сварщиков и техпроцессов, ФИО для специалистов).
func (s *CatalogService) Groups(cat model.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch cat {
	case model.CategoryWelders:
		return filter.GroupNames(s.data.Welders)
	case model.CategorySpecialists:
		return filter.GroupNames(s.data.Specialists)
	case model.CategoryTechprocess:
		return filter.GroupNames(s.data.Techprocess)
	}
	return nil
}

// Stats считает сводку по всем реестрам.
func (s *CatalogService) Stats() []filter.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Summarize(s.data, s.now())
}

// ExportCategory выгружает один реестр: <category>_data_<ГГГГ-ММ-ДД>.json.
// Пустой реестр не выгружается.
func (s *CatalogService) ExportCategory(ctx context.Context, cat model.Category) (ExportFile, error) {
	ds := s.Dataset()
	collection, n := codec.Collection(ds, cat)
	if n == 0 {
		s.notifier.Notify(ctx, fmt.Sprintf("Нет данных для экспорта типа: %s", cat), notify.SeverityWarning)
		return ExportFile{}, fmt.Errorf("%w: %s", ErrEmptyExport, cat)
	}

	data, err := codec.Marshal(collection)
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка при экспорте данных", notify.SeverityError)
		return ExportFile{}, err
	}

	file := ExportFile{Name: codec.FileName(string(cat)+"_data", s.now()), Data: data, Records: n}
	s.archiveExport(ctx, file)
	s.notifier.Notify(ctx,
		fmt.Sprintf("Данные типа \"%s\" успешно экспортированы в файл %s", cat, file.Name),
		notify.SeveritySuccess)
	return file, nil
}

// ExportAll выгружает все реестры: all_data_export_<ГГГГ-ММ-ДД>.json.
func (s *CatalogService) ExportAll(ctx context.Context) (ExportFile, error) {
	ds := s.Dataset()
	now := s.now()
	data, err := codec.Marshal(codec.EncodeExport(ds, now))
	if err != nil {
		s.notifier.Notify(ctx, "Ошибка при экспорте данных", notify.SeverityError)
		return ExportFile{}, err
	}

	file := ExportFile{Name: codec.FileName("all_data_export", now), Data: data, Records: ds.Counts().Total()}
	s.archiveExport(ctx, file)
	s.notifier.Notify(ctx,
		fmt.Sprintf("Все данные успешно экспортированы в файл %s", file.Name),
		notify.SeveritySuccess)
	return file, nil
}

// archiveExport сохраняет копию выгрузки в архив. Ошибка архива
// не прерывает выгрузку.
func (s *CatalogService) archiveExport(ctx context.Context, file ExportFile) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Save(ctx, ExportsDir+file.Name, file.Data); err != nil {
		s.logger.Warn("Не удалось сохранить выгрузку в архив",
			slog.String("file", file.Name),
			slog.String("error", err.Error()),
		)
	}
}
