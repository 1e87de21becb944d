// report.go — таблицы отчётов для PDF-рендерера.
// Сервис формирует заголовок, строки и подсказки оформления;
// сам PDF рисует клиент.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bigkaa/weldregistry/internal/domain/filter"
	"github.com/bigkaa/weldregistry/internal/domain/model"
	"github.com/bigkaa/weldregistry/internal/notify"
)

// ErrEmptyReport — выборка пуста, отчёт не формируется.
var ErrEmptyReport = errors.New("нет данных для отчёта")

// Подписи статуса документа.
const (
	StatusValid   = "Действует"
	StatusExpired = "Просрочен"
)

// Style — подсказки оформления таблицы.
type Style struct {
	Theme        string `json:"theme"`
	FontSize     int    `json:"fontSize"`
	HeadFontSize int    `json:"headFontSize"`
	CellPadding  int    `json:"cellPadding"`
	// HeadFill — цвет заливки заголовка (RGB).
	HeadFill     [3]int `json:"headFill"`
	ColumnWidths []int  `json:"columnWidths"`
	Margin       int    `json:"margin"`
}

// Table — таблица отчёта.
type Table struct {
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle"`
	Date     string     `json:"date"`
	Count    int        `json:"count"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
	Style    Style      `json:"style"`
	FileName string     `json:"fileName"`
}

// ReportQuery — параметры выборки для отчёта.
// Используется поле, соответствующее реестру.
type ReportQuery struct {
	Wire  filter.WireQuery
	Group filter.GroupQuery
	Fio   string
}

var reportStyles = map[model.Category]Style{
	model.CategoryWire: {
		Theme: "grid", FontSize: 8, HeadFontSize: 9, CellPadding: 2,
		HeadFill: [3]int{39, 174, 96}, ColumnWidths: []int{30, 25, 35, 20, 30, 35, 25}, Margin: 10,
	},
	model.CategoryWelders: {
		Theme: "grid", FontSize: 9, HeadFontSize: 10, CellPadding: 3,
		HeadFill: [3]int{41, 128, 185}, ColumnWidths: []int{50, 25, 25, 30, 40, 25}, Margin: 15,
	},
	model.CategorySpecialists: {
		Theme: "grid", FontSize: 9, HeadFontSize: 10, CellPadding: 3,
		HeadFill: [3]int{230, 126, 34}, ColumnWidths: []int{45, 30, 40, 35, 25}, Margin: 15,
	},
	model.CategoryTechprocess: {
		Theme: "grid", FontSize: 9, HeadFontSize: 10, CellPadding: 3,
		HeadFill: [3]int{155, 89, 182}, ColumnWidths: []int{40, 25, 35, 30, 40, 25}, Margin: 15,
	},
}

var reportHeaders = map[model.Category][]string{
	model.CategoryWire:        {"Марка", "Тип", "Способ сварки", "Диаметр, мм", "ГОСТ/ТУ", "Производитель", "Выдано"},
	model.CategoryWelders:     {"ФИО", "Клеймо", "Толщина, мм", "Действует до", "Материал", "Статус"},
	model.CategorySpecialists: {"Сертификат", "Аббревиатура", "Группа", "Действует до", "Статус"},
	model.CategoryTechprocess: {"Сертификат", "Аббревиатура", "Группа", "Действует до", "Материал", "Статус"},
}

var reportFilePrefix = map[model.Category]string{
	model.CategoryWire:        "проволока",
	model.CategoryWelders:     "сварщики",
	model.CategorySpecialists: "специалисты",
	model.CategoryTechprocess: "техпроцессы",
}

// ReportService — построение отчётов по текущим реестрам.
type ReportService struct {
	catalog  *CatalogService
	notifier notify.Notifier
	now      func() time.Time
}

// NewReportService создаёт сервис отчётов.
func NewReportService(catalog *CatalogService, notifier notify.Notifier) *ReportService {
	return &ReportService{catalog: catalog, notifier: notifier, now: time.Now}
}

// Build выполняет выборку и строит таблицу отчёта.
// Пустая выборка — ErrEmptyReport.
func (r *ReportService) Build(ctx context.Context, cat model.Category, q ReportQuery) (Table, error) {
	now := r.now()

	var (
		table Table
		err   error
	)
	switch cat {
	case model.CategoryWire:
		var recs []model.WireRecord
		if recs, err = r.catalog.SearchWire(q.Wire); err == nil {
			table = WireTable(recs, q.Wire, now)
		}
	case model.CategoryWelders:
		var recs []model.WelderRecord
		if recs, err = r.catalog.SearchWelders(q.Group); err == nil {
			table = WeldersTable(recs, groupLabel(q.Group, model.Method.WelderCategory), now)
		}
	case model.CategorySpecialists:
		var recs []model.SpecialistRecord
		if recs, err = r.catalog.SearchSpecialists(q.Fio); err == nil {
			table = SpecialistsTable(recs, q.Fio, now)
		}
	case model.CategoryTechprocess:
		var recs []model.TechprocessRecord
		if recs, err = r.catalog.SearchTechprocess(q.Group); err == nil {
			table = TechprocessTable(recs, groupLabel(q.Group, model.Method.TechprocessCategory), now)
		}
	default:
		err = fmt.Errorf("%w: неизвестный реестр %q", ErrValidation, cat)
	}
	if err != nil {
		return Table{}, err
	}

	if table.Count == 0 {
		r.notifier.Notify(ctx, "Нет данных для генерации PDF. Сначала выполните поиск.", notify.SeverityWarning)
		return Table{}, ErrEmptyReport
	}
	r.notifier.Notify(ctx, "PDF создан: "+table.FileName, notify.SeveritySuccess)
	return table, nil
}

func groupLabel(q filter.GroupQuery, groupOf func(model.Method) string) string {
	if q.Group != "" {
		return q.Group
	}
	return groupOf(q.Method)
}

func newTable(cat model.Category, subtitle string, now time.Time) Table {
	return Table{
		Title:    cat.Title(),
		Subtitle: subtitle,
		Date:     now.Format("02.01.2006"),
		Header:   reportHeaders[cat],
		Style:    reportStyles[cat],
		Rows:     [][]string{},
	}
}

// WireTable строит отчёт по проволоке.
func WireTable(recs []model.WireRecord, q filter.WireQuery, now time.Time) Table {
	t := newTable(model.CategoryWire, "Параметры поиска: "+wireFiltersText(q), now)
	for _, rec := range recs {
		t.Rows = append(t.Rows, []string{
			rec.Brand,
			rec.Type,
			rec.Method.Display(),
			rec.Diameter,
			rec.Standard,
			rec.Manufacturer,
			formatOptionalDate(rec.IssueDate),
		})
	}
	t.Count = len(t.Rows)
	t.FileName = reportFileName(model.CategoryWire, "", now)
	return t
}

func wireFiltersText(q filter.WireQuery) string {
	var parts []string
	if q.Class != "" {
		parts = append(parts, "Категория: "+q.Class.Title())
	}
	if q.Method != "" {
		parts = append(parts, "Способ: "+q.Method.Display())
	}
	if q.Diameter != "" {
		parts = append(parts, "Диаметр: "+q.Diameter+" мм")
	}
	if len(parts) == 0 {
		return "все записи"
	}
	return strings.Join(parts, ", ")
}

// WeldersTable строит отчёт по сварщикам категории.
func WeldersTable(recs []model.WelderRecord, group string, now time.Time) Table {
	t := newTable(model.CategoryWelders, "Тип сварки: "+group, now)
	for _, rec := range recs {
		t.Rows = append(t.Rows, []string{
			rec.Fio,
			rec.Stamp,
			rec.Thickness,
			formatOptionalDate(rec.ValidUntil),
			rec.Material,
			statusLabel(rec.ValidUntil, now),
		})
	}
	t.Count = len(t.Rows)
	t.FileName = reportFileName(model.CategoryWelders, group, now)
	return t
}

// SpecialistsTable строит отчёт по удостоверениям специалиста.
func SpecialistsTable(recs []model.SpecialistRecord, fio string, now time.Time) Table {
	t := newTable(model.CategorySpecialists, "Специалист: "+fio, now)
	for _, rec := range recs {
		t.Rows = append(t.Rows, []string{
			rec.Cert,
			rec.GroupAbr,
			rec.Group,
			formatOptionalDate(rec.ValidUntil),
			statusLabel(rec.ValidUntil, now),
		})
	}
	t.Count = len(t.Rows)
	t.FileName = reportFileName(model.CategorySpecialists, fio, now)
	return t
}

// TechprocessTable строит отчёт по техпроцессам категории.
func TechprocessTable(recs []model.TechprocessRecord, group string, now time.Time) Table {
	t := newTable(model.CategoryTechprocess, "Тип сварки: "+group, now)
	for _, rec := range recs {
		t.Rows = append(t.Rows, []string{
			rec.Cert,
			rec.GroupAbr,
			rec.Group,
			formatOptionalDate(rec.ValidUntil),
			rec.Material,
			statusLabel(rec.ValidUntil, now),
		})
	}
	t.Count = len(t.Rows)
	t.FileName = reportFileName(model.CategoryTechprocess, group, now)
	return t
}

func statusLabel(validUntil string, now time.Time) string {
	if filter.IsExpired(validUntil, now) {
		return StatusExpired
	}
	return StatusValid
}

func formatOptionalDate(s string) string {
	if s == "" {
		return ""
	}
	return filter.FormatDate(s)
}

// reportFileName — <реестр>[_<выбор>]_<ГГГГ-ММ-ДД>.pdf; в выборе всё,
// кроме кириллицы а-я и цифр, заменяется на "_".
func reportFileName(cat model.Category, selection string, now time.Time) string {
	name := reportFilePrefix[cat]
	if selection != "" {
		name += "_" + sanitizeFileName(selection)
	}
	return fmt.Sprintf("%s_%s.pdf", name, now.Format("2006-01-02"))
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
