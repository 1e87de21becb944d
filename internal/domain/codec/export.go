// export.go — выгрузка реестров в файлы и загрузка «всех данных».
package codec

import (
	"fmt"
	"time"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// ExportDocument — выгрузка всех реестров для скачивания.
// В отличие от Document не содержит счётчиков и при загрузке
// допускает отсутствие любых коллекций.
type ExportDocument struct {
	WireData        []model.WireRecord                   `json:"wireData"`
	WeldersData     map[string][]model.WelderRecord      `json:"weldersData"`
	SpecialistsData map[string][]model.SpecialistRecord  `json:"specialistsData"`
	TechprocessData map[string][]model.TechprocessRecord `json:"techprocessData"`
	ExportDate      time.Time                            `json:"exportDate"`
	Version         string                               `json:"version"`
}

// EncodeExport строит документ выгрузки всех реестров.
func EncodeExport(ds model.Dataset, now time.Time) ExportDocument {
	ds = ds.Clone()
	ds.Normalize()
	return ExportDocument{
		WireData:        ds.Wire,
		WeldersData:     ds.Welders,
		SpecialistsData: ds.Specialists,
		TechprocessData: ds.Techprocess,
		ExportDate:      now.UTC(),
		Version:         Version,
	}
}

// DecodePartial разбирает документ с произвольным подмножеством коллекций.
// Возвращает набор (отсутствующие коллекции пусты) и список присутствующих
// реестров. Документ без единой коллекции — ErrInvalidFormat.
func DecodePartial(data []byte) (model.Dataset, []model.Category, error) {
	fields, err := splitObject(data)
	if err != nil {
		return model.Dataset{}, nil, err
	}
	ds, present, err := decodeCollections(fields)
	if err != nil {
		return model.Dataset{}, nil, err
	}
	if len(present) == 0 {
		return model.Dataset{}, nil, fmt.Errorf("%w: нет ни одной коллекции", ErrInvalidFormat)
	}
	return ds, present, nil
}

// Collection возвращает коллекцию одного реестра и число записей в ней.
func Collection(ds model.Dataset, cat model.Category) (any, int) {
	counts := ds.Counts()
	switch cat {
	case model.CategoryWire:
		return ds.Wire, counts.Wire
	case model.CategoryWelders:
		return ds.Welders, counts.Welders
	case model.CategorySpecialists:
		return ds.Specialists, counts.Specialists
	case model.CategoryTechprocess:
		return ds.Techprocess, counts.Techprocess
	}
	return nil, 0
}

// FileName формирует имя файла выгрузки: <subject>_<ГГГГ-ММ-ДД>.json.
func FileName(subject string, now time.Time) string {
	return fmt.Sprintf("%s_%s.json", subject, now.Format("2006-01-02"))
}

// BackupFileName формирует имя файла резервной копии:
// <subject>_<ГГГГ-ММ-ДД>_<ЧЧ-ММ-СС>.json.
func BackupFileName(subject string, now time.Time) string {
	return fmt.Sprintf("%s_%s.json", subject, now.Format("2006-01-02_15-04-05"))
}
