// Пакет codec — сериализация полного набора реестров в переносимый
// JSON-документ и обратный разбор с проверкой структуры.
//
// Разбор выполняется по принципу «всё или ничего»: при любой ошибке
// вызывающий код не получает частично заполненных данных.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// Version — версия формата документа.
const Version = "1.0"

var (
	// ErrInvalidFormat — документ не соответствует формату (нет коллекции,
	// метаданных или неизвестная версия).
	ErrInvalidFormat = errors.New("неверный формат документа")
	// ErrParse — документ не является корректным JSON.
	ErrParse = errors.New("ошибка разбора JSON")
)

// Ключи коллекций документа.
const (
	keyWire        = "wireData"
	keyWelders     = "weldersData"
	keySpecialists = "specialistsData"
	keyTechprocess = "techprocessData"
	keyMetadata    = "metadata"
)

// collectionKeys — ключи коллекций в фиксированном порядке реестров.
var collectionKeys = map[model.Category]string{
	model.CategoryWire:        keyWire,
	model.CategoryWelders:     keyWelders,
	model.CategorySpecialists: keySpecialists,
	model.CategoryTechprocess: keyTechprocess,
}

// Metadata — метаданные документа, вычисляются при кодировании.
type Metadata struct {
	Timestamp    time.Time              `json:"timestamp"`
	Version      string                 `json:"version"`
	TotalRecords int                    `json:"totalRecords"`
	PerCategory  map[model.Category]int `json:"perCategoryRecordCounts"`
}

// Document — переносимое представление всех четырёх реестров.
type Document struct {
	WireData        []model.WireRecord                   `json:"wireData"`
	WeldersData     map[string][]model.WelderRecord      `json:"weldersData"`
	SpecialistsData map[string][]model.SpecialistRecord  `json:"specialistsData"`
	TechprocessData map[string][]model.TechprocessRecord `json:"techprocessData"`
	Metadata        Metadata                             `json:"metadata"`
}

// Dataset возвращает набор реестров документа.
func (d Document) Dataset() model.Dataset {
	ds := model.Dataset{
		Wire:        d.WireData,
		Welders:     d.WeldersData,
		Specialists: d.SpecialistsData,
		Techprocess: d.TechprocessData,
	}
	ds.Normalize()
	return ds
}

// Encode строит документ по копии набора; счётчики считаются здесь же.
func Encode(ds model.Dataset, now time.Time) Document {
	ds = ds.Clone()
	ds.Normalize()
	counts := ds.Counts()

	return Document{
		WireData:        ds.Wire,
		WeldersData:     ds.Welders,
		SpecialistsData: ds.Specialists,
		TechprocessData: ds.Techprocess,
		Metadata: Metadata{
			Timestamp:    now.UTC(),
			Version:      Version,
			TotalRecords: counts.Total(),
			PerCategory:  counts.ByCategory(),
		},
	}
}

// Marshal сериализует значение в JSON с отступом в два пробела.
// Символы &, < и > не экранируются: ссылки на сертификаты с параметрами
// запроса остаются в файле как есть.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode разбирает документ и проверяет его структуру.
// Возвращает ErrParse для некорректного JSON и ErrInvalidFormat,
// если отсутствует любая из коллекций, метаданные или версия не совпадает.
func Decode(data []byte) (model.Dataset, Metadata, error) {
	fields, err := splitObject(data)
	if err != nil {
		return model.Dataset{}, Metadata{}, err
	}

	for _, cat := range model.Categories {
		if _, ok := fields[collectionKeys[cat]]; !ok {
			return model.Dataset{}, Metadata{}, fmt.Errorf("%w: отсутствует %q", ErrInvalidFormat, collectionKeys[cat])
		}
	}
	rawMeta, ok := fields[keyMetadata]
	if !ok {
		return model.Dataset{}, Metadata{}, fmt.Errorf("%w: отсутствуют метаданные", ErrInvalidFormat)
	}

	var meta Metadata
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return model.Dataset{}, Metadata{}, fmt.Errorf("%w: метаданные: %v", ErrInvalidFormat, err)
	}
	if meta.Version != Version {
		return model.Dataset{}, Metadata{}, fmt.Errorf("%w: версия %q не поддерживается", ErrInvalidFormat, meta.Version)
	}

	ds, _, err := decodeCollections(fields)
	if err != nil {
		return model.Dataset{}, Metadata{}, err
	}
	return ds, meta, nil
}

// splitObject разбирает JSON-объект верхнего уровня на поля.
func splitObject(data []byte) (map[string]json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, ErrParse
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: ожидался JSON-объект", ErrInvalidFormat)
	}
	return fields, nil
}

// decodeCollections разбирает присутствующие в документе коллекции.
// Возвращает набор и список разобранных реестров в фиксированном порядке.
func decodeCollections(fields map[string]json.RawMessage) (model.Dataset, []model.Category, error) {
	ds := model.NewDataset()
	present := make([]model.Category, 0, len(model.Categories))

	for _, cat := range model.Categories {
		raw, ok := fields[collectionKeys[cat]]
		if !ok {
			continue
		}
		var target any
		switch cat {
		case model.CategoryWire:
			target = &ds.Wire
		case model.CategoryWelders:
			target = &ds.Welders
		case model.CategorySpecialists:
			target = &ds.Specialists
		case model.CategoryTechprocess:
			target = &ds.Techprocess
		}
		if err := unmarshalStrict(raw, target); err != nil {
			return model.Dataset{}, nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, collectionKeys[cat], err)
		}
		present = append(present, cat)
	}

	ds.Normalize()
	return ds, present, nil
}

// unmarshalStrict разбирает коллекцию; null считается ошибкой формата.
func unmarshalStrict(raw json.RawMessage, target any) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("значение null")
	}
	return json.Unmarshal(raw, target)
}
