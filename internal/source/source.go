// Пакет source — получение JSON-ресурсов реестров (каталог data_json).
//
// Раскладка ресурсов:
//
//	<folder>/data-<category>-<folder>.json  — проволока, сварщики, техпроцессы
//	data-specialists.json                   — специалисты
//
// где folder — mp, af, rad, rd. Отсутствие ресурса, ответ не 200 и
// истечение таймаута возвращаются как ErrNotFound.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// ErrNotFound — ресурс недоступен.
var ErrNotFound = errors.New("ресурс не найден")

// Fetcher — получение ресурса по относительному пути.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// SpecialistsPath — путь к единственному ресурсу специалистов.
const SpecialistsPath = "data-specialists.json"

// Path возвращает путь ресурса реестра для способа сварки.
// Для специалистов способ не используется.
func Path(cat model.Category, m model.Method) string {
	if cat == model.CategorySpecialists {
		return SpecialistsPath
	}
	folder := m.Folder()
	return fmt.Sprintf("%s/data-%s-%s.json", folder, cat, folder)
}

// Key возвращает ключ коллекции внутри ресурса: wireDataMP, weldersAF, techprocessRD.
func Key(cat model.Category, m model.Method) string {
	switch cat {
	case model.CategoryWire:
		return "wireData" + string(m)
	case model.CategoryWelders:
		return "welders" + string(m)
	case model.CategoryTechprocess:
		return "techprocess" + string(m)
	}
	return ""
}

// Paths возвращает все пути ресурсов в порядке загрузки.
func Paths() []string {
	paths := make([]string, 0, 3*len(model.Methods)+1)
	for _, cat := range model.Categories {
		if cat == model.CategorySpecialists {
			paths = append(paths, SpecialistsPath)
			continue
		}
		for _, m := range model.Methods {
			paths = append(paths, Path(cat, m))
		}
	}
	return paths
}
