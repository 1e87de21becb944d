// group.go — выборка из реестров, сгруппированных по ключу
// (сварщики и техпроцессы — по категории способа сварки, специалисты — по ФИО).
package filter

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// GroupQuery — параметры выборки из сгруппированного реестра.
// Достаточно задать Group или Method; если заданы оба, они должны
// указывать на одну группу.
type GroupQuery struct {
	Group  string
	Method model.Method
}

// groupSpec — настройка выборки для реестра.
// groupOf — ключ группы по способу сварки (nil — реестр не связан со способом).
type groupSpec struct {
	groupOf func(model.Method) string
}

var groupSpecs = map[model.Category]groupSpec{
	model.CategoryWelders:     {groupOf: model.Method.WelderCategory},
	model.CategoryTechprocess: {groupOf: model.Method.TechprocessCategory},
	model.CategorySpecialists: {},
}

// Grouped выбирает записи одной группы реестра category.
// Ключ группы сравнивается без учёта регистра и формы Unicode.
// Отсутствующая группа даёт пустой результат.
func Grouped[T any](category model.Category, groups map[string][]T, q GroupQuery) ([]T, error) {
	spec := groupSpecs[category]

	group := strings.TrimSpace(q.Group)
	if q.Method != "" && spec.groupOf != nil {
		byMethod := spec.groupOf(q.Method)
		if group != "" && foldKey(group) != foldKey(byMethod) {
			return []T{}, nil
		}
		group = byMethod
	}
	if group == "" {
		return nil, ErrMissingFilter
	}

	key, ok := lookupGroup(groups, group)
	if !ok {
		return []T{}, nil
	}
	return append([]T{}, groups[key]...), nil
}

// Specialists возвращает удостоверения специалиста по ФИО.
func Specialists(groups map[string][]model.SpecialistRecord, fio string) ([]model.SpecialistRecord, error) {
	return Grouped(model.CategorySpecialists, groups, GroupQuery{Group: fio})
}

// GroupNames возвращает отсортированные ключи групп (для списков выбора).
func GroupNames[T any](groups map[string][]T) []string {
	names := make([]string, 0, len(groups))
	for k := range groups {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// lookupGroup находит ключ группы: сначала точное совпадение,
// затем совпадение после нормализации.
func lookupGroup[T any](groups map[string][]T, group string) (string, bool) {
	if _, ok := groups[group]; ok {
		return group, true
	}
	want := foldKey(group)
	for _, k := range GroupNames(groups) {
		if foldKey(k) == want {
			return k, true
		}
	}
	return "", false
}

// foldKey приводит ключ к NFC и складывает регистр.
func foldKey(s string) string {
	s = norm.NFC.String(strings.Join(strings.Fields(s), " "))
	return cases.Fold().String(s)
}
