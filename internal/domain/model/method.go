// Пакет model — доменные модели реестра сварочного производства.
package model

import (
	"fmt"
	"strings"
)

// Method — способ сварки.
type Method string

const (
	// MethodMP — полуавтоматическая сварка
	MethodMP Method = "MP"
	// MethodAF — автоматическая сварка под флюсом
	MethodAF Method = "AF"
	// MethodRAD — ручная аргонодуговая сварка
	MethodRAD Method = "RAD"
	// MethodRD — ручная дуговая сварка
	MethodRD Method = "RD"
)

// Methods — все способы сварки в порядке загрузки ресурсов.
var Methods = []Method{MethodMP, MethodAF, MethodRAD, MethodRD}

// methodInfo — справочные названия способа сварки.
type methodInfo struct {
	display     string // подпись в фильтрах и отчётах
	welders     string // ключ категории сварщиков
	techprocess string // ключ категории техпроцессов
}

var methodTable = map[Method]methodInfo{
	MethodMP: {
		display:     "МП - полуавтоматическая",
		welders:     "Полуавтоматическая сварка",
		techprocess: "Полуавтоматическая сварка",
	},
	MethodAF: {
		display:     "АФ - автоматическая под флюсом",
		welders:     "Автоматическая сварка",
		techprocess: "Автоматическая сварка под слоем флюса",
	},
	MethodRAD: {
		display:     "РАД - ручная аргонодуговая",
		welders:     "Аргонодуговая сварка",
		techprocess: "Ручная аргонодуговая сварка",
	},
	MethodRD: {
		display:     "РД - ручная дуговая",
		welders:     "Ручная дуговая",
		techprocess: "Ручная дуговая сварка",
	},
}

// ParseMethod преобразует строку (MP, af, Rad...) в Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := methodTable[m]; !ok {
		return "", fmt.Errorf("недопустимый способ сварки: %q, допустимые: MP, AF, RAD, RD", s)
	}
	return m, nil
}

// Valid сообщает, является ли значение известным способом сварки.
func (m Method) Valid() bool {
	_, ok := methodTable[m]
	return ok
}

// Folder возвращает имя каталога ресурсов способа (mp, af, rad, rd).
func (m Method) Folder() string {
	return strings.ToLower(string(m))
}

// Display возвращает отображаемое название способа.
func (m Method) Display() string {
	if info, ok := methodTable[m]; ok {
		return info.display
	}
	return string(m)
}

// WelderCategory — ключ категории сварщиков для способа.
func (m Method) WelderCategory() string {
	return methodTable[m].welders
}

// TechprocessCategory — ключ категории техпроцессов для способа.
func (m Method) TechprocessCategory() string {
	return methodTable[m].techprocess
}

// MethodOfWelderCategory находит способ сварки по ключу категории сварщиков.
func MethodOfWelderCategory(category string) (Method, bool) {
	for _, m := range Methods {
		if methodTable[m].welders == category {
			return m, true
		}
	}
	return "", false
}

// MethodOfTechprocessCategory находит способ сварки по ключу категории техпроцессов.
func MethodOfTechprocessCategory(category string) (Method, bool) {
	for _, m := range Methods {
		if methodTable[m].techprocess == category {
			return m, true
		}
	}
	return "", false
}
