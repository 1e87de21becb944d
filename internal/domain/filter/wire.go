// Пакет filter — чистые функции выборки записей реестров.
// Не обращается к хранилищу и не выполняет ввод-вывод:
// на вход получает коллекции, на выход — новый срез в стабильном порядке.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

var (
	// ErrMissingFilter — не задан обязательный параметр поиска.
	ErrMissingFilter = errors.New("не заполнены обязательные фильтры поиска")
	// ErrInvalidRange — диапазон диаметров не разобран.
	ErrInvalidRange = errors.New("некорректный диапазон диаметров")
)

// MissingFilterMessage — текст предупреждения для пользователя.
const MissingFilterMessage = "Пожалуйста, заполните все фильтры поиска."

// WireClass — класс стали проволоки.
type WireClass string

const (
	WireCarbon    WireClass = "carbon"
	WireStainless WireClass = "stainless"
)

// Title возвращает название класса стали.
func (c WireClass) Title() string {
	switch c {
	case WireCarbon:
		return "Углеродистая или низколегированная"
	case WireStainless:
		return "Нержавеющая аустенитная"
	}
	return string(c)
}

// ParseWireClass преобразует строку в WireClass.
func ParseWireClass(s string) (WireClass, error) {
	switch c := WireClass(strings.ToLower(strings.TrimSpace(s))); c {
	case WireCarbon, WireStainless:
		return c, nil
	default:
		return "", fmt.Errorf("недопустимый класс проволоки: %q, допустимые: carbon, stainless", s)
	}
}

// carbonMarkers — фрагменты марок углеродистой и низколегированной проволоки.
var carbonMarkers = []string{"10НМА", "08ГА", "08Г2С", "ПРО 51С", "УОНИИ-13/55"}

// ClassifyWire определяет класс стали по марке проволоки.
// Марка, не содержащая ни одного маркера, считается нержавеющей.
func ClassifyWire(brand string) WireClass {
	for _, marker := range carbonMarkers {
		if strings.Contains(brand, marker) {
			return WireCarbon
		}
	}
	return WireStainless
}

// diameterOptions — диапазоны диаметров, предлагаемые для способа сварки.
var diameterOptions = map[model.Method][]string{
	model.MethodMP:  {"0.8-1.6"},
	model.MethodRAD: {"2.0-3.0"},
	model.MethodAF:  {"3.0-4.0"},
	model.MethodRD:  {"2.5-5.0"},
}

// DiameterOptions возвращает диапазоны диаметров для способа сварки.
func DiameterOptions(m model.Method) []string {
	return append([]string(nil), diameterOptions[m]...)
}

// ParseDiameter разбирает диаметр записи: "1,2", "1.2", "1.2 мм".
// Берётся числовой префикс строки; десятичный разделитель — запятая или точка.
func ParseDiameter(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	end := 0
	dot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !dot {
			dot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Range — включающий диапазон диаметров.
type Range struct {
	Min float64
	Max float64
}

// ParseRange разбирает диапазон "min-max" (например "0.8-1.6" или "0,8-1,6").
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	minV, okMin := ParseDiameter(lo)
	maxV, okMax := ParseDiameter(hi)
	if !okMin || !okMax || minV > maxV {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return Range{Min: minV, Max: maxV}, nil
}

// Contains проверяет попадание значения в диапазон (границы включены).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// WireQuery — параметры поиска проволоки. Все поля обязательны.
type WireQuery struct {
	Class    WireClass
	Method   model.Method
	Diameter string // диапазон "min-max"
}

// Wire выбирает проволоку по классу стали, способу сварки и диапазону диаметров.
// Запись без диаметра или с неразборчивым диаметром не попадает в выборку.
func Wire(records []model.WireRecord, q WireQuery) ([]model.WireRecord, error) {
	if q.Class == "" || q.Method == "" || strings.TrimSpace(q.Diameter) == "" {
		return nil, ErrMissingFilter
	}
	rng, err := ParseRange(q.Diameter)
	if err != nil {
		return nil, err
	}

	out := make([]model.WireRecord, 0)
	for _, rec := range records {
		if ClassifyWire(rec.Brand) != q.Class || rec.Method != q.Method {
			continue
		}
		d, ok := ParseDiameter(rec.Diameter)
		if !ok || !rng.Contains(d) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
