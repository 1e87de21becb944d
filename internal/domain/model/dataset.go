// dataset.go — полный набор четырёх реестров.
package model

// Dataset — содержимое всех четырёх реестров.
// Сварщики и техпроцессы сгруппированы по категории способа сварки,
// специалисты — по ФИО. Пустые группы не хранятся.
type Dataset struct {
	Wire        []WireRecord                   `json:"wireData"`
	Welders     map[string][]WelderRecord      `json:"weldersData"`
	Specialists map[string][]SpecialistRecord  `json:"specialistsData"`
	Techprocess map[string][]TechprocessRecord `json:"techprocessData"`
}

// NewDataset возвращает пустой набор с инициализированными коллекциями.
func NewDataset() Dataset {
	return Dataset{
		Wire:        []WireRecord{},
		Welders:     map[string][]WelderRecord{},
		Specialists: map[string][]SpecialistRecord{},
		Techprocess: map[string][]TechprocessRecord{},
	}
}

// Normalize заменяет nil-коллекции пустыми и удаляет пустые группы.
func (d *Dataset) Normalize() {
	if d.Wire == nil {
		d.Wire = []WireRecord{}
	}
	if d.Welders == nil {
		d.Welders = map[string][]WelderRecord{}
	}
	if d.Specialists == nil {
		d.Specialists = map[string][]SpecialistRecord{}
	}
	if d.Techprocess == nil {
		d.Techprocess = map[string][]TechprocessRecord{}
	}
	dropEmpty(d.Welders)
	dropEmpty(d.Specialists)
	dropEmpty(d.Techprocess)
}

// Clone возвращает глубокую копию набора.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Wire:        append([]WireRecord{}, d.Wire...),
		Welders:     cloneGroups(d.Welders),
		Specialists: cloneGroups(d.Specialists),
		Techprocess: cloneGroups(d.Techprocess),
	}
	return out
}

// Counts — количество записей по реестрам.
type Counts struct {
	Wire        int `json:"wireCount"`
	Welders     int `json:"weldersCount"`
	Specialists int `json:"specialistsCount"`
	Techprocess int `json:"techprocessCount"`
}

// Total — общее количество записей.
func (c Counts) Total() int {
	return c.Wire + c.Welders + c.Specialists + c.Techprocess
}

// ByCategory возвращает счётчики в виде map по реестрам.
func (c Counts) ByCategory() map[Category]int {
	return map[Category]int{
		CategoryWire:        c.Wire,
		CategoryWelders:     c.Welders,
		CategorySpecialists: c.Specialists,
		CategoryTechprocess: c.Techprocess,
	}
}

// Counts подсчитывает записи во всех реестрах.
func (d Dataset) Counts() Counts {
	return Counts{
		Wire:        len(d.Wire),
		Welders:     groupSize(d.Welders),
		Specialists: groupSize(d.Specialists),
		Techprocess: groupSize(d.Techprocess),
	}
}

func cloneGroups[T any](in map[string][]T) map[string][]T {
	out := make(map[string][]T, len(in))
	for k, v := range in {
		out[k] = append([]T{}, v...)
	}
	return out
}

func groupSize[T any](in map[string][]T) int {
	n := 0
	for _, v := range in {
		n += len(v)
	}
	return n
}

func dropEmpty[T any](in map[string][]T) {
	for k, v := range in {
		if len(v) == 0 {
			delete(in, k)
		}
	}
}
