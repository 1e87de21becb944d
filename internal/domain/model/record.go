// record.go — записи четырёх реестров: проволока, сварщики, специалисты, техпроцессы.
package model

import "fmt"

// Category — вид реестра.
type Category string

const (
	CategoryWire        Category = "wire"
	CategoryWelders     Category = "welders"
	CategorySpecialists Category = "specialists"
	CategoryTechprocess Category = "techprocess"
)

// Categories — все реестры в фиксированном порядке загрузки и экспорта.
var Categories = []Category{CategoryWire, CategoryWelders, CategorySpecialists, CategoryTechprocess}

// ParseCategory преобразует строку в Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryWire, CategoryWelders, CategorySpecialists, CategoryTechprocess:
		return c, nil
	default:
		return "", fmt.Errorf("недопустимый реестр: %q, допустимые: wire, welders, specialists, techprocess", s)
	}
}

// Title возвращает название реестра для отчётов.
func (c Category) Title() string {
	switch c {
	case CategoryWire:
		return "РЕЕСТР СВАРОЧНОЙ ПРОВОЛОКИ"
	case CategoryWelders:
		return "РЕЕСТР СВАРЩИКОВ"
	case CategorySpecialists:
		return "РЕЕСТР СПЕЦИАЛИСТОВ"
	case CategoryTechprocess:
		return "РЕЕСТР ТЕХПРОЦЕССОВ"
	}
	return string(c)
}

// WireRecord — сварочная проволока (электроды).
// Ключ уникальности: (Brand, Type, Method).
type WireRecord struct {
	ID           int    `json:"id"`
	Brand        string `json:"brand"`
	Type         string `json:"type"`
	Method       Method `json:"method"`
	Diameter     string `json:"diameter"`
	Standard     string `json:"standard,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Certificate  string `json:"certificate,omitempty"`
	IssueDate    string `json:"issueDate,omitempty"`
	Description  string `json:"description,omitempty"`
}

// WireKey — ключ дедупликации проволоки.
type WireKey struct {
	Brand  string
	Type   string
	Method Method
}

// Key возвращает ключ уникальности записи.
func (w WireRecord) Key() WireKey {
	return WireKey{Brand: w.Brand, Type: w.Type, Method: w.Method}
}

// WelderRecord — аттестованный сварщик.
type WelderRecord struct {
	Fio              string `json:"fio"`
	Stamp            string `json:"stamp"`
	Thickness        string `json:"thickness,omitempty"`
	ValidUntil       string `json:"validUntil,omitempty"`
	Material         string `json:"material,omitempty"`
	Certificate      string `json:"certificate,omitempty"`
	CertificateImage string `json:"certificateImage,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Category         string `json:"category,omitempty"`
}

// SpecialistRecord — удостоверение специалиста сварочного производства.
// ФИО владельца — ключ в Dataset.Specialists.
type SpecialistRecord struct {
	Cert            string `json:"cert"`
	GroupAbr        string `json:"groupAbr,omitempty"`
	Group           string `json:"group,omitempty"`
	ValidUntil      string `json:"validUntil,omitempty"`
	CertificateLink string `json:"certificateLink,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// TechprocessRecord — аттестованный технологический процесс.
type TechprocessRecord struct {
	Cert             string `json:"cert"`
	GroupAbr         string `json:"groupAbr,omitempty"`
	Group            string `json:"group,omitempty"`
	Material         string `json:"material,omitempty"`
	ValidUntil       string `json:"validUntil,omitempty"`
	CertificateLink  string `json:"certificateLink,omitempty"`
	CertificateImage string `json:"certificateImage,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Category         string `json:"category,omitempty"`
}
