// stats.go — сроки действия документов и сводная статистика реестров.
package filter

import (
	"path"
	"strings"
	"time"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// wireCertificateTTL — срок, после которого сертификат на проволоку считается устаревшим.
const wireCertificateTTL = 3

// level3Group — группа специалистов высшего уровня.
const level3Group = "III уровень"

var dateLayouts = []string{"02-01-2006", "02.01.2006", "2006-01-02"}

// ParseDate разбирает дату в форматах ДД-ММ-ГГГГ, ДД.ММ.ГГГГ и ГГГГ-ММ-ДД.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate приводит дату к виду ДД.ММ.ГГГГ; нераспознанная строка возвращается как есть.
func FormatDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("02.01.2006")
}

// IsExpired сообщает, истёк ли срок действия validUntil на дату now.
// Документ действует по указанный день включительно.
// Пустая или нераспознанная дата не считается просроченной.
func IsExpired(validUntil string, now time.Time) bool {
	t, ok := ParseDate(validUntil)
	if !ok {
		return false
	}
	return t.Before(startOfDay(now))
}

// WireCertificateExpired — сертификат на проволоку выдан более трёх лет назад.
func WireCertificateExpired(issueDate string, now time.Time) bool {
	t, ok := ParseDate(issueDate)
	if !ok {
		return false
	}
	return t.Before(startOfDay(now).AddDate(-wireCertificateTTL, 0, 0))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Stats — сводка по одному реестру.
type Stats struct {
	Category model.Category       `json:"category"`
	Total    int                  `json:"total"`
	Active   int                  `json:"active"`
	Expired  int                  `json:"expired"`
	ByMethod map[model.Method]int `json:"byMethod,omitempty"`
	ByGroup  map[string]int       `json:"byGroup,omitempty"`
	Level3   int                  `json:"level3,omitempty"`
}

// Summarize считает статистику всех реестров на дату now.
func Summarize(ds model.Dataset, now time.Time) []Stats {
	wire := Stats{Category: model.CategoryWire, ByMethod: map[model.Method]int{}}
	for _, m := range model.Methods {
		wire.ByMethod[m] = 0
	}
	for _, rec := range ds.Wire {
		wire.Total++
		wire.ByMethod[rec.Method]++
		if WireCertificateExpired(rec.IssueDate, now) {
			wire.Expired++
		} else {
			wire.Active++
		}
	}

	welders := Stats{Category: model.CategoryWelders, ByGroup: map[string]int{}}
	for group, recs := range ds.Welders {
		welders.ByGroup[group] = len(recs)
		for _, rec := range recs {
			welders.Total++
			countValidity(&welders, rec.ValidUntil, now)
		}
	}

	specialists := Stats{Category: model.CategorySpecialists}
	for _, recs := range ds.Specialists {
		for _, rec := range recs {
			specialists.Total++
			if rec.Group == level3Group {
				specialists.Level3++
			}
			countValidity(&specialists, rec.ValidUntil, now)
		}
	}

	techprocess := Stats{Category: model.CategoryTechprocess, ByGroup: map[string]int{}}
	for group, recs := range ds.Techprocess {
		techprocess.ByGroup[group] = len(recs)
		for _, rec := range recs {
			techprocess.Total++
			countValidity(&techprocess, rec.ValidUntil, now)
		}
	}

	return []Stats{wire, welders, specialists, techprocess}
}

func countValidity(s *Stats, validUntil string, now time.Time) {
	if IsExpired(validUntil, now) {
		s.Expired++
		return
	}
	s.Active++
}

// CertificateKind — тип файла документа для предпросмотра.
type CertificateKind string

const (
	CertificateNone  CertificateKind = "none"
	CertificatePDF   CertificateKind = "pdf"
	CertificateImage CertificateKind = "image"
	CertificateFile  CertificateKind = "file"
)

// KindOf определяет тип документа по расширению ссылки.
func KindOf(ref string) CertificateKind {
	if strings.TrimSpace(ref) == "" {
		return CertificateNone
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".pdf":
		return CertificatePDF
	case ".jpg", ".jpeg", ".png", ".gif":
		return CertificateImage
	default:
		return CertificateFile
	}
}
