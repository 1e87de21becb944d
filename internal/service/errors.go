// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

var (
	// ErrNotFound — резервная копия или файл архива не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrRecordNotFound — запись реестра не найдена (неверный id, категория или индекс).
	ErrRecordNotFound = errors.New("запись не найдена")
	// ErrPersistence — не удалось сохранить состояние в хранилище.
	// In-memory изменения операции при этом откатываются.
	ErrPersistence = errors.New("ошибка сохранения в хранилище")
	// ErrEmptyExport — в реестре нет данных для выгрузки.
	ErrEmptyExport = errors.New("нет данных для экспорта")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// LoadError — сбой загрузки одного ресурса. Не прерывает загрузку:
// ресурс считается пустым.
type LoadError struct {
	Category model.Category
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Category, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
