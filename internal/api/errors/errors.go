// Пакет errors — ответы с ошибками REST API реестра.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeMissingFilter        = "MISSING_FILTER"
	CodeInvalidFormat        = "INVALID_FORMAT"
	CodePersistenceFailed    = "PERSISTENCE_FAILED"
	CodeEmptyExport          = "EMPTY_EXPORT"
	CodeInternalError        = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// ConfirmationRequired — 409 разрушающая операция без confirm=true.
func ConfirmationRequired(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConfirmationRequired, message)
}

// MissingFilter — 400 не заполнены обязательные фильтры поиска.
func MissingFilter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeMissingFilter, message)
}

// InvalidFormat — 422 документ не соответствует формату.
func InvalidFormat(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnprocessableEntity, CodeInvalidFormat, message)
}

// PersistenceFailed — 503 хранилище недоступно, изменения отменены.
func PersistenceFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodePersistenceFailed, message)
}

// EmptyExport — 404 нет данных для выгрузки.
func EmptyExport(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeEmptyExport, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
