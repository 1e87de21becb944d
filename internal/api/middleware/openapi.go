// openapi.go — проверка входящих запросов по OpenAPI-контракту (kin-openapi).
// Запросы вне контракта пропускаются без проверки: их обрабатывает роутер.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/weldregistry/internal/api/errors"
)

// RequestValidator — middleware проверки параметров и тела запроса.
type RequestValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewRequestValidator строит маршрутизатор контракта.
func NewRequestValidator(doc *openapi3.T, logger *slog.Logger) (*RequestValidator, error) {
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return &RequestValidator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware возвращает HTTP middleware проверки запросов.
func (v *RequestValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не соответствует контракту",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage сокращает ошибку kin-openapi до понятного сообщения.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		reason := reqErr.Reason
		if reason == "" && reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		if reqErr.Parameter != nil {
			return "Некорректный параметр " + reqErr.Parameter.Name + ": " + reason
		}
		if reqErr.RequestBody != nil {
			return "Некорректное тело запроса: " + reqErr.Error()
		}
	}
	return "Запрос не соответствует контракту: " + err.Error()
}
