// http.go — получение ресурсов по HTTP(S) с базового URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResourceSize — ограничение размера одного ресурса (32 МБ).
const maxResourceSize = 32 << 20

// HTTPFetcher — загрузка ресурсов по HTTP.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPFetcher создаёт загрузчик для базового URL каталога data_json.
// timeout — таймаут одного запроса; истечение трактуется как ErrNotFound.
func NewHTTPFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With(slog.String("component", "source_http")),
	}
}

// BaseURL возвращает базовый URL источника.
func (f *HTTPFetcher) BaseURL() string {
	return f.baseURL
}

// Fetch выполняет GET {baseURL}/{path}.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	reqURL := f.baseURL + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			f.logger.Warn("Таймаут загрузки ресурса",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: %s: таймаут", ErrNotFound, path)
		}
		return nil, fmt.Errorf("запрос %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrNotFound, path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s: таймаут чтения", ErrNotFound, path)
		}
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	if len(data) > maxResourceSize {
		return nil, fmt.Errorf("ресурс %s превышает %d байт", path, maxResourceSize)
	}
	return data, nil
}

// isTimeout проверяет, вызвана ли ошибка истечением таймаута.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
