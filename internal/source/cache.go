// cache.go — LRU-кэш ресурсов с TTL поверх любого Fetcher.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package source

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wr_source_cache_hits_total",
		Help: "Общее количество попаданий в кэш ресурсов реестров.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wr_source_cache_misses_total",
		Help: "Общее количество промахов кэша ресурсов реестров.",
	})
)

// CachedFetcher кэширует успешно полученные ресурсы.
// Ошибки (в том числе ErrNotFound) не кэшируются.
type CachedFetcher struct {
	next  Fetcher
	cache *expirable.LRU[string, []byte]
}

// NewCachedFetcher создаёт кэш размером maxSize с временем жизни ttl.
func NewCachedFetcher(next Fetcher, maxSize int, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:  next,
		cache: expirable.NewLRU[string, []byte](maxSize, nil, ttl),
	}
}

// Fetch возвращает ресурс из кэша или загружает его.
func (c *CachedFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if data, ok := c.cache.Get(path); ok {
		cacheHitsTotal.Inc()
		return append([]byte(nil), data...), nil
	}
	cacheMissesTotal.Inc()

	data, err := c.next.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, append([]byte(nil), data...))
	return data, nil
}

// Purge очищает кэш (принудительная перезагрузка реестров).
func (c *CachedFetcher) Purge() {
	c.cache.Purge()
}

// Len — количество ресурсов в кэше.
func (c *CachedFetcher) Len() int {
	return c.cache.Len()
}
