package source

import (
	"context"
	"fmt"
	"sync"
)

// MemoryFetcher — ресурсы в памяти (тесты, офлайн-утилиты).
type MemoryFetcher struct {
	mu    sync.RWMutex
	files map[string][]byte
	calls map[string]int
}

// NewMemoryFetcher создаёт загрузчик с заданным содержимым.
func NewMemoryFetcher(files map[string][]byte) *MemoryFetcher {
	m := &MemoryFetcher{files: make(map[string][]byte, len(files)), calls: make(map[string]int)}
	for k, v := range files {
		m.files[k] = v
	}
	return m
}

// Set добавляет или заменяет ресурс.
func (m *MemoryFetcher) Set(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
}

// Calls возвращает число обращений к пути.
func (m *MemoryFetcher) Calls(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[path]
}

func (m *MemoryFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[path]++
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return append([]byte(nil), data...), nil
}
