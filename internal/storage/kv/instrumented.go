// instrumented.go — Prometheus-метрики операций хранилища.
// Регистрирует метрики: wr_kv_operations_total, wr_kv_operation_duration_seconds.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	kvOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wr_kv_operations_total",
			Help: "Общее количество операций с хранилищем ключ-значение",
		},
		[]string{"backend", "op", "result"},
	)

	kvOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wr_kv_operation_duration_seconds",
			Help:    "Длительность операций с хранилищем ключ-значение в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// Instrumented — обёртка Store, считающая операции и их длительность.
type Instrumented struct {
	next    Store
	backend string
}

// WithMetrics оборачивает хранилище сбором метрик.
func WithMetrics(next Store, backend Backend) *Instrumented {
	return &Instrumented{next: next, backend: string(backend)}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	kvOperationsTotal.WithLabelValues(i.backend, op, result).Inc()
	kvOperationDuration.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Put(ctx, key, value)
	i.observe("put", start, err)
	return err
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return v, err
}

func (i *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	i.observe("delete", start, err)
	return err
}

func (i *Instrumented) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := i.next.ListKeysWithPrefix(ctx, prefix)
	i.observe("list", start, err)
	return keys, err
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
