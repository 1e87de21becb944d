// Пакет notify — уведомления пользователя о результате операций.
// Сервисы сообщают результат каждой изменяющей операции ровно одним
// уведомлением; способ доставки (лог, HTTP-ответ, UI) выбирает вызывающий код.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Severity — важность уведомления.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification — одно уведомление.
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notifier — получатель уведомлений.
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity)
}

// LogNotifier пишет уведомления в slog с уровнем по важности.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier создаёт Notifier поверх логгера.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Notify(ctx context.Context, message string, severity Severity) {
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	n.logger.LogAttrs(ctx, level, message, slog.String("severity", string(severity)))
}

// Recorder запоминает уведомления. Используется в тестах.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Notify(_ context.Context, message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, Notification{Message: message, Severity: severity})
}

// All возвращает копию записанных уведомлений.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

// Last возвращает последнее уведомление.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) == 0 {
		return Notification{}, false
	}
	return r.list[len(r.list)-1], true
}

// Reset очищает список.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = nil
}

// --- Доставка в HTTP-ответ ---

type ctxKey struct{}

// collector — уведомления одного запроса.
type collector struct {
	mu   sync.Mutex
	list []Notification
}

// WithCollector возвращает контекст, в котором Dispatcher дополнительно
// сохраняет уведомления для ответа на текущий запрос.
func WithCollector(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &collector{})
}

// Collected возвращает уведомления, накопленные в контексте запроса.
func Collected(ctx context.Context) []Notification {
	c, ok := ctx.Value(ctxKey{}).(*collector)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.list...)
}

// Dispatcher передаёт уведомление в next и в коллектор запроса (если есть).
type Dispatcher struct {
	next Notifier
}

// NewDispatcher создаёт Dispatcher поверх постоянного получателя (обычно LogNotifier).
func NewDispatcher(next Notifier) *Dispatcher {
	return &Dispatcher{next: next}
}

func (d *Dispatcher) Notify(ctx context.Context, message string, severity Severity) {
	if d.next != nil {
		d.next.Notify(ctx, message, severity)
	}
	if c, ok := ctx.Value(ctxKey{}).(*collector); ok {
		c.mu.Lock()
		c.list = append(c.list, Notification{Message: message, Severity: severity})
		c.mu.Unlock()
	}
}
