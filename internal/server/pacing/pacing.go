// Package pacing ограничивает частоту обращений к модели: не больше одного
// вызова на ключ (пользователя) за интервал. Лишние вызовы отклоняются
// с *TooSoonError, в очередь не ставятся.
package pacing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// Pacer решает, можно ли сейчас выполнить вызов для key.
// При успехе вызов засчитывается. Forget снимает ограничение (logout).
type Pacer interface {
	Allow(ctx context.Context, key string) error
	Forget(ctx context.Context, key string) error
}

// TooSoonError — предыдущий вызов был слишком недавно.
type TooSoonError struct {
	RetryAfter time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter.Round(time.Millisecond))
}

func (e *TooSoonError) Unwrap() error { return serr.ErrTooSoon }

// RetryAfterSeconds — значение для заголовка Retry-After, минимум 1.
func (e *TooSoonError) RetryAfterSeconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// Noop пропускает всё. Используется при нулевом интервале.
type Noop struct{}

func (Noop) Allow(context.Context, string) error  { return nil }
func (Noop) Forget(context.Context, string) error { return nil }

// Memory хранит время последнего вызова по ключу в памяти процесса.
type Memory struct {
	interval time.Duration
	clock    clockwork.Clock

	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemory(interval time.Duration, clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{interval: interval, clock: clock, last: make(map[string]time.Time)}
}

func (m *Memory) Allow(_ context.Context, key string) error {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.last[key]; ok {
		if wait := m.interval - now.Sub(prev); wait > 0 {
			return &TooSoonError{RetryAfter: wait}
		}
	}
	m.last[key] = now
	return nil
}

// Forget удаляет ключ.
func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.last, key)
	m.mu.Unlock()
	return nil
}

// Sweep удаляет ключи, интервал которых уже истёк. Возвращает число удалённых.
func (m *Memory) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, t := range m.last {
		if now.Sub(t) >= m.interval {
			delete(m.last, k)
			n++
		}
	}
	return n
}
