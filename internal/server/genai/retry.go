package genai

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy — экспоненциальная задержка между попытками при ошибке квоты.
type RetryPolicy struct {
	// MaxAttempts — общее число попыток, включая первую.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Generator — то, что умеет генерировать текст (Client или обёртка над ним).
type Generator interface {
	Generate(ctx context.Context, r Request) (string, error)
	Stream(ctx context.Context, r Request, onChunk func(chunk string) error) (string, error)
}

// Retrying повторяет вызовы, упавшие с ошибкой квоты. Прочие ошибки
// возвращаются сразу. После исчерпания попыток возвращается последняя ошибка квоты.
type Retrying struct {
	next   Generator
	policy RetryPolicy
}

func NewRetrying(next Generator, p RetryPolicy) *Retrying {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return &Retrying{next: next, policy: p}
}

func (r *Retrying) backoff() retry.Backoff {
	b := retry.NewExponential(r.policy.BaseDelay)
	b = retry.WithCappedDuration(r.policy.MaxDelay, b)
	return retry.WithMaxRetries(uint64(r.policy.MaxAttempts-1), b)
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		text, err := r.next.Generate(ctx, req)
		if err != nil {
			if IsQuota(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// Stream повторяет запрос, только если клиенту ещё не ушло ни одного фрагмента.
func (r *Retrying) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) (string, error) {
	var (
		out       string
		delivered bool
	)
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		text, err := r.next.Stream(ctx, req, func(chunk string) error {
			delivered = true
			if onChunk == nil {
				return nil
			}
			return onChunk(chunk)
		})
		out = text
		if err != nil {
			if IsQuota(err) && !delivered {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	return out, err
}

var (
	_ Generator = (*Client)(nil)
	_ Generator = (*Retrying)(nil)
)
