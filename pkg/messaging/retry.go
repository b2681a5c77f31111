package messaging

import (
	"context"
	"time"
)

// RetryPolicy политика повторной обработки сообщения
type RetryPolicy struct {
	MaxAttempts int           // общее число попыток, включая первую
	Backoff     time.Duration // задержка перед второй попыткой
	MaxBackoff  time.Duration // верхняя граница задержки
}

// DefaultRetryPolicy три попытки с задержкой от 500ms до 10s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second}
}

// Delay возвращает задержку после неудачной попытки attempt (начиная с 1).
// Задержка растет вдвое с каждой попыткой и не превышает MaxBackoff.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// sleep ждет d или отмены контекста. Возвращает false при отмене
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
