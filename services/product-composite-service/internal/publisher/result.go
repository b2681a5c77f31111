package publisher

import (
	"context"
	"sync"

	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
)

// PublishResult результат асинхронной публикации события.
// Завершается ровно один раз: подтверждением брокера или ошибкой.
type PublishResult struct {
	Topic string
	Event events.Event

	once   sync.Once
	done   chan struct{}
	report *interfaces.DeliveryReport
	err    error
}

func newResult(topic string, event events.Event) *PublishResult {
	return &PublishResult{Topic: topic, Event: event, done: make(chan struct{})}
}

func failedResult(topic string, event events.Event, err error) *PublishResult {
	r := newResult(topic, event)
	r.complete(nil, err)
	return r
}

func (r *PublishResult) complete(report *interfaces.DeliveryReport, err error) {
	r.once.Do(func() {
		r.report = report
		r.err = err
		close(r.done)
	})
}

// Done закрывается после завершения публикации
func (r *PublishResult) Done() <-chan struct{} {
	return r.done
}

// Wait ждет подтверждения брокера.
// Отмена ctx прекращает ожидание, но не публикацию.
func (r *PublishResult) Wait(ctx context.Context) (*interfaces.DeliveryReport, error) {
	select {
	case <-r.done:
		return r.report, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err возвращает ошибку публикации, если она уже завершилась
func (r *PublishResult) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// WaitAll ждет все результаты и возвращает первую ошибку
func WaitAll(ctx context.Context, results ...*PublishResult) error {
	var firstErr error
	for _, r := range results {
		if _, err := r.Wait(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
