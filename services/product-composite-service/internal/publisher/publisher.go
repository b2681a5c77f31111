// Package publisher публикует события изменений в Kafka на выделенном пуле воркеров.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
)

// HeaderEventType заголовок с типом события
const HeaderEventType = "event_type"

var (
	// ErrPublishQueueFull очередь публикации заполнена
	ErrPublishQueueFull = errors.New("publish queue is full")
	// ErrPublisherClosed публикатор остановлен
	ErrPublisherClosed = errors.New("publisher is closed")
)

type job struct {
	ctx    context.Context
	value  []byte
	result *PublishResult
}

// EventPublisher отправляет события асинхронно.
// Вызывающий получает PublishResult сразу, отправка выполняется воркерами пула.
// События с одним ключом попадают в очередь одного воркера и уходят в порядке вызова Publish.
type EventPublisher struct {
	publisher interfaces.Publisher
	logger    interfaces.LoggerPort

	queues []chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewEventPublisher запускает poolSize воркеров, у каждого своя очередь глубины queueSize
func NewEventPublisher(publisher interfaces.Publisher, poolSize, queueSize int, logger interfaces.LoggerPort) *EventPublisher {
	if poolSize < 1 {
		poolSize = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &EventPublisher{
		publisher: publisher,
		logger:    logger.WithComponent("event-publisher"),
		queues:    make([]chan job, poolSize),
	}

	p.wg.Add(poolSize)
	for i := range p.queues {
		p.queues[i] = make(chan job, queueSize)
		go p.worker(p.queues[i])
	}
	return p
}

// queueFor закрепляет ключ за одним воркером
func (p *EventPublisher) queueFor(key int) chan job {
	idx := key % len(p.queues)
	if idx < 0 {
		idx += len(p.queues)
	}
	return p.queues[idx]
}

func (p *EventPublisher) queued() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}

// Publish создает событие с ключом key и ставит его в очередь отправки.
// Отмена ctx не прерывает принятую публикацию, из ctx берется только контекст трассировки.
func (p *EventPublisher) Publish(ctx context.Context, topic string, key int, eventType events.Type, payload interface{}) *PublishResult {
	event, err := events.NewWithPayload(eventType, key, payload)
	if err != nil {
		return p.reject(ctx, topic, event, fmt.Errorf("failed to build event: %w", err))
	}

	value, err := event.Encode()
	if err != nil {
		return p.reject(ctx, topic, event, fmt.Errorf("failed to encode event: %w", err))
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.reject(ctx, topic, event, ErrPublisherClosed)
	}

	result := newResult(topic, event)
	select {
	case p.queueFor(key) <- job{ctx: context.WithoutCancel(ctx), value: value, result: result}:
		metrics.PublisherQueueDepth.Set(float64(p.queued()))
		p.logger.DebugWithContext(ctx, "Событие поставлено в очередь",
			interfaces.LogField{Key: "topic", Value: topic},
			interfaces.LogField{Key: "event", Value: event.String()})
		return result
	default:
		return p.reject(ctx, topic, event, ErrPublishQueueFull)
	}
}

func (p *EventPublisher) reject(ctx context.Context, topic string, event events.Event, err error) *PublishResult {
	metrics.EventsPublished.WithLabelValues(topic, metrics.StatusRejected).Inc()
	p.logger.ErrorWithContext(ctx, "Событие не принято к публикации",
		interfaces.LogField{Key: "topic", Value: topic},
		interfaces.LogField{Key: "key", Value: event.Key()},
		interfaces.Err(err))
	return failedResult(topic, event, err)
}

func (p *EventPublisher) worker(jobs <-chan job) {
	defer p.wg.Done()
	for j := range jobs {
		metrics.PublisherQueueDepth.Set(float64(p.queued()))
		p.send(j)
	}
}

func (p *EventPublisher) send(j job) {
	r := j.result
	start := time.Now()

	report, err := p.publisher.Publish(j.ctx, r.Topic, r.Event.PartitionKey(), j.value,
		map[string]string{HeaderEventType: string(r.Event.Type())})
	metrics.Since(metrics.EventPublishDuration, start, r.Topic)

	if err != nil {
		metrics.EventsPublished.WithLabelValues(r.Topic, metrics.StatusError).Inc()
		p.logger.ErrorWithContext(j.ctx, "Ошибка публикации события",
			interfaces.LogField{Key: "topic", Value: r.Topic},
			interfaces.LogField{Key: "event", Value: r.Event.String()},
			interfaces.Err(err))
		r.complete(nil, fmt.Errorf("failed to publish %s event for key %d: %w", r.Event.Type(), r.Event.Key(), err))
		return
	}

	metrics.EventsPublished.WithLabelValues(r.Topic, metrics.StatusSuccess).Inc()
	fields := []interface{}{
		interfaces.LogField{Key: "topic", Value: r.Topic},
		interfaces.LogField{Key: "event", Value: r.Event.String()},
	}
	if report != nil {
		fields = append(fields,
			interfaces.LogField{Key: "partition", Value: report.Partition},
			interfaces.LogField{Key: "offset", Value: report.Offset})
	}
	p.logger.InfoWithContext(j.ctx, "Событие опубликовано", fields...)
	r.complete(report, nil)
}

// Close прекращает прием событий и ждет отправки поставленных в очередь
func (p *EventPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain publish queue: %w", ctx.Err())
	}
}
