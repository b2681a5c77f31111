package messaging

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultPartitionQueueSize = 64

// ErrPartitionBusy очередь партиции заполнена, сообщение не принято
var ErrPartitionBusy = errors.New("partition queue is full")

// Заголовки сообщений dead letter topic
const (
	HeaderDeadLetterError     = "dlq_error"
	HeaderDeadLetterTopic     = "dlq_original_topic"
	HeaderDeadLetterPartition = "dlq_original_partition"
	HeaderDeadLetterOffset    = "dlq_original_offset"
	HeaderDeadLetterAttempts  = "dlq_attempts"
)

// DeadLetterFunc отправляет необрабатываемое сообщение в dead letter topic
type DeadLetterFunc func(ctx context.Context, msg *interfaces.Message, cause error) error

// CommitFunc подтверждает сообщение и все предыдущие в его партиции
type CommitFunc func(msg *interfaces.Message) error

// PartitionKey идентификатор партиции топика
type PartitionKey struct {
	Topic     string
	Partition int32
}

// Dispatcher раздает сообщения обработчикам партиций.
// Внутри партиции сообщения обрабатываются строго последовательно,
// разные партиции обрабатываются параллельно.
type Dispatcher struct {
	handler    interfaces.MessageHandler
	retry      RetryPolicy
	deadLetter DeadLetterFunc
	commit     CommitFunc
	logger     interfaces.LoggerPort
	tracer     trace.Tracer
	queueSize  int

	mu      sync.Mutex
	workers map[PartitionKey]*partitionWorker
	closed  bool
}

// DispatcherOption настройка Dispatcher
type DispatcherOption func(*Dispatcher)

// WithPartitionQueueSize задает глубину очереди одной партиции
func WithPartitionQueueSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// NewDispatcher создает Dispatcher
func NewDispatcher(handler interfaces.MessageHandler, retry RetryPolicy, deadLetter DeadLetterFunc,
	commit CommitFunc, logger interfaces.LoggerPort, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handler:    handler,
		retry:      retry,
		deadLetter: deadLetter,
		commit:     commit,
		logger:     logger.WithComponent("dispatcher"),
		tracer:     otel.Tracer("github.com/athebyme/product-composite-platform/pkg/messaging"),
		queueSize:  defaultPartitionQueueSize,
		workers:    make(map[PartitionKey]*partitionWorker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type partitionWorker struct {
	key    PartitionKey
	queue  chan *interfaces.Message
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Dispatch ставит сообщение в очередь его партиции без ожидания.
// Если очередь заполнена, возвращает ErrPartitionBusy и сообщение не принимается.
// Dispatch и Drain не вызываются конкурентно.
func (d *Dispatcher) Dispatch(msg *interfaces.Message) error {
	w, err := d.worker(PartitionKey{Topic: msg.Topic, Partition: msg.Partition})
	if err != nil {
		return err
	}
	select {
	case w.queue <- msg:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	default:
		return ErrPartitionBusy
	}
}

func (d *Dispatcher) worker(key PartitionKey) (*partitionWorker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, context.Canceled
	}
	if w, ok := d.workers[key]; ok {
		return w, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &partitionWorker{
		key:    key,
		queue:  make(chan *interfaces.Message, d.queueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.workers[key] = w
	metrics.ActivePartitionWorkers.Inc()

	go d.run(w)
	return w, nil
}

// Revoke останавливает обработчики отозванных партиций.
// Необработанные сообщения из их очередей будут доставлены новому владельцу партиции.
func (d *Dispatcher) Revoke(keys ...PartitionKey) {
	d.mu.Lock()
	var stopping []*partitionWorker
	for _, key := range keys {
		if w, ok := d.workers[key]; ok {
			delete(d.workers, key)
			stopping = append(stopping, w)
		}
	}
	d.mu.Unlock()

	stopWorkers(stopping)
}

// Drain дожидается обработки всех поставленных в очередь сообщений
// и останавливает обработчики. Новые сообщения не принимаются.
// По отмене ctx оставшиеся обработчики останавливаются после текущего сообщения,
// неподтвержденные сообщения будут доставлены повторно.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	workers := d.takeWorkers()
	d.mu.Unlock()

	for _, w := range workers {
		close(w.queue)
	}

	var err error
	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			err = ctx.Err()
			w.cancel()
			<-w.done
		}
		w.cancel()
	}
	return err
}

func (d *Dispatcher) takeWorkers() []*partitionWorker {
	workers := make([]*partitionWorker, 0, len(d.workers))
	for key, w := range d.workers {
		workers = append(workers, w)
		delete(d.workers, key)
	}
	return workers
}

func stopWorkers(workers []*partitionWorker) {
	for _, w := range workers {
		w.cancel()
	}
	for _, w := range workers {
		<-w.done
	}
}

func (d *Dispatcher) run(w *partitionWorker) {
	defer close(w.done)
	defer metrics.ActivePartitionWorkers.Dec()

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				return
			}
			if !d.process(w.ctx, msg) {
				return
			}
			if err := d.commit(msg); err != nil {
				d.logger.Error("Ошибка подтверждения сообщения",
					interfaces.LogField{Key: "topic", Value: msg.Topic},
					interfaces.LogField{Key: "partition", Value: msg.Partition},
					interfaces.LogField{Key: "offset", Value: msg.Offset},
					interfaces.Err(err),
				)
			}
		}
	}
}

// process обрабатывает сообщение с повторами. Возвращает true, если сообщение
// применено или отправлено в dead letter topic и его можно подтвердить.
func (d *Dispatcher) process(ctx context.Context, msg *interfaces.Message) bool {
	start := time.Now()
	defer metrics.Since(metrics.EventProcessingDuration, start, msg.Topic)

	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Headers))
	msgCtx, span := d.tracer.Start(msgCtx, "process "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.destination.partition", int(msg.Partition)),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", msg.Key),
		))
	defer span.End()

	log := d.logger.WithFields(
		interfaces.LogField{Key: "topic", Value: msg.Topic},
		interfaces.LogField{Key: "partition", Value: msg.Partition},
		interfaces.LogField{Key: "offset", Value: msg.Offset},
		interfaces.LogField{Key: "key", Value: msg.Key},
	)

	var err error
	maxAttempts := d.retry.attempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		msg.Attempts = attempt
		err = d.handler(msgCtx, msg)
		if err == nil {
			metrics.EventsConsumed.WithLabelValues(msg.Topic, metrics.StatusSuccess).Inc()
			return true
		}
		if apperrors.IsFatal(err) {
			log.WarnWithContext(msgCtx, "Событие не может быть обработано",
				interfaces.LogField{Key: "attempt", Value: attempt}, interfaces.Err(err))
			metrics.EventsConsumed.WithLabelValues(msg.Topic, metrics.StatusRejected).Inc()
			break
		}
		if ctx.Err() != nil {
			return false
		}

		log.WarnWithContext(msgCtx, "Ошибка обработки сообщения",
			interfaces.LogField{Key: "attempt", Value: attempt},
			interfaces.LogField{Key: "max_attempts", Value: maxAttempts},
			interfaces.Err(err))
		if attempt < maxAttempts {
			metrics.EventsConsumed.WithLabelValues(msg.Topic, metrics.StatusRetry).Inc()
			if !sleep(ctx, d.retry.Delay(attempt)) {
				return false
			}
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return d.sendToDeadLetter(ctx, msgCtx, msg, err, log)
}

// sendToDeadLetter повторяет отправку в dead letter topic до успеха
// или остановки обработчика партиции
func (d *Dispatcher) sendToDeadLetter(ctx, msgCtx context.Context, msg *interfaces.Message, cause error, log interfaces.LoggerPort) bool {
	for attempt := 1; ; attempt++ {
		err := d.deadLetter(msgCtx, msg, cause)
		if err == nil {
			log.ErrorWithContext(msgCtx, "Сообщение отправлено в dead letter topic", interfaces.Err(cause))
			metrics.EventsConsumed.WithLabelValues(msg.Topic, metrics.StatusDeadLetter).Inc()
			return true
		}
		log.ErrorWithContext(msgCtx, "Ошибка отправки в dead letter topic",
			interfaces.LogField{Key: "attempt", Value: attempt}, interfaces.Err(err))
		if !sleep(ctx, d.retry.Delay(attempt)) {
			return false
		}
	}
}

// DeadLetterHeaders заголовки сообщения для dead letter topic
func DeadLetterHeaders(msg *interfaces.Message, cause error) map[string]string {
	headers := make(map[string]string, len(msg.Headers)+5)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderDeadLetterTopic] = msg.Topic
	headers[HeaderDeadLetterPartition] = strconv.Itoa(int(msg.Partition))
	headers[HeaderDeadLetterOffset] = strconv.FormatInt(msg.Offset, 10)
	headers[HeaderDeadLetterAttempts] = strconv.Itoa(msg.Attempts)
	if cause != nil {
		headers[HeaderDeadLetterError] = cause.Error()
	}
	return headers
}
