package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/events"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

type sentMessage struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
	ctxErr  error
}

type fakePublisher struct {
	mu      sync.Mutex
	sent    []sentMessage
	err     error
	started chan struct{}
	release chan struct{}

	// delayFirst задерживает только первый вызов
	delayFirst time.Duration
	calls      int
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) (*interfaces.DeliveryReport, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first && f.delayFirst > 0 {
		time.Sleep(f.delayFirst)
	}

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, value: value, headers: headers, ctxErr: ctx.Err()})
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.DeliveryReport{Topic: topic, Partition: 1, Offset: int64(len(f.sent)), Key: key}, nil
}

func (f *fakePublisher) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPublishSendsEvent(t *testing.T) {
	fake := &fakePublisher{}
	p := NewEventPublisher(fake, 2, 10, logger.NewNop())
	defer p.Close(context.Background())

	product := models.Product{ProductID: 42, Name: "widget", Weight: 1}
	report, err := p.Publish(context.Background(), models.TopicProducts, 42, events.Create, product).Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.Topic != models.TopicProducts || report.Key != "42" {
		t.Fatalf("unexpected report: %+v", report)
	}

	sent := fake.messages()
	if len(sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sent))
	}
	if sent[0].key != "42" || sent[0].headers[HeaderEventType] != "CREATE" {
		t.Fatalf("unexpected message: %+v", sent[0])
	}

	event, err := events.Decode(sent[0].value)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	var decoded models.Product
	if err := event.DecodeData(&decoded); err != nil || decoded != product {
		t.Fatalf("unexpected payload %+v %v", decoded, err)
	}
}

func TestPublishDoesNotBlockCaller(t *testing.T) {
	fake := &fakePublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewEventPublisher(fake, 1, 4, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	result := p.Publish(ctx, models.TopicProducts, 1, events.Delete, nil)
	<-fake.started

	select {
	case <-result.Done():
		t.Fatal("result should not be completed before broker ack")
	default:
	}

	// отмена контекста запроса не отменяет публикацию
	cancel()
	close(fake.release)

	if _, err := result.Wait(waitCtx(t)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if sent := fake.messages(); sent[0].ctxErr != nil {
		t.Fatalf("publish context was cancelled: %v", sent[0].ctxErr)
	}
	if err := p.Close(waitCtx(t)); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishKeepsOrderPerKey(t *testing.T) {
	fake := &fakePublisher{delayFirst: 50 * time.Millisecond}
	p := NewEventPublisher(fake, 10, 10, logger.NewNop())
	defer p.Close(context.Background())

	product := models.Product{ProductID: 1, Name: "widget"}
	created := p.Publish(context.Background(), models.TopicProducts, 1, events.Create, product)
	deleted := p.Publish(context.Background(), models.TopicProducts, 1, events.Delete, nil)
	if err := WaitAll(waitCtx(t), created, deleted); err != nil {
		t.Fatalf("publish: %v", err)
	}

	sent := fake.messages()
	if len(sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(sent))
	}
	if sent[0].headers[HeaderEventType] != "CREATE" || sent[1].headers[HeaderEventType] != "DELETE" {
		t.Fatalf("events for one key were reordered: %s, %s",
			sent[0].headers[HeaderEventType], sent[1].headers[HeaderEventType])
	}
}

func TestPublishOtherKeysAreNotBlocked(t *testing.T) {
	fake := &fakePublisher{started: make(chan struct{}, 4), release: make(chan struct{})}
	p := NewEventPublisher(fake, 2, 1, logger.NewNop())

	// ключи 1 и 3 у одного воркера, 2 и -2 у другого
	blocked := p.Publish(context.Background(), models.TopicProducts, 1, events.Delete, nil)
	<-fake.started
	waiting := p.Publish(context.Background(), models.TopicProducts, 3, events.Delete, nil)
	if err := p.Publish(context.Background(), models.TopicProducts, 5, events.Delete, nil).Err(); !errors.Is(err, ErrPublishQueueFull) {
		t.Fatalf("expected queue full for the busy worker, got %v", err)
	}

	other := p.Publish(context.Background(), models.TopicProducts, 2, events.Delete, nil)
	select {
	case <-fake.started:
	case <-time.After(5 * time.Second):
		t.Fatal("idle worker did not pick up its key")
	}
	negative := p.Publish(context.Background(), models.TopicProducts, -2, events.Delete, nil)

	go func() {
		for range fake.started {
		}
	}()
	close(fake.release)

	if err := WaitAll(waitCtx(t), blocked, waiting, other); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := negative.Wait(waitCtx(t)); err != nil && !errors.Is(err, ErrPublishQueueFull) {
		t.Fatalf("negative key: %v", err)
	}
	if err := p.Close(waitCtx(t)); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(fake.started)
}

func TestPublishQueueFull(t *testing.T) {
	fake := &fakePublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewEventPublisher(fake, 1, 1, logger.NewNop())

	first := p.Publish(context.Background(), models.TopicProducts, 1, events.Delete, nil)
	<-fake.started
	second := p.Publish(context.Background(), models.TopicProducts, 2, events.Delete, nil)
	third := p.Publish(context.Background(), models.TopicProducts, 3, events.Delete, nil)

	if err := third.Err(); !errors.Is(err, ErrPublishQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}

	go func() {
		for range fake.started {
		}
	}()
	close(fake.release)

	if err := WaitAll(waitCtx(t), first, second); err != nil {
		t.Fatalf("queued events should be published: %v", err)
	}
	if err := p.Close(waitCtx(t)); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(fake.started)
}

func TestPublishFailureIsReported(t *testing.T) {
	fake := &fakePublisher{err: errors.New("broker unavailable")}
	p := NewEventPublisher(fake, 1, 1, logger.NewNop())
	defer p.Close(context.Background())

	result := p.Publish(context.Background(), models.TopicReviews, 7, events.Delete, nil)
	_, err := result.Wait(waitCtx(t))
	if err == nil || !errors.Is(err, fake.err) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if err := WaitAll(waitCtx(t), result); err == nil {
		t.Fatal("WaitAll should return the failure")
	}
}

func TestPublishAfterClose(t *testing.T) {
	fake := &fakePublisher{}
	p := NewEventPublisher(fake, 1, 1, logger.NewNop())

	queued := p.Publish(context.Background(), models.TopicProducts, 1, events.Delete, nil)
	if err := p.Close(waitCtx(t)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := queued.Err(); err != nil {
		t.Fatalf("queued event should be sent before close returns: %v", err)
	}
	select {
	case <-queued.Done():
	default:
		t.Fatal("queued event should be completed after close")
	}

	if err := p.Publish(context.Background(), models.TopicProducts, 2, events.Delete, nil).Err(); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	fake := &fakePublisher{release: make(chan struct{})}
	p := NewEventPublisher(fake, 1, 1, logger.NewNop())

	result := p.Publish(context.Background(), models.TopicProducts, 1, events.Delete, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := result.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(fake.release)
	if _, err := result.Wait(waitCtx(t)); err != nil {
		t.Fatalf("publish should still complete: %v", err)
	}
	_ = p.Close(waitCtx(t))
}
