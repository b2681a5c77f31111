package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
)

type recorder struct {
	mu          sync.Mutex
	handled     []string
	committed   []int64
	deadLetters []string
	dlqFailures int
}

func (r *recorder) commit(msg *interfaces.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msg.Offset)
	return nil
}

func (r *recorder) deadLetter(_ context.Context, msg *interfaces.Message, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dlqFailures > 0 {
		r.dlqFailures--
		return errors.New("broker unavailable")
	}
	headers := DeadLetterHeaders(msg, cause)
	r.deadLetters = append(r.deadLetters, fmt.Sprintf("%s@%d:%s", msg.Key, msg.Offset, headers[HeaderDeadLetterAttempts]))
	return nil
}

func (r *recorder) snapshot() ([]string, []int64, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.handled...), append([]int64(nil), r.committed...), append([]string(nil), r.deadLetters...)
}

func message(topic string, partition int32, offset int64, key string) *interfaces.Message {
	return &interfaces.Message{Topic: topic, Partition: partition, Offset: offset, Key: key}
}

var fastRetry = RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestDispatcherProcessesPartitionInOrder(t *testing.T) {
	rec := &recorder{}
	handler := func(_ context.Context, msg *interfaces.Message) error {
		rec.mu.Lock()
		rec.handled = append(rec.handled, msg.Key)
		rec.mu.Unlock()
		return nil
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop())

	for i := int64(0); i < 20; i++ {
		if err := d.Dispatch(message("products", 0, i, fmt.Sprint(i))); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	d.Drain(context.Background())

	handled, committed, dead := rec.snapshot()
	if len(handled) != 20 || len(committed) != 20 || len(dead) != 0 {
		t.Fatalf("unexpected counts: handled=%d committed=%d dead=%d", len(handled), len(committed), len(dead))
	}
	for i, key := range handled {
		if key != fmt.Sprint(i) {
			t.Fatalf("out of order at %d: %v", i, handled)
		}
		if committed[i] != int64(i) {
			t.Fatalf("commit out of order at %d: %v", i, committed)
		}
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	rec := &recorder{}
	var calls int
	handler := func(_ context.Context, msg *interfaces.Message) error {
		calls++
		if calls < 3 {
			return errors.New("database is unavailable")
		}
		if msg.Attempts != 3 {
			t.Errorf("expected third attempt, got %d", msg.Attempts)
		}
		return nil
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop())

	if err := d.Dispatch(message("reviews", 1, 5, "1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	d.Drain(context.Background())

	_, committed, dead := rec.snapshot()
	if calls != 3 || len(committed) != 1 || len(dead) != 0 {
		t.Fatalf("calls=%d committed=%v dead=%v", calls, committed, dead)
	}
}

func TestDispatcherSendsFatalErrorsToDeadLetterWithoutRetry(t *testing.T) {
	rec := &recorder{dlqFailures: 2}
	var calls int
	handler := func(_ context.Context, msg *interfaces.Message) error {
		calls++
		if msg.Offset == 0 {
			return apperrors.NewEventProcessingError("Incorrect event type: UPDATE, expected a CREATE or DELETE event")
		}
		return nil
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop())

	_ = d.Dispatch(message("products", 0, 0, "1"))
	_ = d.Dispatch(message("products", 0, 1, "1"))
	d.Drain(context.Background())

	_, committed, dead := rec.snapshot()
	if calls != 2 {
		t.Fatalf("fatal error must not be retried, calls=%d", calls)
	}
	if len(dead) != 1 || dead[0] != "1@0:1" {
		t.Fatalf("unexpected dead letters: %v", dead)
	}
	if len(committed) != 2 || committed[0] != 0 || committed[1] != 1 {
		t.Fatalf("unexpected commits: %v", committed)
	}
}

func TestDispatcherDeadLettersAfterRetriesExhausted(t *testing.T) {
	rec := &recorder{}
	var calls int
	handler := func(context.Context, *interfaces.Message) error {
		calls++
		return errors.New("timeout")
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop())

	_ = d.Dispatch(message("recommendations", 0, 9, "2"))
	d.Drain(context.Background())

	_, committed, dead := rec.snapshot()
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(dead) != 1 || dead[0] != "2@9:3" || len(committed) != 1 {
		t.Fatalf("dead=%v committed=%v", dead, committed)
	}
}

func TestDispatcherRunsPartitionsInParallel(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	started := make(chan int32, 2)
	handler := func(_ context.Context, msg *interfaces.Message) error {
		started <- msg.Partition
		<-release
		return nil
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop())

	_ = d.Dispatch(message("products", 0, 0, "1"))
	_ = d.Dispatch(message("products", 1, 0, "2"))

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("partitions are not processed in parallel")
		}
	}
	close(release)
	d.Drain(context.Background())

	if _, committed, _ := rec.snapshot(); len(committed) != 2 {
		t.Fatalf("unexpected commits: %v", committed)
	}
}

func TestDispatcherRevokeStopsWithoutCommit(t *testing.T) {
	rec := &recorder{}
	handler := func(ctx context.Context, _ *interfaces.Message) error {
		<-ctx.Done()
		return ctx.Err()
	}
	d := NewDispatcher(handler, RetryPolicy{MaxAttempts: 1}, rec.deadLetter, rec.commit, logger.NewNop())

	_ = d.Dispatch(message("products", 3, 0, "1"))
	time.Sleep(10 * time.Millisecond)
	d.Revoke(PartitionKey{Topic: "products", Partition: 3})

	if _, committed, dead := rec.snapshot(); len(committed) != 0 || len(dead) != 0 {
		t.Fatalf("revoked message must stay uncommitted: committed=%v dead=%v", committed, dead)
	}
	_ = d.Drain(context.Background())
	if err := d.Dispatch(message("products", 3, 1, "1")); err == nil {
		t.Fatalf("expected error dispatching to closed dispatcher")
	}
}

func TestDispatchRejectsWhenPartitionQueueIsFull(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	handler := func(_ context.Context, msg *interfaces.Message) error {
		if msg.Partition == 0 && msg.Offset == 0 {
			started <- struct{}{}
			<-release
		}
		return nil
	}
	d := NewDispatcher(handler, fastRetry, rec.deadLetter, rec.commit, logger.NewNop(), WithPartitionQueueSize(1))

	if err := d.Dispatch(message("products", 0, 0, "1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	<-started
	if err := d.Dispatch(message("products", 0, 1, "1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	start := time.Now()
	if err := d.Dispatch(message("products", 0, 2, "1")); !errors.Is(err, ErrPartitionBusy) {
		t.Fatalf("expected busy partition, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("dispatch to a full partition must not block")
	}

	// другая партиция принимает сообщения, пока первая занята
	if err := d.Dispatch(message("products", 1, 0, "2")); err != nil {
		t.Fatalf("other partition should accept messages: %v", err)
	}

	close(release)
	d.Drain(context.Background())
	if _, committed, _ := rec.snapshot(); len(committed) != 3 {
		t.Fatalf("unexpected commits: %v", committed)
	}
}

func TestDrainStopsOnContext(t *testing.T) {
	rec := &recorder{}
	started := make(chan struct{}, 1)
	handler := func(ctx context.Context, msg *interfaces.Message) error {
		if msg.Offset == 0 {
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	d := NewDispatcher(handler, RetryPolicy{MaxAttempts: 1}, rec.deadLetter, rec.commit, logger.NewNop())

	_ = d.Dispatch(message("products", 0, 0, "1"))
	_ = d.Dispatch(message("products", 0, 1, "1"))
	_ = d.Dispatch(message("products", 1, 0, "2"))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// партиция 1 дописана, застрявшая партиция 0 осталась неподтвержденной
	_, committed, dead := rec.snapshot()
	if len(committed) != 1 || len(dead) != 0 {
		t.Fatalf("committed=%v dead=%v", committed, dead)
	}
}
