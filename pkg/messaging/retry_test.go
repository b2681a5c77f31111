package messaging

import (
	"context"
	"testing"
	"time"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: 100 * time.Millisecond, MaxBackoff: time.Second}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}
	if (RetryPolicy{}).Delay(3) != 0 {
		t.Fatalf("zero policy must not wait")
	}
	if (RetryPolicy{}).attempts() != 1 {
		t.Fatalf("zero policy must try once")
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Fatalf("sleep must stop on cancelled context")
	}
	if !sleep(context.Background(), time.Millisecond) {
		t.Fatalf("sleep must complete")
	}
}
