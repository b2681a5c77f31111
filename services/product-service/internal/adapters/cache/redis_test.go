package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheWithClient(client, time.Minute), mr
}

func TestGetSetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "product:1"); !errors.Is(err, apperrors.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := c.Set(ctx, "product:1", []byte(`{"productId":1}`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("product:1"); ttl != time.Minute {
		t.Fatalf("default expiration not applied, ttl %v", ttl)
	}

	got, err := c.Get(ctx, "product:1")
	if err != nil || string(got) != `{"productId":1}` {
		t.Fatalf("unexpected value %q %v", got, err)
	}

	if err := c.Delete(ctx, "product:1", "product:2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("product:1") {
		t.Fatalf("key should be deleted")
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("delete without keys: %v", err)
	}
}

func TestDeleteByPattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		mr.Set("product:"+strconv.Itoa(i), "x")
	}
	mr.Set("review:1", "x")

	if err := c.DeleteByPattern(ctx, "product:*"); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "review:1" {
		t.Fatalf("unexpected remaining keys: %v", keys)
	}
}

func TestPing(t *testing.T) {
	c, mr := newTestCache(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error after shutdown")
	}
}

func TestSetIfVersion(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	version, err := c.Version(ctx, "product:version:1")
	if err != nil || version != 0 {
		t.Fatalf("unknown key should have version 0, got %d %v", version, err)
	}

	written, err := c.SetIfVersion(ctx, "product:version:1", version, "product:1", []byte("a"), 0)
	if err != nil || !written {
		t.Fatalf("expected write, got %v %v", written, err)
	}
	if ttl := mr.TTL("product:1"); ttl != time.Minute {
		t.Fatalf("default expiration not applied, ttl %v", ttl)
	}

	if err := c.BumpVersion(ctx, "product:version:1"); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := c.Delete(ctx, "product:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	written, err = c.SetIfVersion(ctx, "product:version:1", version, "product:1", []byte("stale"), 0)
	if err != nil || written {
		t.Fatalf("stale version must not write, got %v %v", written, err)
	}
	if mr.Exists("product:1") {
		t.Fatal("stale value was written")
	}

	current, err := c.Version(ctx, "product:version:1")
	if err != nil || current != 1 {
		t.Fatalf("expected version 1, got %d %v", current, err)
	}
	if written, err := c.SetIfVersion(ctx, "product:version:1", current, "product:1", []byte("b"), time.Second); err != nil || !written {
		t.Fatalf("current version should write, got %v %v", written, err)
	}
}

func TestVersionRejectsNonInteger(t *testing.T) {
	c, mr := newTestCache(t)
	if err := mr.Set("product:version:1", "x"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := c.Version(context.Background(), "product:version:1"); err == nil {
		t.Fatal("expected error for a non-integer version")
	}
}
