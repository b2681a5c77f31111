package storage

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/go-redis/redis/v8"
)

func newTestStorage(t *testing.T) (*RecommendationStorage, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRecommendationStorageWithClient(client), mr
}

func TestSaveAndFind(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []int{3, 1, 2} {
		rec := models.Recommendation{ProductID: 1, RecommendationID: id, Author: "a", Rate: id, Content: "c", ServiceAddress: "ignored"}
		if err := s.SaveRecommendation(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", id, err)
		}
	}

	recs, err := s.FindByProductID(ctx, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.RecommendationID != i+1 || rec.Rate != i+1 || rec.ServiceAddress != "" {
			t.Fatalf("unexpected recommendation at %d: %+v", i, rec)
		}
	}

	empty, err := s.FindByProductID(ctx, 113)
	if err != nil || len(empty) != 0 || empty == nil {
		t.Fatalf("expected empty non-nil slice, got %v %v", empty, err)
	}
}

func TestSaveDuplicate(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	rec := models.Recommendation{ProductID: 1, RecommendationID: 1, Author: "a"}
	if err := s.SaveRecommendation(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Author = "b"
	if err := s.SaveRecommendation(ctx, rec); !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	recs, _ := s.FindByProductID(ctx, 1)
	if len(recs) != 1 || recs[0].Author != "a" {
		t.Fatalf("duplicate should not overwrite: %+v", recs)
	}
}

func TestDeleteByProductID(t *testing.T) {
	s, mr := newTestStorage(t)
	ctx := context.Background()

	_ = s.SaveRecommendation(ctx, models.Recommendation{ProductID: 1, RecommendationID: 1})
	_ = s.SaveRecommendation(ctx, models.Recommendation{ProductID: 2, RecommendationID: 1})

	if err := s.DeleteByProductID(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteByProductID(ctx, 1); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if mr.Exists("recommendation:1") || !mr.Exists("recommendation:2") {
		t.Fatalf("unexpected keys after delete: %v", mr.Keys())
	}
}
