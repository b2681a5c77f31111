package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

func openTempStore(t *testing.T) *ReviewStorage {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "review.db"), 1)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " ", 1); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSaveAndFindReviews(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, id := range []int{2, 3, 1} {
		review := models.Review{ProductID: 1, ReviewID: id, Author: "a", Subject: "s", Content: "c"}
		if err := store.SaveReview(ctx, review); err != nil {
			t.Fatalf("save review %d: %v", id, err)
		}
	}
	if err := store.SaveReview(ctx, models.Review{ProductID: 2, ReviewID: 1}); err != nil {
		t.Fatalf("save review for other product: %v", err)
	}

	reviews, err := store.FindByProductID(ctx, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(reviews))
	}
	for i, r := range reviews {
		if r.ReviewID != i+1 || r.Subject != "s" {
			t.Fatalf("unexpected review at %d: %+v", i, r)
		}
	}

	empty, err := store.FindByProductID(ctx, 213)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v %v", empty, err)
	}
}

func TestSaveDuplicateReview(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	review := models.Review{ProductID: 1, ReviewID: 1, Author: "a"}
	if err := store.SaveReview(ctx, review); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveReview(ctx, review); !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestDeleteReviews(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	_ = store.SaveReview(ctx, models.Review{ProductID: 1, ReviewID: 1})
	_ = store.SaveReview(ctx, models.Review{ProductID: 1, ReviewID: 2})

	if err := store.DeleteByProductID(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteByProductID(ctx, 1); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if reviews, _ := store.FindByProductID(ctx, 1); len(reviews) != 0 {
		t.Fatalf("reviews should be deleted: %+v", reviews)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
