package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	notFound := fmt.Errorf("failed to get product: %w", NewNotFoundError("No product found for productId: %d", 13))
	if !errors.Is(notFound, ErrNotFound) {
		t.Fatalf("expected wrapped NotFoundError to match ErrNotFound")
	}
	var nf *NotFoundError
	if !errors.As(notFound, &nf) || nf.Message != "No product found for productId: 13" {
		t.Fatalf("unexpected not found error: %v", nf)
	}

	dup := &InvalidInputError{Message: "Duplicate key, Product Id: 1", Err: ErrDuplicateKey}
	if !errors.Is(dup, ErrInvalidInput) || !errors.Is(dup, ErrDuplicateKey) {
		t.Fatalf("expected duplicate error to match both sentinels")
	}
	if errors.Is(dup, ErrNotFound) {
		t.Fatalf("invalid input must not match ErrNotFound")
	}
}

func TestIsFatal(t *testing.T) {
	fatal := fmt.Errorf("handler: %w", NewEventProcessingError("Incorrect event type: %s, expected a CREATE or DELETE event", "UPDATE"))
	if !IsFatal(fatal) {
		t.Fatalf("expected event processing error to be fatal")
	}
	if IsFatal(errors.New("connection refused")) {
		t.Fatalf("plain error must not be fatal")
	}
	if got := fatal.Error(); got != "handler: Incorrect event type: UPDATE, expected a CREATE or DELETE event" {
		t.Fatalf("unexpected message: %s", got)
	}
}
