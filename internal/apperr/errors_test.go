package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUnsupportedSourceError_Is(t *testing.T) {
	err := fmt.Errorf("refresh: %w", &UnsupportedSourceError{Category: CategoryUnsupportedRetailer, Host: "example.com"})

	if !errors.Is(err, ErrUnsupportedSource) {
		t.Error("expected wrapped error to match ErrUnsupportedSource")
	}
	if errors.Is(err, ErrTransientFetch) {
		t.Error("unsupported source must not match ErrTransientFetch")
	}
	if got := Category(err); got != CategoryUnsupportedRetailer {
		t.Errorf("expected category %q, got %q", CategoryUnsupportedRetailer, got)
	}
}

func TestTransientFetchError_Unwrap(t *testing.T) {
	err := fmt.Errorf("refresh: %w", &TransientFetchError{Host: "nike.com", Err: context.DeadlineExceeded})

	if !errors.Is(err, ErrTransientFetch) {
		t.Error("expected ErrTransientFetch")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the cause to stay reachable")
	}
	if got := Category(err); got != CategoryFetchFailed {
		t.Errorf("expected %q, got %q", CategoryFetchFailed, got)
	}
}

func TestTransientFetchError_Message(t *testing.T) {
	err := &TransientFetchError{Host: "goat.com", Status: 503}
	if err.Error() != "fetch goat.com: unexpected status 503" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestCategory_OtherErrors(t *testing.T) {
	if got := Category(ErrNotFound); got != "" {
		t.Errorf("expected empty category, got %q", got)
	}
}
