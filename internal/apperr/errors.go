// Package apperr defines the error categories surfaced by the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the request carried no valid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers rows that do not exist and rows owned by someone else.
	// The two are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedSource matches any *UnsupportedSourceError.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrTransientFetch matches any *TransientFetchError.
	ErrTransientFetch = errors.New("transient fetch failure")
)

// Categories reported to clients in the errorCategory field.
const (
	CategoryUnsupportedRetailer = "unsupported_retailer"
	CategoryLayoutChanged       = "layout_changed"
	CategoryFetchFailed         = "fetch_failed"
	CategoryInvalidURL          = "invalid_url"
)

// UnsupportedSourceError is returned when no extraction rule applies to a
// product page, either because the retailer is unknown or because its
// markup no longer matches the rule.
type UnsupportedSourceError struct {
	Category string
	Host     string
	Reason   string
}

func (e *UnsupportedSourceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Category, e.Host, e.Reason)
	}
	return fmt.Sprintf("%s (%s)", e.Category, e.Host)
}

func (e *UnsupportedSourceError) Is(target error) bool {
	return target == ErrUnsupportedSource
}

// TransientFetchError wraps network failures, timeouts and non-2xx
// retailer responses. Callers may retry; the server never does.
type TransientFetchError struct {
	Host   string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransientFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Host, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Host, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

func (e *TransientFetchError) Is(target error) bool {
	return target == ErrTransientFetch
}

// Category returns the client-facing category for err, or "" when err is
// not one of the price-refresh failures.
func Category(err error) string {
	var unsupported *UnsupportedSourceError
	if errors.As(err, &unsupported) {
		return unsupported.Category
	}
	if errors.Is(err, ErrTransientFetch) {
		return CategoryFetchFailed
	}
	return ""
}
