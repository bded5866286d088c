// Package errors classifies failures raised by event handlers.
//
// The bus never propagates handler failures to the emitter. Instead each
// failure is categorized and described so it can be recorded:
//   - Categorization: returned error, recovered panic, or context cancellation
//   - Kind: a short type name suitable for diagnostics
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category represents how a handler failed.
type Category int

const (
	// CategoryHandler indicates the handler returned a non-nil error.
	CategoryHandler Category = iota

	// CategoryPanic indicates the handler panicked and the panic was recovered.
	CategoryPanic

	// CategoryCanceled indicates the handler gave up because its context
	// was canceled or its deadline passed.
	CategoryCanceled
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryHandler:
		return "handler"
	case CategoryPanic:
		return "panic"
	case CategoryCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how the handler failed.
	Category Category

	// Context describes what was being dispatched.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Categorize determines how a handler failed.
func Categorize(err error) Category {
	if err == nil {
		return CategoryHandler
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return CategoryPanic
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCanceled
	}

	return CategoryHandler
}

// IsPanic reports whether the failure was a recovered panic.
func IsPanic(err error) bool {
	return Categorize(err) == CategoryPanic
}
