// Package failurelog persists handler failures reported by an event bus.
//
// A bus keeps only a short in-memory history of failed handlers. Wiring
// Hook into BusConfig.OnHandlerError appends every failure to a Store so
// it survives the history window and the process.
package failurelog

import (
	"errors"

	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
)

// Store persists handler failures.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records a failure and returns its sequence number.
	Append(entry Entry) (int64, error)

	// List returns recorded failures, oldest first.
	// Returns empty slice (not error) if nothing matches.
	List(q Query) ([]Entry, error)

	// Count returns the number of recorded failures.
	Count() (int, error)

	// Clear removes every recorded failure.
	Clear() error

	// Close releases any resources (connections, files).
	Close() error
}

// Entry is one recorded handler failure.
type Entry struct {
	// Sequence orders entries within a store. It is assigned by Append.
	Sequence int64 `json:"sequence"`

	event.ErrorRecord

	// Stack is the goroutine stack captured when the handler panicked.
	// Empty for returned errors.
	Stack string `json:"stack,omitempty"`
}

// Query filters List results.
type Query struct {
	// EventName restricts results to one event name. Empty matches all.
	EventName string

	// Limit keeps only the most recent entries. Zero means no limit.
	Limit int
}

// Sentinel errors for store operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("failure store closed")
)
