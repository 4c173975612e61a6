// Package cancel provides a non-blocking cancellation capability for the
// CPU-bound FFT/CFCC loops.
package cancel

import "sync/atomic"

// Token is a concurrency-safe, non-blocking cancellation flag. The zero
// value is a valid, never-cancelled token.
type Token struct {
	cancelled atomic.Bool
}

// New returns a fresh, not-yet-cancelled token.
func New() *Token {
	return &Token{}
}

// Cancel marks the token cancelled. Safe to call more than once or from
// multiple goroutines.
func (t *Token) Cancel() {
	if t == nil {
		return
	}

	t.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called. A nil *Token is
// treated as never cancelled, so callers that don't care about
// cancellation can pass nil.
func (t *Token) IsCancelled() bool {
	if t == nil {
		return false
	}

	return t.cancelled.Load()
}
