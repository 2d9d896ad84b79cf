package cell

import "fmt"

// ---------------------------------------------------------------------------
// Borrow errors
// ---------------------------------------------------------------------------

// BorrowError reports a failed shared (immutable) borrow: a mutable borrow is
// outstanding, or a checked thread-affinity verification failed. It is
// recoverable; this layer never retries on the caller's behalf.
type BorrowError struct {
	reason string
}

func (e *BorrowError) Error() string { return e.reason }

// BorrowMutError reports a failed mutable borrow: some borrow, shared or
// mutable, is already outstanding. It is recoverable.
type BorrowMutError struct {
	reason string
}

func (e *BorrowMutError) Error() string { return e.reason }

// Preallocated so the acquire fast paths do not allocate on failure.
var (
	errAlreadyMutablyBorrowed = &BorrowError{reason: "already mutably borrowed"}
	errAlreadyBorrowed        = &BorrowMutError{reason: "already borrowed"}
)

// wrongGoroutineError converts a thread-affinity violation into a recoverable
// BorrowError for checked call paths.
func wrongGoroutineError(owner, caller int64) *BorrowError {
	return &BorrowError{reason: fmt.Sprintf(
		"thread affinity violation: payload bound to goroutine %d, accessed from goroutine %d",
		owner, caller)}
}
