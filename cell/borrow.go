package cell

import "sync/atomic"

// ---------------------------------------------------------------------------
// BorrowFlag: atomic borrow state shared by every view of one instance
// ---------------------------------------------------------------------------

const (
	// flagUnused means no borrow of any kind is outstanding.
	flagUnused uint64 = 0

	// hasMutableBorrow is the reserved sentinel meaning exactly one live
	// mutable borrow. Every value strictly between flagUnused and the
	// sentinel counts live shared borrows.
	hasMutableBorrow uint64 = ^uint64(0)
)

// borrowFlag is the atomically-updated integer state backing a BorrowChecker.
// It is created with the owning instance and only ever mutated through the
// checker's acquire and release operations.
type borrowFlag struct {
	v atomic.Uint64
}

// increment registers one more shared borrow, failing if a mutable borrow is
// live. A CAS race reloads and retries; the loop is bounded by actual
// contention on the flag, never by an iteration budget.
func (f *borrowFlag) increment() error {
	v := f.v.Load()
	for {
		if v == hasMutableBorrow {
			return errAlreadyMutablyBorrowed
		}
		// Only increment if the value hasn't changed since the last
		// load. Go's atomics are sequentially consistent, so a
		// successful swap also publishes any data the flag protects
		// to this goroutine.
		if f.v.CompareAndSwap(v, v+1) {
			return nil
		}
		v = f.v.Load()
	}
}

// decrement drops one shared borrow. No subsequent acquire can succeed until
// the decrement is visible (its CAS would fail against the stale count), and
// the protected data is never read after release, so no extra ordering is
// required here.
func (f *borrowFlag) decrement() {
	f.v.Add(^uint64(0))
}

// ---------------------------------------------------------------------------
// Checker: polymorphic borrow protocol
// ---------------------------------------------------------------------------

// Checker is the borrow protocol shared by BorrowChecker and EmptySlot.
// Call sites hold a Checker and are polymorphic over the two; only the
// enforcement differs, never the interface.
type Checker interface {
	// TryBorrow acquires one shared borrow or fails with *BorrowError.
	TryBorrow() error
	// ReleaseBorrow drops one shared borrow.
	ReleaseBorrow()
	// TryBorrowMut acquires the single mutable borrow or fails with
	// *BorrowMutError.
	TryBorrowMut() error
	// ReleaseBorrowMut drops the mutable borrow.
	ReleaseBorrowMut()
}

// BorrowChecker enforces "any number of shared borrows, or exactly one
// mutable borrow, never both" over a single borrowFlag. One checker exists
// per mutable class chain; it lives in the flag-owning class's layout slot
// and is never moved to a different instance.
type BorrowChecker struct {
	flag borrowFlag
}

// TryBorrow acquires a shared borrow. Fails only while a mutable borrow is
// outstanding.
func (c *BorrowChecker) TryBorrow() error {
	return c.flag.increment()
}

// ReleaseBorrow drops one shared borrow.
func (c *BorrowChecker) ReleaseBorrow() {
	c.flag.decrement()
}

// TryBorrowMut acquires the mutable borrow. The only permitted transition is
// a single compare-and-exchange from unused to the mutable sentinel; any
// other observed state fails immediately.
func (c *BorrowChecker) TryBorrowMut() error {
	if c.flag.v.CompareAndSwap(flagUnused, hasMutableBorrow) {
		return nil
	}
	return errAlreadyBorrowed
}

// ReleaseBorrowMut resets the flag to unused.
func (c *BorrowChecker) ReleaseBorrowMut() {
	c.flag.v.Store(flagUnused)
}

// state returns a point-in-time snapshot of the flag: the live shared-borrow
// count and whether the mutable borrow is held.
func (c *BorrowChecker) state() (shared uint64, mutable bool) {
	v := c.flag.v.Load()
	if v == hasMutableBorrow {
		return 0, true
	}
	return v, false
}

// ---------------------------------------------------------------------------
// EmptySlot: zero-cost checker for wholly immutable chains
// ---------------------------------------------------------------------------

// EmptySlot is the checker used where mutability classification proves a
// class position never needs a flag: every acquire succeeds, every release is
// a no-op, and no atomic operation is performed. It stores no state.
type EmptySlot struct{}

func (EmptySlot) TryBorrow() error    { return nil }
func (EmptySlot) ReleaseBorrow()      {}
func (EmptySlot) TryBorrowMut() error { return nil }
func (EmptySlot) ReleaseBorrowMut()   {}

// emptySlot is the shared instance handed to immutable views.
var emptySlot EmptySlot
