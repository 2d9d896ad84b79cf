package cell

import (
	"fmt"

	"github.com/petermattis/goid"
)

// ---------------------------------------------------------------------------
// Thread affinity checking
// ---------------------------------------------------------------------------

// threadChecker guards payloads that are not safe to touch off their home
// goroutine. It is consulted before unguarded payload access and once at
// teardown to decide whether finalizers may run on the current goroutine.
type threadChecker interface {
	// Ensure panics on an affinity violation. Reaching it from the wrong
	// goroutine is a contract breach in the embedding code, not a
	// recoverable runtime condition.
	Ensure()
	// Check reports whether the current goroutine may touch the payload.
	Check() bool
	// CanDrop reports whether finalizers may run on the current
	// goroutine. Consulted exactly once, at teardown.
	CanDrop() bool
}

// threadSafe is the checker for payloads that may be accessed and dropped
// from any goroutine. Stateless.
type threadSafe struct{}

func (threadSafe) Ensure()       {}
func (threadSafe) Check() bool   { return true }
func (threadSafe) CanDrop() bool { return true }

// affinityBound pins a payload to the goroutine that constructed its
// instance.
type affinityBound struct {
	owner int64
}

func newAffinityBound() *affinityBound {
	return &affinityBound{owner: goid.Get()}
}

func (t *affinityBound) Check() bool {
	return goid.Get() == t.owner
}

func (t *affinityBound) Ensure() {
	if g := goid.Get(); g != t.owner {
		panic(fmt.Sprintf(
			"hostcell: thread affinity violation: payload bound to goroutine %d, touched from goroutine %d",
			t.owner, g))
	}
}

func (t *affinityBound) CanDrop() bool {
	return t.Check()
}

// currentGoroutine returns the calling goroutine's ID.
func currentGoroutine() int64 { return goid.Get() }

func newThreadChecker(affine bool) threadChecker {
	if affine {
		return newAffinityBound()
	}
	return threadSafe{}
}
