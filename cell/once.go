package cell

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// WriteOnceCell: non-blocking one-time initialization
// ---------------------------------------------------------------------------

// WriteOnceCell is a set-at-most-once container with an explicit
// initialization race policy: the first writer wins, and concurrent
// initializers compute redundantly and discard. It never blocks, so it is
// safe to use from code holding the host's global execution token, where a
// mutex wait would be a deadlock hazard.
type WriteOnceCell[T any] struct {
	p atomic.Pointer[T]
}

// Get returns the stored value, if any.
func (c *WriteOnceCell[T]) Get() (T, bool) {
	if p := c.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Set stores v if the cell is still empty and reports whether v won the
// race. A losing value is discarded.
func (c *WriteOnceCell[T]) Set(v T) bool {
	return c.p.CompareAndSwap(nil, &v)
}

// GetOrInit returns the stored value, computing it with init when the cell
// is empty. Under a race, several goroutines may run init; exactly one
// result is kept.
func (c *WriteOnceCell[T]) GetOrInit(init func() T) T {
	if p := c.p.Load(); p != nil {
		return *p
	}
	v := init()
	if c.p.CompareAndSwap(nil, &v) {
		return v
	}
	return *c.p.Load()
}

// ---------------------------------------------------------------------------
// LazyClass: register-on-first-use class construction
// ---------------------------------------------------------------------------

// LazyClass builds and registers a class at most once, on first use. It
// follows the WriteOnceCell race policy between goroutines: concurrent
// first users may build the spec redundantly, the registry arbitrates, and
// losers adopt the registered winner. Re-entrant initialization from the
// same goroutine — the spec function reaching back into Get for the class
// it is defining — is escalated to a panic: letting it proceed would
// produce two half-initialized copies of the same class.
type LazyClass struct {
	cell WriteOnceCell[*Class]

	mu       sync.Mutex
	building map[int64]bool // goroutines currently inside spec
}

// Get returns the class, building and registering it on first call.
func (l *LazyClass) Get(r *Registry, spec func(*Registry) ClassSpec) (*Class, error) {
	if c, ok := l.cell.Get(); ok {
		return c, nil
	}

	g := currentGoroutine()
	l.mu.Lock()
	if l.building[g] {
		l.mu.Unlock()
		panic("hostcell: re-entrant initialization of lazy class")
	}
	if l.building == nil {
		l.building = make(map[int64]bool)
	}
	l.building[g] = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.building, g)
		l.mu.Unlock()
	}()

	s := spec(r)
	c, err := r.Register(s)
	if err != nil {
		// A concurrent initializer won the registration race; adopt
		// the class it registered.
		if winner := r.Lookup(s.Name); winner != nil {
			l.cell.Set(winner)
			return winner, nil
		}
		return nil, err
	}
	if !l.cell.Set(c) {
		// Unreachable through the registry (duplicate names lose
		// above), but keep the one-value contract anyway.
		winner, _ := l.cell.Get()
		return winner, nil
	}
	return c, nil
}
