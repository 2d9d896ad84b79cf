package cell

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// TeardownPolicy
// ---------------------------------------------------------------------------

// TeardownPolicy decides what happens to an affinity-bound instance's
// finalizers when Dealloc runs on the wrong goroutine. Running them there
// would touch the payload off its home goroutine, which is exactly the
// violation the affinity check exists to prevent.
type TeardownPolicy int

const (
	// TeardownSkip abandons the finalizers: the resource is deliberately
	// leaked rather than touched unsafely. The skip is counted, not
	// silent.
	TeardownSkip TeardownPolicy = iota

	// TeardownQueue parks the finalizers on the registry; the owning
	// goroutine runs them on its next call to RunPendingFinalizers.
	TeardownQueue
)

func (p TeardownPolicy) String() string {
	switch p {
	case TeardownSkip:
		return "skip"
	case TeardownQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Registry: thread-safe class registration and lookup
// ---------------------------------------------------------------------------

// Registry owns the class metadata for one embedding. Registration computes
// each class's mutability classification, flag owner, and slot offsets once;
// borrow paths never consult the registry.
type Registry struct {
	mu      sync.RWMutex
	classes map[uint32]*Class
	byName  map[string]*Class
	nextID  uint32

	teardown TeardownPolicy

	pendingMu sync.Mutex
	pending   map[int64][]func() // deferred finalizers keyed by owner goroutine

	skipped atomic.Uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithTeardownPolicy selects the wrong-goroutine teardown behavior.
// The default is TeardownSkip.
func WithTeardownPolicy(p TeardownPolicy) Option {
	return func(r *Registry) { r.teardown = p }
}

// NewRegistry creates an empty class registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		classes: make(map[uint32]*Class),
		byName:  make(map[string]*Class),
		nextID:  1, // 0 means unregistered
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TeardownPolicy returns the registry's wrong-goroutine teardown policy.
func (r *Registry) TeardownPolicy() TeardownPolicy { return r.teardown }

// Register adds a class to the registry. Names must be unique within one
// registry, and a superclass must already be registered here: chains never
// span registries.
func (r *Registry) Register(spec ClassSpec) (*Class, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("class name must not be empty")
	}
	if spec.Superclass != nil && spec.Superclass.registry != r {
		return nil, fmt.Errorf("superclass %s belongs to a different registry", spec.Superclass.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[spec.Name]; ok {
		return nil, fmt.Errorf("class %s is already registered", spec.Name)
	}

	c := newClass(spec)
	c.id = r.nextID
	c.registry = r
	r.nextID++
	r.classes[c.id] = c
	r.byName[c.name] = c
	return c, nil
}

// Lookup returns the class registered under name, or nil.
func (r *Registry) Lookup(name string) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// LookupID returns the class with the given registry ID, or nil.
func (r *Registry) LookupID(id uint32) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[id]
}

// Count returns the number of registered classes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

// Classes returns every registered class in registration order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ---------------------------------------------------------------------------
// Deferred finalizers
// ---------------------------------------------------------------------------

// deferFinalizers handles finalizers that could not run because Dealloc was
// reached away from the instance's home goroutine.
func (r *Registry) deferFinalizers(inst *Instance, fns []func()) {
	if r.teardown == TeardownSkip {
		r.skipped.Add(uint64(len(fns)))
		return
	}
	owner, _ := inst.AffinityOwner()
	r.pendingMu.Lock()
	if r.pending == nil {
		r.pending = make(map[int64][]func())
	}
	r.pending[owner] = append(r.pending[owner], fns...)
	r.pendingMu.Unlock()
}

// RunPendingFinalizers runs every finalizer queued for the current goroutine
// and returns how many ran. Embedders using TeardownQueue call this from the
// goroutines that construct affinity-bound instances.
func (r *Registry) RunPendingFinalizers() int {
	g := currentGoroutine()
	r.pendingMu.Lock()
	fns := r.pending[g]
	delete(r.pending, g)
	r.pendingMu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// PendingFinalizers returns the number of queued finalizers across all
// goroutines.
func (r *Registry) PendingFinalizers() int {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	n := 0
	for _, fns := range r.pending {
		n += len(fns)
	}
	return n
}

// SkippedFinalizers returns the number of finalizers abandoned under
// TeardownSkip since the registry was created.
func (r *Registry) SkippedFinalizers() uint64 {
	return r.skipped.Load()
}
