package cell

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Instance: per-object layout
// ---------------------------------------------------------------------------

// Instance is the concrete layout of one host object. It owns one payload
// slot per hierarchy level plus the extension slots each level reserves, laid
// out at the fixed offsets computed by the class chain. Ancestor regions are
// literally contained in the slot vector rather than reached through pointer
// arithmetic, so the composite layout carries the same "one flag per mutable
// root" guarantee by construction.
//
// The checker is conceptually stored in the flag-owning class's region; here
// it is a typed field so the borrow paths need no slot-type assertion.
type Instance struct {
	class   *Class
	slots   []any
	checker *BorrowChecker // nil when the chain never permits mutation
	threads threadChecker
	dead    atomic.Bool
}

// NewInstance allocates an instance of c. payloads supplies one value per
// chain level, root class first; its length must equal the chain depth.
func (c *Class) NewInstance(payloads ...any) (*Instance, error) {
	if len(payloads) != c.depth+1 {
		return nil, fmt.Errorf("class %s: want %d payloads (one per chain level, root first), got %d",
			c.name, c.depth+1, len(payloads))
	}
	inst := &Instance{
		class:   c,
		slots:   make([]any, c.slotLen()),
		threads: newThreadChecker(c.chainThreadAffine()),
	}
	// Walk root-first so payloads line up with levels.
	chain := make([]*Class, c.depth+1)
	for level := c; level != nil; level = level.superclass {
		chain[level.depth] = level
	}
	for i, level := range chain {
		inst.slots[level.offset] = payloads[i]
		if level.hasWeakRefs {
			inst.slots[level.WeakSlotOffset()] = &WeakList{}
		}
	}
	if c.flagOwner != nil {
		inst.checker = &BorrowChecker{}
	}
	return inst, nil
}

// Class returns the instance's most-derived class.
func (inst *Instance) Class() *Class { return inst.class }

// View returns the instance's own (most-derived) class view.
func (inst *Instance) View() View {
	return View{inst: inst, class: inst.class}
}

// As returns the view of inst through ancestor class c. Fails when c is not
// in the instance's chain.
func (inst *Instance) As(c *Class) (View, error) {
	if !inst.class.IsSubclassOf(c) {
		return View{}, fmt.Errorf("%s is not a class of this %s instance", c.name, inst.class.name)
	}
	return View{inst: inst, class: c}, nil
}

// Deallocated reports whether Dealloc has run.
func (inst *Instance) Deallocated() bool {
	return inst.dead.Load()
}

// BorrowState is a point-in-time diagnostic snapshot of an instance's flag.
type BorrowState struct {
	Shared  uint64 // live shared borrows
	Mutable bool   // mutable borrow held
	Checked bool   // false when the chain uses the empty slot
}

// BorrowState snapshots the instance's borrow flag. The snapshot is
// immediately stale under contention; it exists for inspection tools, not
// for synchronization decisions.
func (inst *Instance) BorrowState() BorrowState {
	if inst.checker == nil {
		return BorrowState{}
	}
	shared, mutable := inst.checker.state()
	return BorrowState{Shared: shared, Mutable: mutable, Checked: true}
}

// ---------------------------------------------------------------------------
// Thread-safety queries
// ---------------------------------------------------------------------------

// EnsureThreadSafe panics if the current goroutine may not touch the
// payload. Call before any payload access that is not itself guarded.
func (inst *Instance) EnsureThreadSafe() {
	inst.threads.Ensure()
}

// CheckThreadSafe is the recoverable form of EnsureThreadSafe: it returns a
// *BorrowError instead of panicking.
func (inst *Instance) CheckThreadSafe() error {
	if inst.threads.Check() {
		return nil
	}
	t := inst.threads.(*affinityBound)
	return wrongGoroutineError(t.owner, currentGoroutine())
}

// AffinityOwner returns the goroutine the instance's payload is bound to.
// ok is false for thread-safe instances.
func (inst *Instance) AffinityOwner() (owner int64, ok bool) {
	if t, affine := inst.threads.(*affinityBound); affine {
		return t.owner, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// View: borrows through one class of the chain
// ---------------------------------------------------------------------------

// View is an instance seen through one class in its inheritance chain. Every
// view of the same instance resolves to the identical flag, so a borrow
// taken through a derived class excludes conflicting borrows through every
// base-class view of the same object. Views are cheap values; hold them by
// value.
type View struct {
	inst  *Instance
	class *Class
}

// Instance returns the underlying instance.
func (v View) Instance() *Instance { return v.inst }

// Class returns the class this view sees the instance as.
func (v View) Class() *Class { return v.class }

// checker selects the checker this view consults: the empty slot for a
// wholly immutable position (no atomics at all), otherwise the chain's
// single authoritative flag located at the owner's fixed layout position.
func (v View) checker() Checker {
	if v.class.mutability == Immutable {
		return emptySlot
	}
	return v.inst.checker
}

// TryBorrow acquires a shared borrow of the payload through this view. On
// success the returned guard must be released on every exit path; on failure
// the *BorrowError is surfaced to the caller, never retried here.
func (v View) TryBorrow() (*Ref, error) {
	v.inst.ensureAlive()
	ck := v.checker()
	if err := ck.TryBorrow(); err != nil {
		return nil, err
	}
	return &Ref{view: v, checker: ck}, nil
}

// TryBorrowMut acquires the exclusive mutable borrow of the payload through
// this view. Fails with *BorrowMutError while any borrow is outstanding.
func (v View) TryBorrowMut() (*RefMut, error) {
	v.inst.ensureAlive()
	ck := v.checker()
	if err := ck.TryBorrowMut(); err != nil {
		return nil, err
	}
	return &RefMut{view: v, checker: ck}, nil
}

// ancestorView narrows the view to ancestor class c. Unlike Instance.As,
// which accepts any class in the chain, this refuses descendants of the view
// class: a guard holds the flag its view resolves to, and descendant levels
// may be owned by a different flag.
func (v View) ancestorView(c *Class) (View, error) {
	if !v.class.IsSubclassOf(c) {
		return View{}, fmt.Errorf("%s is not %s or one of its ancestors", c.name, v.class.name)
	}
	return View{inst: v.inst, class: c}, nil
}

// payload returns the payload at this view's own level.
func (v View) payload() any {
	return v.inst.slots[v.class.offset]
}

func (v View) setPayload(x any) {
	v.inst.slots[v.class.offset] = x
}

// ensureAlive panics when the instance has already been torn down. A borrow
// attempt on a dead instance means a use-after-free is in progress in the
// embedder; continuing would read freed payload memory.
func (inst *Instance) ensureAlive() {
	if inst.dead.Load() {
		panic("hostcell: borrow of deallocated " + inst.class.name + " instance")
	}
}

// ---------------------------------------------------------------------------
// Dynamic attributes (host dict extension slot)
// ---------------------------------------------------------------------------

// Dict access follows the host's discipline: the host serializes attribute
// operations under its own execution token, so the maps themselves are not
// independently locked here.

// SetAttr stores a dynamic attribute in the nearest dict-carrying class's
// slot, searching most-derived first. Fails when no class in the chain
// carries a dict.
func (inst *Instance) SetAttr(name string, value any) error {
	for c := inst.class; c != nil; c = c.superclass {
		if !c.hasDict {
			continue
		}
		off := c.DictSlotOffset()
		d, _ := inst.slots[off].(map[string]any)
		if d == nil {
			d = make(map[string]any)
			inst.slots[off] = d
		}
		d[name] = value
		return nil
	}
	return fmt.Errorf("class %s has no dynamic attribute dict", inst.class.name)
}

// Attr looks a dynamic attribute up through every dict-carrying level,
// most-derived first.
func (inst *Instance) Attr(name string) (any, bool) {
	for c := inst.class; c != nil; c = c.superclass {
		if !c.hasDict {
			continue
		}
		if d, _ := inst.slots[c.DictSlotOffset()].(map[string]any); d != nil {
			if v, ok := d[name]; ok {
				return v, true
			}
		}
	}
	return nil, false
}
