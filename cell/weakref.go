package cell

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Weak references (host weak-reference list extension slot)
// ---------------------------------------------------------------------------

// WeakRef is a host-style weak handle to an instance. It observes the
// instance without keeping it alive and is invalidated during teardown, so
// no dangling back-reference survives deallocation.
type WeakRef struct {
	mu   sync.Mutex
	inst *Instance
}

// Get returns the referent, or nil once the instance has been torn down.
func (w *WeakRef) Get() *Instance {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inst
}

func (w *WeakRef) clear() {
	w.mu.Lock()
	w.inst = nil
	w.mu.Unlock()
}

// WeakList is the per-instance registry of live weak references, stored in
// the weak-reference extension slot of the class that reserved one.
type WeakList struct {
	mu   sync.Mutex
	refs []*WeakRef
}

func (l *WeakList) add(w *WeakRef) {
	l.mu.Lock()
	l.refs = append(l.refs, w)
	l.mu.Unlock()
}

// invalidate clears every outstanding reference and empties the list.
func (l *WeakList) invalidate() {
	l.mu.Lock()
	refs := l.refs
	l.refs = nil
	l.mu.Unlock()
	for _, w := range refs {
		w.clear()
	}
}

// Len returns the number of live weak references.
func (l *WeakList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.refs)
}

// NewWeakRef registers a weak reference to inst in the nearest
// weak-capable class's slot, searching most-derived first. Fails when no
// class in the chain reserves a weak-reference list.
func (inst *Instance) NewWeakRef() (*WeakRef, error) {
	inst.ensureAlive()
	for c := inst.class; c != nil; c = c.superclass {
		if !c.hasWeakRefs {
			continue
		}
		list := inst.slots[c.WeakSlotOffset()].(*WeakList)
		w := &WeakRef{inst: inst}
		list.add(w)
		return w, nil
	}
	return nil, fmt.Errorf("class %s has no weak-reference list", inst.class.name)
}

// invalidateWeakRefs clears every weak list in the chain.
func (inst *Instance) invalidateWeakRefs() {
	for c := inst.class; c != nil; c = c.superclass {
		if !c.hasWeakRefs {
			continue
		}
		if list, _ := inst.slots[c.WeakSlotOffset()].(*WeakList); list != nil {
			list.invalidate()
		}
	}
}
