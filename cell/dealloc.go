package cell

// ---------------------------------------------------------------------------
// Destruction protocol
// ---------------------------------------------------------------------------

// Dealloc tears the instance down. The host calls it exactly once, when the
// last host reference drops. The protocol:
//
//  1. The teardown claim itself is exactly-once; a second call means the
//     host's reference counting is broken and panics.
//  2. The borrow flag must be unused. An outstanding guard at teardown means
//     a use-after-free is already in progress, so this is fatal, not a
//     recoverable error.
//  3. Extension slots are cleared first: the dynamic-attribute dicts are
//     dropped and every weak reference is invalidated, so no dangling
//     back-reference survives.
//  4. Finalizers run most-derived first, unwinding the chain the way nested
//     destructors would. For affinity-bound payloads they only run when the
//     current goroutine is the owner; otherwise the registry's teardown
//     policy decides (see TeardownPolicy).
func (inst *Instance) Dealloc() {
	if !inst.dead.CompareAndSwap(false, true) {
		panic("hostcell: double deallocation of " + inst.class.name + " instance")
	}
	if inst.checker != nil {
		if shared, mutable := inst.checker.state(); shared != 0 || mutable {
			panic("hostcell: " + inst.class.name + " instance deallocated with outstanding borrows")
		}
	}

	canDrop := inst.threads.CanDrop()

	inst.clearDicts()
	inst.invalidateWeakRefs()

	fins := inst.collectFinalizers()
	if len(fins) > 0 {
		if canDrop {
			for _, fn := range fins {
				fn()
			}
		} else {
			inst.class.registry.deferFinalizers(inst, fins)
		}
	}

	// Drop payload references so the host GC can reclaim them even if the
	// embedder holds on to the dead instance.
	for i := range inst.slots {
		inst.slots[i] = nil
	}
}

// collectFinalizers gathers the chain's finalizers, most-derived first, each
// bound to its own level's payload.
func (inst *Instance) collectFinalizers() []func() {
	var fns []func()
	for c := inst.class; c != nil; c = c.superclass {
		if c.finalize == nil {
			continue
		}
		fin := c.finalize
		payload := inst.slots[c.offset]
		fns = append(fns, func() { fin(payload) })
	}
	return fns
}

// clearDicts drops every dynamic-attribute dict in the chain.
func (inst *Instance) clearDicts() {
	for c := inst.class; c != nil; c = c.superclass {
		if c.hasDict {
			inst.slots[c.DictSlotOffset()] = nil
		}
	}
}
