package cell

// ---------------------------------------------------------------------------
// Class: per-chain-position metadata
// ---------------------------------------------------------------------------

// ClassSpec describes a class to register. The zero value of the optional
// fields is a plain, mutable, thread-safe class with no extension slots.
type ClassSpec struct {
	Name       string
	Superclass *Class // nil for a root class

	// Frozen classes never permit mutation through their own view.
	Frozen bool

	// ThreadAffine payloads may only be touched from the goroutine that
	// constructed the instance, mirroring the host's own non-thread-safe
	// object model.
	ThreadAffine bool

	// HasDict reserves a host dynamic-attribute dict slot in this class's
	// layout region.
	HasDict bool

	// HasWeakRefs reserves a host weak-reference list slot in this
	// class's layout region.
	HasWeakRefs bool

	// Finalize, if set, runs against this class's payload level when an
	// instance is torn down. Finalizers run most-derived first.
	Finalize func(payload any)
}

// Class is one position in an inheritance chain. All layout offsets and the
// flag-owner relationship are computed once, at registration, and never
// re-derived per borrow call.
type Class struct {
	name         string
	superclass   *Class
	frozen       bool
	threadAffine bool
	hasDict      bool
	hasWeakRefs  bool
	finalize     func(any)

	mutability Mutability
	depth      int    // number of ancestors above this class
	offset     int    // first slot index of this class's layout region
	flagOwner  *Class // class whose slot stores the live flag; nil if none

	id       uint32
	registry *Registry
}

func newClass(spec ClassSpec) *Class {
	c := &Class{
		name:         spec.Name,
		superclass:   spec.Superclass,
		frozen:       spec.Frozen,
		threadAffine: spec.ThreadAffine,
		hasDict:      spec.HasDict,
		hasWeakRefs:  spec.HasWeakRefs,
		finalize:     spec.Finalize,
	}
	c.mutability = classify(spec.Superclass, spec.Frozen)
	switch c.mutability {
	case Mutable:
		c.flagOwner = c
	case ExtendsMutableAncestor:
		// The ancestor chain below a mutable class always carries the
		// ancestor's owner, so this is never nil.
		c.flagOwner = spec.Superclass.flagOwner
	}
	if spec.Superclass != nil {
		c.depth = spec.Superclass.depth + 1
		c.offset = spec.Superclass.offset + spec.Superclass.regionSize()
	}
	return c
}

func (c *Class) Name() string           { return c.name }
func (c *Class) Superclass() *Class     { return c.superclass }
func (c *Class) Frozen() bool           { return c.frozen }
func (c *Class) ThreadAffine() bool     { return c.threadAffine }
func (c *Class) Mutability() Mutability { return c.mutability }
func (c *Class) Depth() int             { return c.depth }

// ID returns the registry-assigned class ID.
func (c *Class) ID() uint32 { return c.id }

// FlagOwner returns the class whose layout slot holds the authoritative
// borrow flag for instances of c, or nil when the chain never needs one.
func (c *Class) FlagOwner() *Class { return c.flagOwner }

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.superclass {
		if current == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Layout offsets
// ---------------------------------------------------------------------------

// An instance's slot vector is laid out region by region, root class
// outward. Each class's region holds its payload slot first, then its
// optional dict and weak-reference slots. Every offset is fixed by the chain
// alone, so the host's generic allocation and GC machinery can consume them
// once per concrete class.

// regionSize returns the number of slots in this class's own layout region.
func (c *Class) regionSize() int {
	n := 1 // payload
	if c.hasDict {
		n++
	}
	if c.hasWeakRefs {
		n++
	}
	return n
}

// slotLen returns the total slot count for an instance whose most-derived
// class is c.
func (c *Class) slotLen() int {
	return c.offset + c.regionSize()
}

// DictSlotOffset returns the fixed slot index of this class's dynamic
// attribute dict, or -1 when the class carries none.
func (c *Class) DictSlotOffset() int {
	if !c.hasDict {
		return -1
	}
	return c.offset + 1
}

// WeakSlotOffset returns the fixed slot index of this class's weak-reference
// list, or -1 when the class carries none.
func (c *Class) WeakSlotOffset() int {
	if !c.hasWeakRefs {
		return -1
	}
	off := c.offset + 1
	if c.hasDict {
		off++
	}
	return off
}

// chainThreadAffine reports whether any class in the chain pins its payload
// to the constructing goroutine. One affinity record per instance covers the
// whole chain: if any level is affine, the strictest rule applies to all.
func (c *Class) chainThreadAffine() bool {
	for current := c; current != nil; current = current.superclass {
		if current.threadAffine {
			return true
		}
	}
	return false
}
