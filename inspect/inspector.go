// Package inspect produces structured snapshots of hostcell registries and
// instances for debugging and tooling.
package inspect

import (
	"fmt"
	"strings"

	"github.com/chazu/hostcell/cell"
)

// ClassInfo contains structured information about one registered class.
type ClassInfo struct {
	ID           uint32 `cbor:"id"`
	Name         string `cbor:"name"`
	Superclass   string `cbor:"superclass,omitempty"`
	Mutability   string `cbor:"mutability"`
	FlagOwner    string `cbor:"flag_owner,omitempty"`
	Depth        int    `cbor:"depth"`
	Frozen       bool   `cbor:"frozen"`
	ThreadAffine bool   `cbor:"thread_affine"`
	DictOffset   int    `cbor:"dict_offset"`
	WeakOffset   int    `cbor:"weak_offset"`
}

// RegistrySnapshot is a point-in-time view of one registry.
type RegistrySnapshot struct {
	Classes           []ClassInfo `cbor:"classes"`
	TeardownPolicy    string      `cbor:"teardown_policy"`
	PendingFinalizers int         `cbor:"pending_finalizers"`
	SkippedFinalizers uint64      `cbor:"skipped_finalizers"`
}

// InstanceInfo describes the borrow state of one instance.
type InstanceInfo struct {
	Class       string `cbor:"class"`
	Shared      uint64 `cbor:"shared"`
	Mutable     bool   `cbor:"mutable"`
	Checked     bool   `cbor:"checked"`
	Deallocated bool   `cbor:"deallocated"`
}

// Snapshot captures the registry's classes and teardown counters.
func Snapshot(r *cell.Registry) *RegistrySnapshot {
	classes := r.Classes()
	snap := &RegistrySnapshot{
		Classes:           make([]ClassInfo, 0, len(classes)),
		TeardownPolicy:    r.TeardownPolicy().String(),
		PendingFinalizers: r.PendingFinalizers(),
		SkippedFinalizers: r.SkippedFinalizers(),
	}
	for _, c := range classes {
		info := ClassInfo{
			ID:           c.ID(),
			Name:         c.Name(),
			Mutability:   c.Mutability().String(),
			Depth:        c.Depth(),
			Frozen:       c.Frozen(),
			ThreadAffine: c.ThreadAffine(),
			DictOffset:   c.DictSlotOffset(),
			WeakOffset:   c.WeakSlotOffset(),
		}
		if super := c.Superclass(); super != nil {
			info.Superclass = super.Name()
		}
		if owner := c.FlagOwner(); owner != nil {
			info.FlagOwner = owner.Name()
		}
		snap.Classes = append(snap.Classes, info)
	}
	return snap
}

// InspectInstance captures one instance's class and borrow state. The
// borrow counters are immediately stale under contention; this is a
// debugging view, not a synchronization primitive.
func InspectInstance(inst *cell.Instance) *InstanceInfo {
	st := inst.BorrowState()
	return &InstanceInfo{
		Class:       inst.Class().Name(),
		Shared:      st.Shared,
		Mutable:     st.Mutable,
		Checked:     st.Checked,
		Deallocated: inst.Deallocated(),
	}
}

// Describe renders a snapshot as indented text, one class per line.
func (s *RegistrySnapshot) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registry: %d classes, teardown=%s, pending=%d, skipped=%d\n",
		len(s.Classes), s.TeardownPolicy, s.PendingFinalizers, s.SkippedFinalizers)
	for _, c := range s.Classes {
		fmt.Fprintf(&b, "  %s", c.Name)
		if c.Superclass != "" {
			fmt.Fprintf(&b, " < %s", c.Superclass)
		}
		fmt.Fprintf(&b, " [%s", c.Mutability)
		if c.FlagOwner != "" && c.FlagOwner != c.Name {
			fmt.Fprintf(&b, " -> %s", c.FlagOwner)
		}
		b.WriteString("]")
		if c.Frozen {
			b.WriteString(" frozen")
		}
		if c.ThreadAffine {
			b.WriteString(" affine")
		}
		b.WriteString("\n")
	}
	return b.String()
}
