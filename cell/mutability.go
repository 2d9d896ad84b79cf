package cell

// ---------------------------------------------------------------------------
// Mutability classification
// ---------------------------------------------------------------------------

// Mutability classifies a class's position in its inheritance chain with
// respect to borrow-flag ownership.
//
// Within one chain at most one class owns a live flag: the first class,
// walking down from the root, that permits mutation. Every descendant of that
// class, frozen or not, defers to the same flag, so a borrow taken through
// any class view of an instance excludes conflicting borrows through every
// other view of the same instance. A chain that is frozen all the way down
// never needs a flag at all.
type Mutability int

const (
	// Immutable marks a frozen class with no mutable ancestor. Its layout
	// slot is empty and its checker always succeeds.
	Immutable Mutability = iota

	// Mutable marks the first class in its chain that permits mutation.
	// Its layout slot owns the authoritative borrow flag.
	Mutable

	// ExtendsMutableAncestor marks any class below a mutable class. Its
	// layout slot is empty; every check defers to the ancestor's flag.
	ExtendsMutableAncestor
)

func (m Mutability) String() string {
	switch m {
	case Immutable:
		return "Immutable"
	case Mutable:
		return "Mutable"
	case ExtendsMutableAncestor:
		return "ExtendsMutableAncestor"
	default:
		return "Unknown"
	}
}

// classify derives a class's Mutability from its superclass and frozen flag:
//
//   - root, or child of a wholly immutable class: Immutable when frozen,
//     otherwise Mutable (a fresh flag owner)
//   - child of a Mutable or ExtendsMutableAncestor class: always
//     ExtendsMutableAncestor, frozen or not
//
// Flag ownership is derived here, never supplied by the caller, which makes
// two independent owners below one mutable root unrepresentable.
func classify(super *Class, frozen bool) Mutability {
	if super == nil || super.mutability == Immutable {
		if frozen {
			return Immutable
		}
		return Mutable
	}
	return ExtendsMutableAncestor
}
