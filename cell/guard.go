package cell

// ---------------------------------------------------------------------------
// Borrow guards
// ---------------------------------------------------------------------------

// Ref is a live shared borrow. It is constructed only by a successful
// TryBorrow and carries the sole obligation to release that acquisition:
// Release must run on every exit path, normal or panicking, which in Go
// means deferring it at the acquisition site:
//
//	ref, err := view.TryBorrow()
//	if err != nil { ... }
//	defer ref.Release()
//
// Release is idempotent; calling it more than once releases exactly once.
// Any number of Refs may coexist and read concurrently. A Ref must not
// outlive its instance and must not be shared across goroutines.
type Ref struct {
	view     View
	checker  Checker
	released bool
}

// Payload returns the payload at the guard's class level.
func (r *Ref) Payload() any {
	r.ensureHeld()
	return r.view.payload()
}

// PayloadAt returns the payload at ancestor level c. A guard only covers
// the segment of the chain its view's flag guards: the view class and its
// ancestors. Descendant levels are out of reach — a guard minted through a
// frozen root's unchecked view must never touch payloads a mutable
// descendant's flag protects.
func (r *Ref) PayloadAt(c *Class) (any, error) {
	r.ensureHeld()
	av, err := r.view.ancestorView(c)
	if err != nil {
		return nil, err
	}
	return av.payload(), nil
}

// Class returns the class the borrow was taken through.
func (r *Ref) Class() *Class { return r.view.class }

// Release drops the shared borrow. Safe to call more than once; only the
// first call releases.
func (r *Ref) Release() {
	if r.released {
		return
	}
	r.released = true
	r.checker.ReleaseBorrow()
}

func (r *Ref) ensureHeld() {
	if r.released {
		panic("hostcell: use of released borrow guard")
	}
}

// RefMut is the live mutable borrow. Its existence is mutually exclusive
// with every other guard on the same flag. The same release discipline as
// Ref applies.
type RefMut struct {
	view     View
	checker  Checker
	released bool
}

// Payload returns the payload at the guard's class level.
func (m *RefMut) Payload() any {
	m.ensureHeld()
	return m.view.payload()
}

// SetPayload replaces the payload at the guard's class level. This is the
// only sanctioned mutation path; writing to the payload around the checker
// is a contract violation.
func (m *RefMut) SetPayload(x any) {
	m.ensureHeld()
	m.view.setPayload(x)
}

// PayloadAt returns the payload at ancestor level c. The same ancestor-only
// rule as Ref.PayloadAt applies.
func (m *RefMut) PayloadAt(c *Class) (any, error) {
	m.ensureHeld()
	av, err := m.view.ancestorView(c)
	if err != nil {
		return nil, err
	}
	return av.payload(), nil
}

// SetPayloadAt replaces the payload at ancestor level c. The exclusive
// borrow covers the view class and its ancestors, which all resolve to the
// flag this guard holds.
func (m *RefMut) SetPayloadAt(c *Class, x any) error {
	m.ensureHeld()
	av, err := m.view.ancestorView(c)
	if err != nil {
		return err
	}
	av.setPayload(x)
	return nil
}

// Class returns the class the borrow was taken through.
func (m *RefMut) Class() *Class { return m.view.class }

// Release drops the mutable borrow. Safe to call more than once; only the
// first call releases.
func (m *RefMut) Release() {
	if m.released {
		return
	}
	m.released = true
	m.checker.ReleaseBorrowMut()
}

func (m *RefMut) ensureHeld() {
	if m.released {
		panic("hostcell: use of released borrow guard")
	}
}
