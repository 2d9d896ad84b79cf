package cell

import (
	"strings"
	"testing"
)

func newAffineInstance(t *testing.T, opts ...Option) (*Registry, *Instance) {
	t.Helper()
	r := NewRegistry(opts...)
	c := mustRegister(t, r, ClassSpec{Name: "Affine", ThreadAffine: true})
	inst, err := c.NewInstance("pinned")
	if err != nil {
		t.Fatal(err)
	}
	return r, inst
}

func TestThreadSafeInstanceHasNoAffinity(t *testing.T) {
	r := NewRegistry()
	c := mustRegister(t, r, ClassSpec{Name: "Anywhere"})
	inst, err := c.NewInstance(nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := inst.AffinityOwner(); ok {
		t.Error("thread-safe instance reports an affinity owner")
	}
	if err := inst.CheckThreadSafe(); err != nil {
		t.Errorf("CheckThreadSafe failed: %v", err)
	}
	inst.EnsureThreadSafe() // must not panic

	done := make(chan error)
	go func() {
		done <- inst.CheckThreadSafe()
	}()
	if err := <-done; err != nil {
		t.Errorf("CheckThreadSafe from another goroutine failed: %v", err)
	}
}

func TestAffinityCheckOnHomeGoroutine(t *testing.T) {
	_, inst := newAffineInstance(t)

	if owner, ok := inst.AffinityOwner(); !ok || owner != currentGoroutine() {
		t.Errorf("AffinityOwner = (%d, %v), want current goroutine", owner, ok)
	}
	if err := inst.CheckThreadSafe(); err != nil {
		t.Errorf("CheckThreadSafe on home goroutine failed: %v", err)
	}
	inst.EnsureThreadSafe()
}

func TestAffinityCheckOffHomeGoroutine(t *testing.T) {
	_, inst := newAffineInstance(t)

	done := make(chan error)
	go func() {
		done <- inst.CheckThreadSafe()
	}()
	err := <-done
	if err == nil {
		t.Fatal("CheckThreadSafe succeeded off the home goroutine")
	}
	if _, ok := err.(*BorrowError); !ok {
		t.Errorf("error type = %T, want *BorrowError", err)
	}
	if !strings.Contains(err.Error(), "thread affinity violation") {
		t.Errorf("error message %q lacks violation detail", err.Error())
	}
}

func TestEnsureThreadSafePanicsOffHomeGoroutine(t *testing.T) {
	_, inst := newAffineInstance(t)

	panicked := make(chan bool)
	go func() {
		defer func() {
			panicked <- recover() != nil
		}()
		inst.EnsureThreadSafe()
	}()
	if !<-panicked {
		t.Error("EnsureThreadSafe did not panic off the home goroutine")
	}
}

// Affinity inherited from any level of the chain pins the whole instance.
func TestAffinityInheritedFromAncestor(t *testing.T) {
	r := NewRegistry()
	base := mustRegister(t, r, ClassSpec{Name: "AffineBase", ThreadAffine: true})
	child := mustRegister(t, r, ClassSpec{Name: "PlainChild", Superclass: base})

	inst, err := child.NewInstance(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := inst.AffinityOwner(); !ok {
		t.Error("instance of a chain with an affine ancestor reports no owner")
	}
}

// ---------------------------------------------------------------------------
// Teardown policies
// ---------------------------------------------------------------------------

// Under TeardownSkip, finalizers of an instance deallocated off its home
// goroutine are abandoned, and the abandonment is counted.
func TestWrongGoroutineTeardownSkips(t *testing.T) {
	ran := false
	r := NewRegistry() // default policy: skip
	c := mustRegister(t, r, ClassSpec{
		Name:         "Pinned",
		ThreadAffine: true,
		Finalize:     func(any) { ran = true },
	})
	inst, err := c.NewInstance("resource")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		inst.Dealloc()
		close(done)
	}()
	<-done

	if ran {
		t.Error("finalizer ran off the home goroutine")
	}
	if got := r.SkippedFinalizers(); got != 1 {
		t.Errorf("SkippedFinalizers = %d, want 1", got)
	}
}

// Under TeardownQueue, the finalizers park on the registry and run when the
// owning goroutine drains them.
func TestWrongGoroutineTeardownQueues(t *testing.T) {
	var finalized []string
	r := NewRegistry(WithTeardownPolicy(TeardownQueue))
	base := mustRegister(t, r, ClassSpec{
		Name:         "QueuedBase",
		ThreadAffine: true,
		Finalize:     func(p any) { finalized = append(finalized, "base:"+p.(string)) },
	})
	child := mustRegister(t, r, ClassSpec{
		Name:       "QueuedChild",
		Superclass: base,
		Finalize:   func(p any) { finalized = append(finalized, "child:"+p.(string)) },
	})

	inst, err := child.NewInstance("b", "c")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		inst.Dealloc()
		close(done)
	}()
	<-done

	if len(finalized) != 0 {
		t.Fatalf("finalizers ran off the home goroutine: %v", finalized)
	}
	if got := r.PendingFinalizers(); got != 2 {
		t.Errorf("PendingFinalizers = %d, want 2", got)
	}

	if ran := r.RunPendingFinalizers(); ran != 2 {
		t.Errorf("RunPendingFinalizers ran %d, want 2", ran)
	}
	// Most-derived first, like nested destructors unwinding.
	if len(finalized) != 2 || finalized[0] != "child:c" || finalized[1] != "base:b" {
		t.Errorf("finalizer order = %v, want [child:c base:b]", finalized)
	}
	if got := r.PendingFinalizers(); got != 0 {
		t.Errorf("PendingFinalizers after drain = %d, want 0", got)
	}
}

// Draining from a goroutine that owns nothing runs nothing.
func TestRunPendingFinalizersForeignGoroutine(t *testing.T) {
	r := NewRegistry(WithTeardownPolicy(TeardownQueue))
	c := mustRegister(t, r, ClassSpec{
		Name:         "Parked",
		ThreadAffine: true,
		Finalize:     func(any) {},
	})
	inst, err := c.NewInstance(nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		inst.Dealloc()
		done <- struct{}{}
		// This goroutine owns no queued finalizers either: the queue
		// is keyed by the constructing goroutine.
		if ran := r.RunPendingFinalizers(); ran != 0 {
			t.Errorf("foreign goroutine drained %d finalizers", ran)
		}
		close(done)
	}()
	<-done
	<-done

	if got := r.PendingFinalizers(); got != 1 {
		t.Errorf("PendingFinalizers = %d, want 1", got)
	}
}
