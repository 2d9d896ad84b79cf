// cellprobe - exercises a hostcell class hierarchy and dumps its layout
//
// Registers a demonstration hierarchy, runs the borrow protocol through
// every class view, and prints (or writes as CBOR) a registry snapshot.
// Useful for eyeballing classification, flag ownership, and slot offsets
// when wiring a new embedding.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/hostcell/cell"
	"github.com/chazu/hostcell/inspect"
	"github.com/chazu/hostcell/policy"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("cellprobe")

func main() {
	configDir := flag.String("config", "", "Directory containing hostcell.toml (default: built-in defaults)")
	cborOut := flag.String("cbor", "", "Write the registry snapshot as CBOR to this file")
	verbose := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cellprobe [options]\n\n")
		fmt.Fprintf(os.Stderr, "Registers a demonstration class hierarchy, exercises the borrow\n")
		fmt.Fprintf(os.Stderr, "protocol through every class view, and dumps the registry layout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	cfg := policy.Default()
	if *configDir != "" {
		loaded, err := policy.Load(*configDir)
		if err != nil {
			log.Errorf("%s", err.Error())
			os.Exit(1)
		}
		cfg = *loaded
	}

	registry := cfg.NewRegistry()
	if err := run(registry, *cborOut); err != nil {
		log.Errorf("%s", err.Error())
		os.Exit(1)
	}
}

func run(registry *cell.Registry, cborOut string) error {
	// A chain that exercises every classification: a mutable root, a
	// frozen child that still defers to the root's flag, and a mutable
	// grandchild.
	widget, err := registry.Register(cell.ClassSpec{Name: "Widget", HasDict: true, HasWeakRefs: true})
	if err != nil {
		return err
	}
	label, err := registry.Register(cell.ClassSpec{Name: "Label", Superclass: widget, Frozen: true})
	if err != nil {
		return err
	}
	button, err := registry.Register(cell.ClassSpec{Name: "Button", Superclass: label})
	if err != nil {
		return err
	}
	if _, err := registry.Register(cell.ClassSpec{Name: "Icon", Frozen: true}); err != nil {
		return err
	}

	inst, err := button.NewInstance("widget-state", "label-state", "button-state")
	if err != nil {
		return err
	}

	// A mutable borrow through the leaf must conflict through every view.
	mut, err := inst.View().TryBorrowMut()
	if err != nil {
		return err
	}
	for _, c := range []*cell.Class{widget, label, button} {
		view, err := inst.As(c)
		if err != nil {
			return err
		}
		if stray, err := view.TryBorrow(); err == nil {
			stray.Release()
			return fmt.Errorf("borrow through %s unexpectedly succeeded during a mutable borrow", c.Name())
		}
		log.Infof("borrow through %s correctly refused: flag owner %s", c.Name(), c.FlagOwner().Name())
	}
	mut.Release()

	ref, err := inst.View().TryBorrow()
	if err != nil {
		return err
	}
	log.Infof("shared borrow through %s sees payload %v", ref.Class().Name(), ref.Payload())
	ref.Release()
	inst.Dealloc()

	snap := inspect.Snapshot(registry)
	if cborOut != "" {
		data, err := inspect.MarshalSnapshot(snap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cborOut, data, 0o644); err != nil {
			return fmt.Errorf("cannot write %s: %w", cborOut, err)
		}
		log.Infof("wrote %d snapshot bytes to %s", len(data), cborOut)
		return nil
	}

	fmt.Print(snap.Describe())
	return nil
}
