package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/hostcell/cell"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hostcell.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Teardown.WrongThread != "skip" {
		t.Errorf("default wrong-thread = %q, want skip", c.Teardown.WrongThread)
	}
	if c.TeardownPolicy() != cell.TeardownSkip {
		t.Error("default teardown policy is not skip")
	}
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `
[teardown]
wrong-thread = "queue"

[log]
verbosity = 2
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Teardown.WrongThread != "queue" {
		t.Errorf("wrong-thread = %q, want queue", c.Teardown.WrongThread)
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", c.Log.Verbosity)
	}
	if c.TeardownPolicy() != cell.TeardownQueue {
		t.Error("teardown policy is not queue")
	}
	if got := c.NewRegistry().TeardownPolicy(); got != cell.TeardownQueue {
		t.Errorf("registry teardown policy = %v, want queue", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load succeeded with no hostcell.toml")
	}
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	dir := writeConfig(t, `
[teardown]
wrong-thread = "ignore"
`)
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted an unknown wrong-thread value")
	}
}

func TestLoadRejectsBadToml(t *testing.T) {
	dir := writeConfig(t, `[teardown`)
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted malformed TOML")
	}
}

func TestValidateNegativeVerbosity(t *testing.T) {
	c := Default()
	c.Log.Verbosity = -1
	if err := c.Validate(); err == nil {
		t.Error("Validate accepted a negative verbosity")
	}
}
