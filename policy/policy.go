// Package policy handles hostcell.toml runtime configuration.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/hostcell/cell"
)

// Config represents a hostcell.toml runtime configuration.
type Config struct {
	Teardown Teardown `toml:"teardown"`
	Log      Log      `toml:"log"`
}

// Teardown configures instance teardown behavior.
type Teardown struct {
	// WrongThread selects what happens to finalizers when an
	// affinity-bound instance is deallocated away from its home
	// goroutine: "skip" (abandon them) or "queue" (park them for the
	// owner to drain).
	WrongThread string `toml:"wrong-thread"`
}

// Log configures diagnostic logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no hostcell.toml is present.
func Default() Config {
	return Config{
		Teardown: Teardown{WrongThread: "skip"},
	}
}

// Load parses a hostcell.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "hostcell.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Validate checks the configuration for unknown settings.
func (c *Config) Validate() error {
	switch c.Teardown.WrongThread {
	case "", "skip", "queue":
	default:
		return fmt.Errorf("teardown.wrong-thread must be \"skip\" or \"queue\", got %q", c.Teardown.WrongThread)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative")
	}
	return nil
}

// TeardownPolicy maps the configured wrong-thread behavior to the cell
// package's policy value.
func (c *Config) TeardownPolicy() cell.TeardownPolicy {
	if c.Teardown.WrongThread == "queue" {
		return cell.TeardownQueue
	}
	return cell.TeardownSkip
}

// NewRegistry builds a class registry configured per c.
func (c *Config) NewRegistry() *cell.Registry {
	return cell.NewRegistry(cell.WithTeardownPolicy(c.TeardownPolicy()))
}
