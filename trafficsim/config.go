// Package trafficsim simulates cars on a grid of road cells on top of the
// reactive engine. Each car is a process emitting a movement wish every
// cycle; a central arbiter process merges all wishes, grants at most one car
// per cell, and broadcasts the granted moves. The no-collision invariant
// holds for every worker count because wishes merge commutatively and the
// arbiter only sees the settled merge.
package trafficsim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a scenario. Zero values fall back to defaults.
type Config struct {
	Width   int   `yaml:"width"`
	Height  int   `yaml:"height"`
	Cars    int   `yaml:"cars"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"`
}

// DefaultConfig is a small scenario usable without a file.
func DefaultConfig() Config {
	return Config{Width: 16, Height: 16, Cars: 32, Seed: 1}
}

// LoadConfig reads a YAML scenario file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Cars <= 0 {
		return fmt.Errorf("need at least one car, got %d", c.Cars)
	}
	if c.Cars > c.Width*c.Height {
		return fmt.Errorf("%d cars cannot fit %d cells", c.Cars, c.Width*c.Height)
	}
	return nil
}
