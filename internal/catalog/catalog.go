// Package catalog holds the static breathing exercises and affirmations,
// shipped as embedded YAML and optionally replaced by a file.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Phase struct {
	Label   string `yaml:"label"`
	Seconds int    `yaml:"seconds"`
}

type Exercise struct {
	Key       string  `yaml:"key"`
	Name      string  `yaml:"name"`
	RestLabel string  `yaml:"rest_label"`
	Phases    []Phase `yaml:"phases"`
}

type Catalog struct {
	Exercises    []Exercise `yaml:"exercises"`
	Affirmations []string   `yaml:"affirmations"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file, or returns the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Exercises))
	for _, e := range c.Exercises {
		if e.Key == "" {
			return fmt.Errorf("exercise %q has no key", e.Name)
		}
		if seen[e.Key] {
			return fmt.Errorf("duplicate exercise %q", e.Key)
		}
		seen[e.Key] = true
		if len(e.Phases) == 0 {
			return fmt.Errorf("exercise %q has no phases", e.Key)
		}
		for _, p := range e.Phases {
			if p.Seconds <= 0 {
				return fmt.Errorf("exercise %q phase %q must last at least one second", e.Key, p.Label)
			}
		}
	}
	return nil
}

func (c *Catalog) Exercise(key string) (Exercise, bool) {
	for _, e := range c.Exercises {
		if e.Key == key {
			return e, true
		}
	}
	return Exercise{}, false
}
