// Package catalog holds the static commodity and event reference data the
// simulation runs against. A catalog is loaded once, validated, and then only read.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Category string

const (
	Energy      Category = "Energy"
	Metal       Category = "Metal"
	Agriculture Category = "Agriculture"
	Livestock   Category = "Livestock"

	// AllCategories is the wildcard an event uses to hit every commodity.
	AllCategories Category = "ALL"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed default.yaml
var defaultYAML []byte

type Commodity struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Category        Category `yaml:"category" json:"category"`
	BasePrice       float64  `yaml:"base_price" json:"base_price"`
	Volatility      float64  `yaml:"volatility" json:"volatility"`
	ProductionCost  float64  `yaml:"production_cost" json:"production_cost"`
	ProductionYield int      `yaml:"production_yield" json:"production_yield"`
}

type EventTemplate struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Category    Category `yaml:"category" json:"category"`
	Multiplier  float64  `yaml:"multiplier" json:"multiplier"`
}

// Catalog is the ordered set of tradeable goods plus the event pool. Order
// matters: the engine walks commodities in catalog order so seeded runs replay.
type Catalog struct {
	Commodities []Commodity     `yaml:"commodities" json:"commodities"`
	Events      []EventTemplate `yaml:"events" json:"events"`

	index map[string]int
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// LoadOrDefault reads path, or returns the built-in catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

// Default returns the built-in catalog. It panics if the embedded file is
// malformed, which can only happen through a bad edit to default.yaml.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Validate() error {
	if c == nil || len(c.Commodities) == 0 {
		return fmt.Errorf("%w: no commodities", ErrInvalidCatalog)
	}
	index := make(map[string]int, len(c.Commodities))
	for i, com := range c.Commodities {
		id := strings.TrimSpace(com.ID)
		switch {
		case id == "" || id != com.ID:
			return fmt.Errorf("%w: commodity %d has an empty or padded id", ErrInvalidCatalog, i)
		case strings.TrimSpace(com.Name) == "":
			return fmt.Errorf("%w: commodity %s has no name", ErrInvalidCatalog, id)
		case !com.Category.Valid():
			return fmt.Errorf("%w: commodity %s has unknown category %q", ErrInvalidCatalog, id, com.Category)
		case com.BasePrice <= 0:
			return fmt.Errorf("%w: commodity %s base price must be > 0", ErrInvalidCatalog, id)
		case com.Volatility < 0 || com.Volatility > 1:
			return fmt.Errorf("%w: commodity %s volatility must be within [0,1]", ErrInvalidCatalog, id)
		case com.ProductionCost < 0:
			return fmt.Errorf("%w: commodity %s production cost must be >= 0", ErrInvalidCatalog, id)
		case com.ProductionYield <= 0:
			return fmt.Errorf("%w: commodity %s production yield must be > 0", ErrInvalidCatalog, id)
		}
		if _, dup := index[id]; dup {
			return fmt.Errorf("%w: duplicate commodity %s", ErrInvalidCatalog, id)
		}
		index[id] = i
	}
	for i, ev := range c.Events {
		if strings.TrimSpace(ev.Name) == "" {
			return fmt.Errorf("%w: event %d has no name", ErrInvalidCatalog, i)
		}
		if ev.Category != AllCategories && !ev.Category.Valid() {
			return fmt.Errorf("%w: event %q has unknown category %q", ErrInvalidCatalog, ev.Name, ev.Category)
		}
		if ev.Multiplier <= 0 {
			return fmt.Errorf("%w: event %q multiplier must be > 0", ErrInvalidCatalog, ev.Name)
		}
	}
	c.index = index
	return nil
}

func (c *Catalog) Lookup(id string) (Commodity, bool) {
	i, ok := c.index[id]
	if !ok {
		return Commodity{}, false
	}
	return c.Commodities[i], true
}

func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.Commodities))
	for _, com := range c.Commodities {
		out = append(out, com.ID)
	}
	return out
}

func (cat Category) Valid() bool {
	switch cat {
	case Energy, Metal, Agriculture, Livestock:
		return true
	default:
		return false
	}
}

// Covers reports whether an event scoped to cat applies to a commodity in target.
func (cat Category) Covers(target Category) bool {
	return cat == AllCategories || cat == target
}
