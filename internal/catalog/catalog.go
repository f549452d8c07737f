// Package catalog holds the sellable items, their display names and list prices.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Entry is a named, priced item.
type Entry struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Price int64  `yaml:"price,omitempty" json:"price,omitempty"`
}

const maxDailyLimit = 100_000

// Metric is a per-day traffic product of the restaurant track.
type Metric struct {
	ID        string `yaml:"id" json:"id"`
	Label     string `yaml:"label" json:"label"`
	UnitPrice int64  `yaml:"unit_price" json:"unit_price"`
	MinDaily  int    `yaml:"min_daily" json:"min_daily"`
	MaxDaily  int    `yaml:"max_daily,omitempty" json:"max_daily,omitempty"`
}

// General lists the general-track items.
type General struct {
	Products []Entry `yaml:"products" json:"products"`
	Options  []Entry `yaml:"options" json:"options"`
	Virals   []Entry `yaml:"virals" json:"virals"`
}

// Restaurant lists the restaurant-track items.
type Restaurant struct {
	CampaignDays int      `yaml:"campaign_days" json:"campaign_days"`
	Metrics      []Metric `yaml:"metrics" json:"metrics"`
	Options      []Entry  `yaml:"options" json:"options"`
}

// Catalog is immutable after Load.
type Catalog struct {
	Platforms  []Entry    `yaml:"platforms" json:"platforms"`
	General    General    `yaml:"general" json:"general"`
	Restaurant Restaurant `yaml:"restaurant" json:"restaurant"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embedded)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// LoadFile reads a catalog from path. An empty path returns Default.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// YAML renders the catalog back to YAML.
func (c *Catalog) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Catalog) validate() error {
	var problems []string
	checkEntries := func(group string, entries []Entry, requirePrice bool) {
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Name) == "" {
				problems = append(problems, group+": id and name are required")
				continue
			}
			if _, dup := seen[e.ID]; dup {
				problems = append(problems, fmt.Sprintf("%s: duplicate id %q", group, e.ID))
			}
			seen[e.ID] = struct{}{}
			if requirePrice && e.Price <= 0 {
				problems = append(problems, fmt.Sprintf("%s: %q needs a positive price", group, e.ID))
			}
		}
	}
	checkEntries("platforms", c.Platforms, false)
	checkEntries("general.products", c.General.Products, true)
	checkEntries("general.options", c.General.Options, true)
	checkEntries("general.virals", c.General.Virals, true)
	checkEntries("restaurant.options", c.Restaurant.Options, true)

	if c.Restaurant.CampaignDays <= 0 {
		problems = append(problems, "restaurant.campaign_days must be positive")
	}
	seen := make(map[string]struct{})
	for _, m := range c.Restaurant.Metrics {
		if _, dup := seen[m.ID]; dup || m.ID == "" {
			problems = append(problems, fmt.Sprintf("restaurant.metrics: bad id %q", m.ID))
		}
		seen[m.ID] = struct{}{}
		if m.UnitPrice <= 0 || m.MinDaily <= 0 {
			problems = append(problems, fmt.Sprintf("restaurant.metrics: %q needs positive unit_price and min_daily", m.ID))
		}
		if m.MaxDaily != 0 && (m.MaxDaily < m.MinDaily || m.MaxDaily > maxDailyLimit) {
			problems = append(problems, fmt.Sprintf("restaurant.metrics: %q max_daily must lie in [min_daily, %d]", m.ID, maxDailyLimit))
		}
	}
	if len(problems) > 0 {
		return errors.New("catalog: " + strings.Join(problems, "; "))
	}
	return nil
}

// PlatformName returns the display name of a platform.
func (c *Catalog) PlatformName(id string) (string, bool) {
	e, ok := find(c.Platforms, id)
	return e.Name, ok
}

// Product looks up a general-track product.
func (c *Catalog) Product(id string) (Entry, bool) { return find(c.General.Products, id) }

// Option looks up a general-track option.
func (c *Catalog) Option(id string) (Entry, bool) { return find(c.General.Options, id) }

// Viral looks up a viral package.
func (c *Catalog) Viral(id string) (Entry, bool) { return find(c.General.Virals, id) }

// RestaurantOption looks up a flat-fee restaurant add-on.
func (c *Catalog) RestaurantOption(id string) (Entry, bool) { return find(c.Restaurant.Options, id) }

// Metric looks up a restaurant traffic metric.
func (c *Catalog) Metric(id string) (Metric, bool) {
	for _, m := range c.Restaurant.Metrics {
		if m.ID == id {
			return m, true
		}
	}
	return Metric{}, false
}

func find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
