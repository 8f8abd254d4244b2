// Package cql holds the disease-surveillance indicator catalog. Indicator
// definitions are opaque: the catalog only maps an indicator id or name to
// the text used to label reports. It plays no part in classification.
package cql

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Indicator is one surveillance query. Name doubles as the query label
// matched against classified records.
type Indicator struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
}

// Catalog is a concurrency-safe registry of indicators keyed by id.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]*Indicator
	byName map[string]string // lower-cased name -> id
	order  []string
}

// NewCatalog creates a Catalog seeded with indicators. Later duplicates of an
// id replace earlier ones but keep the original position.
func NewCatalog(indicators ...Indicator) *Catalog {
	c := &Catalog{
		byID:   make(map[string]*Indicator),
		byName: make(map[string]string),
	}
	for _, ind := range indicators {
		_ = c.Register(ind)
	}
	return c
}

// Register adds or replaces an indicator. The id defaults to the name.
func (c *Catalog) Register(ind Indicator) error {
	ind.ID = strings.TrimSpace(ind.ID)
	ind.Name = strings.TrimSpace(ind.Name)
	if ind.ID == "" {
		ind.ID = ind.Name
	}
	if ind.ID == "" {
		return fmt.Errorf("indicator requires an id or name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[ind.ID]; !exists {
		c.order = append(c.order, ind.ID)
	}
	stored := ind
	c.byID[ind.ID] = &stored
	if ind.Name != "" {
		c.byName[strings.ToLower(ind.Name)] = ind.ID
	}
	return nil
}

// Lookup finds an indicator by id, or by case-insensitive name.
func (c *Catalog) Lookup(key string) (Indicator, bool) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ind, ok := c.byID[key]; ok {
		return *ind, true
	}
	if id, ok := c.byName[strings.ToLower(key)]; ok {
		return *c.byID[id], true
	}
	return Indicator{}, false
}

// Describe returns the description of an indicator, or false when the
// indicator is unknown or has no description.
func (c *Catalog) Describe(key string) (string, bool) {
	ind, ok := c.Lookup(key)
	if !ok || ind.Description == "" {
		return "", false
	}
	return ind.Description, true
}

// Label returns the query label of an indicator: its name, or the id when
// unnamed. Unknown keys are returned unchanged so free-text labels work.
func (c *Catalog) Label(key string) string {
	ind, ok := c.Lookup(key)
	if !ok {
		return key
	}
	if ind.Name != "" {
		return ind.Name
	}
	return ind.ID
}

// List returns all indicators in registration order.
func (c *Catalog) List() []Indicator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Indicator, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

// Enabled returns the enabled indicators in registration order.
func (c *Catalog) Enabled() []Indicator {
	var out []Indicator
	for _, ind := range c.List() {
		if ind.Enabled {
			out = append(out, ind)
		}
	}
	return out
}

// IDs returns the sorted indicator ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
