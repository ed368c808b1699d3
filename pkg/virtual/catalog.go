package virtual

import (
	"errors"
	"reflect"
	"sort"
	"sync"
)

// Catalog errors.
var (
	ErrDriverNotFound = errors.New("driver class not found in catalog")
)

// Catalog maps driver references ("source.Keithley2231A") to prototype
// types whose method sets can be introspected. Construct one
// explicitly and register drivers at startup; the catalog is read-only
// afterwards.
type Catalog struct {
	mu         sync.RWMutex
	prototypes map[string]reflect.Type
}

// NewCatalog returns an empty driver catalog.
func NewCatalog() *Catalog {
	return &Catalog{prototypes: make(map[string]reflect.Type)}
}

// Register records a driver prototype under the given reference. The
// prototype is only inspected, never called; a zero-value instance
// (including one with a nil resource) is fine:
//
//	cat.Register("source.Keithley2231A", (*source.Keithley2231A)(nil))
func (c *Catalog) Register(ref string, prototype any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prototypes[ref] = reflect.TypeOf(prototype)
}

// Lookup returns the prototype type registered under ref.
func (c *Catalog) Lookup(ref string) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.prototypes[ref]
	return t, ok
}

// Refs lists all registered driver references, sorted.
func (c *Catalog) Refs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.prototypes))
	for ref := range c.prototypes {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// Capabilities builds the capability table for a registered driver.
func (c *Catalog) Capabilities(ref string) (map[string]Capability, error) {
	t, ok := c.Lookup(ref)
	if !ok {
		return nil, ErrDriverNotFound
	}
	caps, _ := buildCapabilities(t)
	return caps, nil
}
