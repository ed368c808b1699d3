// Package collection connects whole benches of instruments from
// declarative configuration files, substituting virtual devices where
// requested, and applies per-device init sequences through a uniform
// dispatch path.
package collection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// Factory builds one real driver instance for a config entry. Kwargs
// carry the entry's constructor arguments (channel numbers and the
// like); unknown keys are the factory's to reject.
type Factory func(ctx context.Context, mgr *visa.ResourceManager, address string, kwargs map[string]any, opts ...resource.Option) (any, error)

// Registry maps driver references to constructors. Construct one
// explicitly and register factories at startup, typically via
// drivers.RegisterAll.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register records a factory under the given driver reference.
func (r *Registry) Register(ref string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[ref] = f
}

// Lookup returns the factory registered under ref.
func (r *Registry) Lookup(ref string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[ref]
	return f, ok
}

// Refs lists all registered driver references, sorted.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for ref := range r.factories {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// UnsupportedResourceError reports a config entry whose driver
// reference has no registered factory.
type UnsupportedResourceError struct {
	// Name is the device entry name.
	Name string

	// Driver is the unresolvable driver reference.
	Driver string
}

func (e *UnsupportedResourceError) Error() string {
	return fmt.Sprintf("device %s: unsupported driver %s", e.Name, e.Driver)
}

// IntKwarg reads an integer constructor argument, tolerating the
// float64 and int forms YAML decoding produces.
func IntKwarg(kwargs map[string]any, key string, fallback int) (int, error) {
	v, ok := kwargs[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("kwarg %s: expected integer, got %T", key, v)
	}
}
