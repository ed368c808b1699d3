package visa

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Opener establishes sessions for one interface kind.
type Opener interface {
	// Open establishes a session to the parsed address.
	Open(ctx context.Context, addr Address, cfg Config) (Session, error)

	// Resources lists the addresses this opener knows to be reachable,
	// for discovery sweeps. May be empty for transports that cannot
	// enumerate (e.g. plain TCP).
	Resources() []string
}

// OpenerFunc adapts a function to the Opener interface with no
// enumerable resources.
type OpenerFunc func(ctx context.Context, addr Address, cfg Config) (Session, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, addr Address, cfg Config) (Session, error) {
	return f(ctx, addr, cfg)
}

// Resources returns nil.
func (f OpenerFunc) Resources() []string { return nil }

// ResourceManager routes resource addresses to transport openers. It
// replaces the process-wide resource-manager singleton found in most
// VISA stacks: construct one explicitly, register transports, pass it
// to whatever opens resources.
//
// The registry is read-mostly: transports are registered once at
// startup, lookups afterwards take a read lock only.
type ResourceManager struct {
	mu      sync.RWMutex
	openers map[InterfaceKind]Opener

	// Addresses registered directly, e.g. instruments known from a
	// bench inventory file.
	known []string
}

// NewResourceManager returns an empty manager with no transports
// registered.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		openers: make(map[InterfaceKind]Opener),
	}
}

// NewDefaultManager returns a manager with the built-in transports
// registered: TCPIP socket, serial, and the given simulated-instrument
// hub (may be nil to skip SIM). GPIB requires hardware knowledge (the
// controller's serial port) and is registered separately via
// RegisterPrologix.
func NewDefaultManager(hub *SimHub) *ResourceManager {
	m := NewResourceManager()
	m.Register(InterfaceTCPIP, &tcpOpener{})
	m.Register(InterfaceSerial, &serialOpener{})
	if hub != nil {
		m.Register(InterfaceSim, hub)
	}
	return m
}

// Register installs the opener for an interface kind, replacing any
// previous registration.
func (m *ResourceManager) Register(kind InterfaceKind, op Opener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openers[kind] = op
}

// AddKnownResource records an address so it appears in Resources().
func (m *ResourceManager) AddKnownResource(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known = append(m.known, address)
}

// Open parses the address and establishes a session through the
// registered opener. Establishment failures are reported as
// *ConnectError.
func (m *ResourceManager) Open(ctx context.Context, address string, cfg Config) (Session, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, &ConnectError{Address: address, Err: err}
	}

	m.mu.RLock()
	op, ok := m.openers[addr.Kind]
	m.mu.RUnlock()
	if !ok {
		return nil, &ConnectError{
			Address: address,
			Err:     fmt.Errorf("%w: no opener for %s", ErrUnsupportedInterface, addr.Kind),
		}
	}

	cfg = cfg.withDefaults()

	sess, err := op.Open(ctx, addr, cfg)
	if err != nil {
		return nil, &ConnectError{Address: address, Err: err}
	}
	return sess, nil
}

// Resources lists all addresses known to the manager: those registered
// via AddKnownResource plus whatever each transport can enumerate.
func (m *ResourceManager) Resources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}

	for _, addr := range m.known {
		add(addr)
	}
	for _, op := range m.openers {
		for _, addr := range op.Resources() {
			add(addr)
		}
	}

	sort.Strings(out)
	return out
}
