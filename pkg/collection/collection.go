package collection

import (
	"context"
	"fmt"
	"sort"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/virtual"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// ConnectOption configures a Connect run.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	allowFailures bool
	forceVirtual  bool
	resourceOpts  []resource.Option
}

// AllowFailures collects per-device connection and init errors instead
// of aborting the whole bench on the first one. Failed entries are
// absent from the collection; their errors are available via Errors.
func AllowFailures() ConnectOption {
	return func(o *connectOptions) { o.allowFailures = true }
}

// ForceVirtual substitutes virtual devices for every entry, regardless
// of the entry's own Virtual flag. Used for offline dry runs.
func ForceVirtual() ConnectOption {
	return func(o *connectOptions) { o.forceVirtual = true }
}

// WithResourceOptions passes resource options (retry policy, timeouts,
// tracer) to every real driver's connection.
func WithResourceOptions(opts ...resource.Option) ConnectOption {
	return func(o *connectOptions) { o.resourceOpts = opts }
}

// Collection is a connected bench: every device of a config, by name.
type Collection struct {
	devices map[string]*Device
	errs    map[string]error
}

// Connect builds every device of the config: real drivers through the
// registry, virtual devices through the catalog. Init sequences run in
// order right after each device connects. Without AllowFailures the
// first failure closes everything already connected and aborts.
func Connect(ctx context.Context, mgr *visa.ResourceManager, reg *Registry, catalog *virtual.Catalog, cfg Config, opts ...ConnectOption) (*Collection, error) {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	col := &Collection{
		devices: make(map[string]*Device, len(cfg)),
		errs:    make(map[string]error),
	}

	// Deterministic connection order.
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := cfg[name]
		dev, err := connectOne(ctx, mgr, reg, catalog, name, entry, &o)
		if err == nil {
			err = applyInit(dev, entry.Init)
			if err != nil {
				_ = dev.Close()
			}
		}
		if err != nil {
			if o.allowFailures {
				col.errs[name] = err
				continue
			}
			_ = col.Close()
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
		col.devices[name] = dev
	}

	return col, nil
}

// connectOne builds a single device per its entry.
func connectOne(ctx context.Context, mgr *visa.ResourceManager, reg *Registry, catalog *virtual.Catalog, name string, entry DeviceEntry, o *connectOptions) (*Device, error) {
	if entry.Virtual || o.forceVirtual {
		vopts := []virtual.DeviceOption{}
		if entry.Address != "" {
			vopts = append(vopts, virtual.WithAddress(entry.Address))
		}
		if len(entry.Kwargs) > 0 {
			vopts = append(vopts, virtual.WithAttributes(entry.Kwargs))
		}
		vd := virtual.New(catalog, entry.Driver, vopts...)
		return &Device{Name: name, Driver: entry.Driver, Virtual: true, Instrument: vd}, nil
	}

	factory, ok := reg.Lookup(entry.Driver)
	if !ok {
		return nil, &UnsupportedResourceError{Name: name, Driver: entry.Driver}
	}
	instr, err := factory(ctx, mgr, entry.Address, entry.Kwargs, o.resourceOpts...)
	if err != nil {
		return nil, err
	}
	return &Device{Name: name, Driver: entry.Driver, Instrument: instr}, nil
}

// applyInit runs an init sequence in order, stopping at the first
// failing step.
func applyInit(dev *Device, steps []InitStep) error {
	for i, step := range steps {
		if _, err := dev.CallKw(step.Operation, step.Args, step.Kwargs); err != nil {
			return fmt.Errorf("init step %d (%s): %w", i, step.Operation, err)
		}
	}
	return nil
}

// Device returns the connected device registered under name.
func (c *Collection) Device(name string) (*Device, bool) {
	d, ok := c.devices[name]
	return d, ok
}

// Names lists the connected device names, sorted.
func (c *Collection) Names() []string {
	out := make([]string, 0, len(c.devices))
	for name := range c.devices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Errors returns the per-device failures collected under
// AllowFailures. Empty on a fully connected bench.
func (c *Collection) Errors() map[string]error {
	return c.errs
}

// Close releases every device. Best effort: all devices are closed
// even when some fail, and the first failure is reported.
func (c *Collection) Close() error {
	var first error
	for _, d := range c.devices {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
