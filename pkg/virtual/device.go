package virtual

import (
	"errors"
	"fmt"
	"log/slog"
)

// Dispatch errors (strict mode only; permissive dispatch never fails).
var (
	ErrUnknownOperation = errors.New("unknown operation")
)

// Call is one recorded invocation.
type Call struct {
	// Name is the operation name as invoked.
	Name string

	// Args are the positional arguments.
	Args []any

	// Kwargs are the keyword arguments, nil when none were given.
	Kwargs map[string]any
}

// Device is a simulated stand-in for a physical instrument. It answers
// the introspected driver's call surface with fabricated,
// self-consistent state and records every invocation.
//
// A Device is a single-caller object: its state table and call history
// are mutated in place with no internal locking, so concurrent callers
// must serialize access themselves.
type Device struct {
	address string
	strict  bool

	// attrs are static attribute overrides, answered verbatim.
	attrs map[string]any

	// caps is the immutable capability table.
	caps map[string]Capability

	// links is the setter relation table.
	links map[string]fieldLinks

	// values is the simulated state table: getter/measurement name to
	// last-observed value.
	values map[string]any

	// history is the append-only call log.
	history []Call
}

// DeviceOption configures a Device at construction.
type DeviceOption func(*Device)

// WithAddress sets the virtual address reported by the device.
func WithAddress(addr string) DeviceOption {
	return func(d *Device) { d.address = addr }
}

// WithAttributes installs static attribute overrides: Attr lookups for
// these names return the given value verbatim and record nothing.
func WithAttributes(attrs map[string]any) DeviceOption {
	return func(d *Device) {
		for k, v := range attrs {
			d.attrs[k] = v
		}
	}
}

// WithStrict makes unknown operation names fail with
// ErrUnknownOperation instead of being silently recorded and answered
// with nil.
func WithStrict() DeviceOption {
	return func(d *Device) { d.strict = true }
}

// New builds a virtual device for the driver registered under ref.
//
// If the driver reference is not in the catalog the device is still
// constructed, with an empty capability table and a non-fatal warning,
// so callers receive an object that accepts static attribute lookups
// and, in permissive mode, arbitrary calls.
func New(catalog *Catalog, ref string, opts ...DeviceOption) *Device {
	d := &Device{
		address: "virtualdevice",
		attrs:   make(map[string]any),
		caps:    make(map[string]Capability),
		links:   make(map[string]fieldLinks),
		values:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(d)
	}

	t, ok := catalog.Lookup(ref)
	if !ok || t == nil {
		slog.Warn("virtual device: driver class not found, capability table empty",
			"driver", ref)
		return d
	}

	d.caps, d.links = buildCapabilities(t)

	// Seed the state table so measurements answer their defaults
	// before any setter runs.
	for name, c := range d.caps {
		switch roleOf(name) {
		case RoleGetter, RoleMeasurement:
			d.values[name] = c.Default
		}
	}

	return d
}

// Address returns the virtual resource address.
func (d *Device) Address() string { return d.address }

// IDN returns the identification string: the idn static attribute if
// one was supplied, else a generic virtual identity.
func (d *Device) IDN() string {
	if v, ok := d.attrs["idn"]; ok {
		return fmt.Sprint(v)
	}
	return "benchkit,virtual device,0,1.0"
}

// Capabilities returns the capability table. The returned map is the
// device's own table; treat it as read-only.
func (d *Device) Capabilities() map[string]Capability { return d.caps }

// Attr returns the static attribute override for name.
func (d *Device) Attr(name string) (any, bool) {
	v, ok := d.attrs[name]
	return v, ok
}

// Call invokes an operation by name with positional arguments.
//
// Dispatch order: static attribute overrides are returned verbatim with
// no history entry; known setters update the linked getter/measurement
// state and return nil; known getters/measurements return current
// state; other known operations return their precomputed default;
// unknown names are recorded and answered with nil (permissive mode) or
// ErrUnknownOperation (strict mode).
func (d *Device) Call(name string, args ...any) (any, error) {
	return d.CallKw(name, args, nil)
}

// CallKw invokes an operation with positional and keyword arguments.
func (d *Device) CallKw(name string, args []any, kwargs map[string]any) (any, error) {
	// Static overrides shadow everything and leave no history.
	if v, ok := d.attrs[name]; ok {
		return v, nil
	}

	capability, known := d.caps[name]
	if !known {
		if d.strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
		}
		// Permissive fallback: record and answer nil so exploratory
		// scripts against partially-modeled devices keep running.
		d.record(name, args, kwargs)
		return nil, nil
	}

	d.record(name, args, kwargs)

	switch roleOf(name) {
	case RoleSetter:
		d.applySetter(name, args, kwargs)
		// Instruments acknowledge setters without a response.
		return nil, nil

	case RoleGetter, RoleMeasurement:
		if v, ok := d.values[name]; ok {
			return v, nil
		}
		return capability.Default, nil

	default:
		return capability.Default, nil
	}
}

// applySetter writes the supplied value into the state entries linked
// to the setter: the value is the sole positional argument, or the sole
// keyword value when no positional arguments were given.
func (d *Device) applySetter(name string, args []any, kwargs map[string]any) {
	var value any
	switch {
	case len(args) > 0:
		value = args[0]
	case len(kwargs) > 0:
		for _, v := range kwargs {
			value = v
			break
		}
	default:
		// Setter invoked with no value: history keeps the record,
		// state is left untouched.
		return
	}

	l, ok := d.links[name]
	if !ok {
		return
	}
	if l.getter != "" {
		d.values[l.getter] = value
	}
	if l.measure != "" {
		d.values[l.measure] = value
	}
}

// OverrideMeasurement forces the state entry for a known getter or
// measurement capability to an explicit value, bypassing the setter
// correlation. Used to script test scenarios: fault injection, boundary
// values.
func (d *Device) OverrideMeasurement(name string, value any) error {
	if _, ok := d.caps[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	switch roleOf(name) {
	case RoleGetter, RoleMeasurement:
		d.values[name] = value
		return nil
	default:
		return fmt.Errorf("%s is not a getter or measurement operation", name)
	}
}

// CallHistory returns the full invocation log, ordered by occurrence.
// The log includes unknown operation names answered permissively.
func (d *Device) CallHistory() []Call {
	out := make([]Call, len(d.history))
	copy(out, d.history)
	return out
}

// Calls returns all recorded invocations of one operation, in order.
func (d *Device) Calls(name string) []Call {
	var out []Call
	for _, c := range d.history {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// LastCall returns the most recent invocation of one operation.
func (d *Device) LastCall(name string) (Call, bool) {
	for i := len(d.history) - 1; i >= 0; i-- {
		if d.history[i].Name == name {
			return d.history[i], true
		}
	}
	return Call{}, false
}

// SetLocal is accepted and ignored, matching the real façade's
// behavior on buses without remote/local switching.
func (d *Device) SetLocal() {}

// Close is a no-op; virtual devices hold no transport session.
func (d *Device) Close() error { return nil }

// String returns a short description of the virtual device.
func (d *Device) String() string {
	return fmt.Sprintf("Resource ID: %s\nAddress: %s", d.IDN(), d.address)
}

// record appends one history entry.
func (d *Device) record(name string, args []any, kwargs map[string]any) {
	entry := Call{Name: name, Args: append([]any(nil), args...)}
	if len(kwargs) > 0 {
		entry.Kwargs = make(map[string]any, len(kwargs))
		for k, v := range kwargs {
			entry.Kwargs[k] = v
		}
	}
	d.history = append(d.history, entry)
}
