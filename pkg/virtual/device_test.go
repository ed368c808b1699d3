package virtual

import (
	"errors"
	"testing"
)

func newProbeDevice(t *testing.T, opts ...DeviceOption) *Device {
	t.Helper()
	cat := NewCatalog()
	cat.Register("test.Probe", (*probe)(nil))
	return New(cat, "test.Probe", opts...)
}

func TestDeviceDefaultsBeforeAnySetter(t *testing.T) {
	d := newProbeDevice(t)

	tests := []struct {
		op   string
		want any
	}{
		{"measure_voltage", 0.0},
		{"get_voltage", 0.0},
		{"get_mode", ""},
		{"get_state", false},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := d.Call(tt.op)
			if err != nil {
				t.Fatalf("Call(%q) failed: %v", tt.op, err)
			}
			if got != tt.want {
				t.Errorf("Call(%q) = %v (%T), want %v (%T)", tt.op, got, got, tt.want, tt.want)
			}
		})
	}

	// Sequence default is an empty slice, not nil.
	got, err := d.Call("measure_harmonics")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	seq, ok := got.([]any)
	if !ok || len(seq) != 0 {
		t.Errorf("measure_harmonics = %v, want empty []any", got)
	}
}

func TestDeviceSetterUpdatesLinkedState(t *testing.T) {
	d := newProbeDevice(t)

	if _, err := d.Call("set_voltage", 12.5); err != nil {
		t.Fatalf("set_voltage failed: %v", err)
	}

	got, err := d.Call("measure_voltage")
	if err != nil {
		t.Fatalf("measure_voltage failed: %v", err)
	}
	if got != 12.5 {
		t.Errorf("measure_voltage = %v, want 12.5", got)
	}

	got, err = d.Call("get_voltage")
	if err != nil {
		t.Fatalf("get_voltage failed: %v", err)
	}
	if got != 12.5 {
		t.Errorf("get_voltage = %v, want 12.5", got)
	}
}

func TestDeviceSetterReturnsNil(t *testing.T) {
	d := newProbeDevice(t)

	got, err := d.Call("set_voltage", 5.0)
	if err != nil {
		t.Fatalf("set_voltage failed: %v", err)
	}
	if got != nil {
		t.Errorf("setter returned %v, want nil", got)
	}
}

func TestDeviceSetterWithoutObservables(t *testing.T) {
	d := newProbeDevice(t)

	// set_channel has no get/measure counterpart; the call is recorded
	// and otherwise inert.
	if _, err := d.Call("set_channel", 2); err != nil {
		t.Fatalf("set_channel failed: %v", err)
	}
	if _, ok := d.LastCall("set_channel"); !ok {
		t.Error("set_channel not in history")
	}
}

func TestDeviceSetterKeywordValue(t *testing.T) {
	d := newProbeDevice(t)

	_, err := d.CallKw("set_voltage", nil, map[string]any{"voltage": 3.3})
	if err != nil {
		t.Fatalf("set_voltage failed: %v", err)
	}
	got, _ := d.Call("get_voltage")
	if got != 3.3 {
		t.Errorf("get_voltage = %v, want 3.3", got)
	}
}

func TestDeviceUnknownOperationPermissive(t *testing.T) {
	d := newProbeDevice(t)

	got, err := d.Call("do_the_impossible", 1, 2, 3)
	if err != nil {
		t.Fatalf("permissive dispatch errored: %v", err)
	}
	if got != nil {
		t.Errorf("unknown operation returned %v, want nil", got)
	}

	// Unknown names still land in the history.
	last, ok := d.LastCall("do_the_impossible")
	if !ok {
		t.Fatal("unknown operation not recorded")
	}
	if len(last.Args) != 3 {
		t.Errorf("recorded args = %v", last.Args)
	}
}

func TestDeviceUnknownOperationStrict(t *testing.T) {
	d := newProbeDevice(t, WithStrict())

	_, err := d.Call("do_the_impossible")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("err = %v, want ErrUnknownOperation", err)
	}
}

func TestDeviceCallHistoryOrdered(t *testing.T) {
	d := newProbeDevice(t)

	ops := []string{"set_voltage", "measure_voltage", "bogus_op", "get_state"}
	for _, op := range ops {
		if op == "set_voltage" {
			_, _ = d.Call(op, 1.0)
			continue
		}
		_, _ = d.Call(op)
	}

	history := d.CallHistory()
	if len(history) != len(ops) {
		t.Fatalf("history length = %d, want %d", len(history), len(ops))
	}
	for i, op := range ops {
		if history[i].Name != op {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Name, op)
		}
	}
}

func TestDeviceCallsFiltersByName(t *testing.T) {
	d := newProbeDevice(t)

	_, _ = d.Call("set_voltage", 1.0)
	_, _ = d.Call("set_voltage", 2.0)
	_, _ = d.Call("measure_voltage")

	calls := d.Calls("set_voltage")
	if len(calls) != 2 {
		t.Fatalf("Calls = %d entries, want 2", len(calls))
	}
	if calls[0].Args[0] != 1.0 || calls[1].Args[0] != 2.0 {
		t.Errorf("recorded args = %v, %v", calls[0].Args, calls[1].Args)
	}
}

func TestDeviceOverrideMeasurement(t *testing.T) {
	d := newProbeDevice(t)

	if err := d.OverrideMeasurement("measure_voltage", 99.9); err != nil {
		t.Fatalf("OverrideMeasurement failed: %v", err)
	}
	got, _ := d.Call("measure_voltage")
	if got != 99.9 {
		t.Errorf("measure_voltage = %v, want 99.9", got)
	}

	// Override loses to a later setter.
	_, _ = d.Call("set_voltage", 1.0)
	got, _ = d.Call("measure_voltage")
	if got != 1.0 {
		t.Errorf("measure_voltage after setter = %v, want 1.0", got)
	}
}

func TestDeviceOverrideMeasurementRejectsNonObservable(t *testing.T) {
	d := newProbeDevice(t)

	if err := d.OverrideMeasurement("set_voltage", 1.0); err == nil {
		t.Error("expected error overriding a setter")
	}
	if err := d.OverrideMeasurement("no_such_op", 1.0); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("err = %v, want ErrUnknownOperation", err)
	}
}

func TestDeviceStaticAttributes(t *testing.T) {
	d := newProbeDevice(t, WithAttributes(map[string]any{
		"idn":     "acme,virtual,0,1.0",
		"channel": 3,
	}))

	got, err := d.Call("channel")
	if err != nil {
		t.Fatalf("attribute call failed: %v", err)
	}
	if got != 3 {
		t.Errorf("channel = %v, want 3", got)
	}

	// Attribute lookups leave no history entry.
	if _, ok := d.LastCall("channel"); ok {
		t.Error("attribute lookup recorded in history")
	}

	if d.IDN() != "acme,virtual,0,1.0" {
		t.Errorf("IDN() = %q", d.IDN())
	}
}

func TestDeviceUnknownDriverStillConstructs(t *testing.T) {
	cat := NewCatalog()
	d := New(cat, "test.Ghost")

	if d == nil {
		t.Fatal("device not constructed for unknown driver")
	}
	if len(d.Capabilities()) != 0 {
		t.Errorf("capability table = %v, want empty", d.Capabilities())
	}

	// Permissive dispatch still answers.
	got, err := d.Call("set_voltage", 1.0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != nil {
		t.Errorf("Call = %v, want nil", got)
	}
}

func TestDeviceLifecycleNoops(t *testing.T) {
	d := newProbeDevice(t, WithAddress("SIM::dut"))

	if d.Address() != "SIM::dut" {
		t.Errorf("Address() = %q", d.Address())
	}
	d.SetLocal()
	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
