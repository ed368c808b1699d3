package source

import (
	"context"
	"errors"
	"testing"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

func newTestSupply(t *testing.T, responses map[string]string) (*Keithley2231A, *visa.SimInstrument) {
	t.Helper()
	si := visa.NewSimInstrument(visa.SimConfig{
		IDN:       "Keithley,2231A-30-3,123,1.0",
		Responses: responses,
	})
	hub := visa.NewSimHub()
	hub.Add("psu", si)
	mgr := visa.NewDefaultManager(hub)

	k, err := NewKeithley2231A(context.Background(), mgr, "SIM::psu", 1)
	if err != nil {
		t.Fatalf("NewKeithley2231A failed: %v", err)
	}
	t.Cleanup(func() { k.Close() })
	return k, si
}

func lastWrite(t *testing.T, si *visa.SimInstrument) string {
	t.Helper()
	writes := si.Writes()
	if len(writes) == 0 {
		t.Fatal("no writes recorded")
	}
	return writes[len(writes)-1]
}

func TestNewLocksRemote(t *testing.T) {
	_, si := newTestSupply(t, nil)

	if got := lastWrite(t, si); got != "SYSTem:RWLock" {
		t.Errorf("last write = %q, want SYSTem:RWLock", got)
	}
}

func TestSetVoltageSelectsChannelFirst(t *testing.T) {
	k, si := newTestSupply(t, nil)

	if err := k.SetVoltage(12.5); err != nil {
		t.Fatalf("SetVoltage failed: %v", err)
	}

	writes := si.Writes()
	n := len(writes)
	if n < 2 {
		t.Fatalf("writes = %v", writes)
	}
	if writes[n-2] != "INST:NSEL 1" {
		t.Errorf("channel select = %q", writes[n-2])
	}
	if writes[n-1] != "VOLT 12.500000" {
		t.Errorf("setpoint write = %q", writes[n-1])
	}
}

func TestSetStateFormatsOutputCommand(t *testing.T) {
	k, si := newTestSupply(t, nil)

	if err := k.On(); err != nil {
		t.Fatalf("On failed: %v", err)
	}
	if got := lastWrite(t, si); got != "CHAN:OUTP 1" {
		t.Errorf("On wrote %q", got)
	}

	if err := k.Off(); err != nil {
		t.Fatalf("Off failed: %v", err)
	}
	if got := lastWrite(t, si); got != "CHAN:OUTP 0" {
		t.Errorf("Off wrote %q", got)
	}
}

func TestMeasureVoltageParsesResponse(t *testing.T) {
	k, _ := newTestSupply(t, map[string]string{"MEAS:VOLT?": "11.987"})

	got, err := k.MeasureVoltage()
	if err != nil {
		t.Fatalf("MeasureVoltage failed: %v", err)
	}
	if got != 11.987 {
		t.Errorf("MeasureVoltage = %v, want 11.987", got)
	}
}

func TestSetChannelValidatesRange(t *testing.T) {
	k, _ := newTestSupply(t, nil)

	for _, ch := range []int{0, 4, -1} {
		err := k.SetChannel(ch)
		var cfgErr *resource.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("SetChannel(%d) = %v, want *ConfigurationError", ch, err)
		}
	}

	if err := k.SetChannel(3); err != nil {
		t.Errorf("SetChannel(3) failed: %v", err)
	}
}

func TestCloseReleasesFrontPanel(t *testing.T) {
	si := visa.NewSimInstrument(visa.SimConfig{})
	hub := visa.NewSimHub()
	hub.Add("psu", si)
	mgr := visa.NewDefaultManager(hub)

	k, err := NewKeithley2231A(context.Background(), mgr, "SIM::psu", 1)
	if err != nil {
		t.Fatalf("NewKeithley2231A failed: %v", err)
	}
	if err := k.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := lastWrite(t, si); got != "SYSTem:LOCal" {
		t.Errorf("last write = %q, want SYSTem:LOCal", got)
	}
}
