package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// triggerSession is a simulated GPIB session that records group
// triggers.
type triggerSession struct {
	*visa.SimSession
	triggered [][]int
}

func (s *triggerSession) GroupExecuteTrigger(addrs ...int) error {
	s.triggered = append(s.triggered, addrs)
	return nil
}

// newGPIBBench registers a fake GPIB transport and opens resources on
// it. The controller session supports group triggering; device
// sessions do not.
func newGPIBBench(t *testing.T) (*visa.ResourceManager, *triggerSession) {
	t.Helper()

	ctrl := &triggerSession{
		SimSession: visa.NewSimSession(visa.NewSimInstrument(visa.SimConfig{})),
	}

	mgr := visa.NewResourceManager()
	mgr.Register(visa.InterfaceGPIB, visa.OpenerFunc(
		func(_ context.Context, addr visa.Address, _ visa.Config) (visa.Session, error) {
			if addr.Primary == 0 {
				return ctrl, nil
			}
			return visa.NewSimSession(visa.NewSimInstrument(visa.SimConfig{})), nil
		}))
	return mgr, ctrl
}

func openAll(t *testing.T, mgr *visa.ResourceManager, addrs ...string) []*resource.Resource {
	t.Helper()
	out := make([]*resource.Resource, 0, len(addrs))
	for _, addr := range addrs {
		res, err := resource.Open(context.Background(), mgr, addr)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", addr, err)
		}
		t.Cleanup(func() { res.Close() })
		out = append(out, res)
	}
	return out
}

func TestGroupTrigger(t *testing.T) {
	mgr, ctrl := newGPIBBench(t)

	resources := openAll(t, mgr, "GPIB0::0::INSTR", "GPIB0::5::INSTR", "GPIB0::7::INSTR")
	group := NewGroup(resources[0])

	if err := group.Trigger(resources[1], resources[2]); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if len(ctrl.triggered) != 1 {
		t.Fatalf("got %d trigger transactions, want 1", len(ctrl.triggered))
	}
	got := ctrl.triggered[0]
	if len(got) != 2 || got[0] != 5 || got[1] != 7 {
		t.Errorf("triggered addresses = %v, want [5 7]", got)
	}
}

func TestGroupTriggerWithoutSupport(t *testing.T) {
	mgr, _ := newGPIBBench(t)

	// A non-controller session has no group trigger capability.
	resources := openAll(t, mgr, "GPIB0::5::INSTR", "GPIB0::7::INSTR")
	group := NewGroup(resources[0])

	if err := group.Trigger(resources[1]); !errors.Is(err, ErrNoTriggerSupport) {
		t.Errorf("err = %v, want ErrNoTriggerSupport", err)
	}
}

func TestGroupTriggerRejectsNonGPIBDevice(t *testing.T) {
	mgr, _ := newGPIBBench(t)

	hub := visa.NewSimHub()
	hub.Add("dut", visa.NewSimInstrument(visa.SimConfig{}))
	mgr.Register(visa.InterfaceSim, hub)

	resources := openAll(t, mgr, "GPIB0::0::INSTR", "SIM::dut")
	group := NewGroup(resources[0])

	if err := group.Trigger(resources[1]); !errors.Is(err, ErrNotGPIB) {
		t.Errorf("err = %v, want ErrNotGPIB", err)
	}
}
