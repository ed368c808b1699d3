package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

func newSweepBench(t *testing.T) *visa.ResourceManager {
	t.Helper()
	hub := visa.NewSimHub()
	hub.Add("psu", visa.NewSimInstrument(visa.SimConfig{IDN: "acme,psu,1,1.0"}))
	hub.Add("load", visa.NewSimInstrument(visa.SimConfig{IDN: "acme,load,2,1.0"}))

	mgr := visa.NewDefaultManager(hub)
	mgr.AddKnownResource("GPIB0::5::INSTR")
	return mgr
}

func TestFindResources(t *testing.T) {
	mgr := newSweepBench(t)

	all := FindResources(mgr, "")
	if len(all) != 3 {
		t.Fatalf("got %d resources, want 3: %v", len(all), all)
	}

	sims := FindResources(mgr, "sim::")
	if len(sims) != 2 {
		t.Errorf("filter sim:: = %v, want 2 entries", sims)
	}

	gpib := FindResources(mgr, "GPIB")
	if len(gpib) != 1 || gpib[0] != "GPIB0::5::INSTR" {
		t.Errorf("filter GPIB = %v", gpib)
	}

	none := FindResources(mgr, "USB")
	if len(none) != 0 {
		t.Errorf("filter USB = %v, want none", none)
	}
}

func TestIdentifySweep(t *testing.T) {
	mgr := newSweepBench(t)

	addrs := []string{"SIM::psu", "SIM::load", "SIM::missing"}
	results := Identify(context.Background(), mgr, addrs, IdentifyConfig{Timeout: 100 * time.Millisecond})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byAddr := make(map[string]IdentifyResult, len(results))
	for _, r := range results {
		byAddr[r.Address] = r
	}

	if r := byAddr["SIM::psu"]; r.Err != nil || r.IDN != "acme,psu,1,1.0" {
		t.Errorf("SIM::psu = %+v", r)
	}
	if r := byAddr["SIM::load"]; r.Err != nil || r.IDN != "acme,load,2,1.0" {
		t.Errorf("SIM::load = %+v", r)
	}

	// The dead address reports its error without aborting the sweep.
	if r := byAddr["SIM::missing"]; r.Err == nil {
		t.Error("SIM::missing should have failed")
	}
}

func TestIdentifyEmptyAddressList(t *testing.T) {
	mgr := newSweepBench(t)

	results := Identify(context.Background(), mgr, nil, DefaultIdentifyConfig())
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
