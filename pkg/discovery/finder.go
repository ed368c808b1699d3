// Package discovery enumerates and identifies bench instruments:
// manager-known resource addresses, identification sweeps over
// candidate addresses, and mDNS browsing for LXI instruments.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// FindResources lists the resource addresses known to the manager's
// transports. A non-empty filter keeps only addresses containing it
// (case-insensitive), so "ASRL" narrows to serial ports.
func FindResources(mgr *visa.ResourceManager, filter string) []string {
	addrs := mgr.Resources()
	if filter == "" {
		return addrs
	}
	filter = strings.ToLower(filter)
	out := addrs[:0]
	for _, addr := range addrs {
		if strings.Contains(strings.ToLower(addr), filter) {
			out = append(out, addr)
		}
	}
	return out
}

// IdentifyConfig tunes an identification sweep.
type IdentifyConfig struct {
	// Timeout bounds the open and the identification query per
	// address. Defaults to one second.
	Timeout time.Duration
}

// DefaultIdentifyConfig returns the sweep defaults.
func DefaultIdentifyConfig() IdentifyConfig {
	return IdentifyConfig{Timeout: time.Second}
}

// IdentifyResult is the outcome of probing one address.
type IdentifyResult struct {
	// Address is the probed resource address.
	Address string

	// IDN is the identification string, empty when the probe failed.
	IDN string

	// Err is the probe failure, nil on success.
	Err error
}

// Identify probes each address with an identification query and
// reports the per-address outcome. Failures are recorded, never
// propagated: a dead address does not abort the sweep.
func Identify(ctx context.Context, mgr *visa.ResourceManager, addrs []string, cfg IdentifyConfig) []IdentifyResult {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultIdentifyConfig().Timeout
	}

	results := make([]IdentifyResult, 0, len(addrs))
	for _, addr := range addrs {
		if ctx.Err() != nil {
			results = append(results, IdentifyResult{Address: addr, Err: ctx.Err()})
			continue
		}
		res, err := resource.Open(ctx, mgr, addr,
			resource.WithOpenTimeout(cfg.Timeout),
			resource.WithIOTimeout(cfg.Timeout),
		)
		if err != nil {
			results = append(results, IdentifyResult{Address: addr, Err: err})
			continue
		}
		results = append(results, IdentifyResult{Address: addr, IDN: res.IDN()})
		_ = res.Close()
	}
	return results
}
