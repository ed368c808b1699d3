// Command bench-discover lists and identifies bench instruments.
//
// Usage:
//
//	bench-discover [flags] [address ...]
//
// Flags:
//
//	-filter string   Keep only addresses containing this substring
//	-identify        Probe each address with *IDN?
//	-lxi             Browse mDNS for LXI/SCPI-raw instruments
//	-gpib string     Serial port of a Prologix GPIB controller
//	-timeout duration  Per-probe and browse timeout (default 1s)
//
// With no addresses on the command line, the transports' own
// enumeration is used (serial ports, GPIB addresses behind a
// controller). Addresses given explicitly are probed as-is.
//
// Examples:
//
//	# List serial ports
//	bench-discover -filter ASRL
//
//	# Identify everything on a GPIB bus
//	bench-discover -gpib /dev/ttyUSB0 -identify
//
//	# Find LXI instruments on the network
//	bench-discover -lxi
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/discovery"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

func main() {
	var (
		filter   = flag.String("filter", "", "keep only addresses containing this substring")
		identify = flag.Bool("identify", false, "probe each address with *IDN?")
		lxi      = flag.Bool("lxi", false, "browse mDNS for LXI/SCPI-raw instruments")
		gpib     = flag.String("gpib", "", "serial port of a Prologix GPIB controller")
		timeout  = flag.Duration("timeout", time.Second, "per-probe and browse timeout")
	)
	flag.Parse()

	ctx := context.Background()

	if *lxi {
		browseLXI(ctx, *timeout)
		return
	}

	mgr := visa.NewDefaultManager(nil)
	if *gpib != "" {
		mgr.Register(visa.InterfaceGPIB, visa.NewPrologixOpener(*gpib))
	}

	addrs := flag.Args()
	if len(addrs) == 0 {
		addrs = discovery.FindResources(mgr, *filter)
	}
	if len(addrs) == 0 {
		fmt.Println("no resources found")
		return
	}

	if !*identify {
		for _, addr := range addrs {
			fmt.Println(addr)
		}
		return
	}

	results := discovery.Identify(ctx, mgr, addrs, discovery.IdentifyConfig{Timeout: *timeout})
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%-40s ERROR: %v\n", r.Address, r.Err)
			continue
		}
		fmt.Printf("%-40s %s\n", r.Address, r.IDN)
	}
	if failed == len(results) {
		os.Exit(1)
	}
}

func browseLXI(ctx context.Context, timeout time.Duration) {
	instruments, err := discovery.BrowseLXI(ctx, discovery.BrowseConfig{Timeout: timeout})
	if err != nil {
		log.Fatalf("mDNS browse failed: %v", err)
	}
	if len(instruments) == 0 {
		fmt.Println("no LXI instruments found")
		return
	}
	for _, inst := range instruments {
		fmt.Printf("%-30s %-30s %s\n", inst.Instance, inst.Host, inst.Address)
	}
}
