// Command bench-run connects a whole bench from a YAML configuration
// file, runs every device's init sequence and prints a summary.
//
// Usage:
//
//	bench-run -config bench.yaml [flags]
//
// Flags:
//
//	-config string   Bench configuration file (required)
//	-gpib string     Serial port of a Prologix GPIB controller
//	-virtual         Substitute virtual devices for every entry
//	-keep-going      Collect per-device failures instead of aborting
//	-retry int       Retry limit for transient faults (default 0)
//	-trace string    Append a CBOR traffic log to this file
//
// Examples:
//
//	# Dry-run a bench config offline
//	bench-run -config bench.yaml -virtual
//
//	# Bring up the bench, tolerating missing instruments
//	bench-run -config bench.yaml -keep-going
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/collection"
	"github.com/benchkit-project/benchkit-go/pkg/drivers"
	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/trace"
	"github.com/benchkit-project/benchkit-go/pkg/virtual"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

func main() {
	var (
		configPath = flag.String("config", "", "bench configuration file")
		gpib       = flag.String("gpib", "", "serial port of a Prologix GPIB controller")
		forceVirt  = flag.Bool("virtual", false, "substitute virtual devices for every entry")
		keepGoing  = flag.Bool("keep-going", false, "collect per-device failures instead of aborting")
		retry      = flag.Int("retry", 0, "retry limit for transient faults")
		traceFile  = flag.String("trace", "", "append a CBOR traffic log to this file")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("missing -config")
	}

	cfg, err := collection.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	mgr := visa.NewDefaultManager(nil)
	if *gpib != "" {
		mgr.Register(visa.InterfaceGPIB, visa.NewPrologixOpener(*gpib))
	}

	catalog := virtual.NewCatalog()
	registry := collection.NewRegistry()
	drivers.RegisterAll(catalog, registry)

	resOpts := []resource.Option{resource.WithRetryLimit(*retry)}
	if *traceFile != "" {
		tl, err := trace.NewFileLogger(*traceFile)
		if err != nil {
			log.Fatalf("open trace log: %v", err)
		}
		defer tl.Close()
		resOpts = append(resOpts, resource.WithTracer(tl))
	}

	connOpts := []collection.ConnectOption{
		collection.WithResourceOptions(resOpts...),
	}
	if *forceVirt {
		connOpts = append(connOpts, collection.ForceVirtual())
	}
	if *keepGoing {
		connOpts = append(connOpts, collection.AllowFailures())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	bench, err := collection.Connect(ctx, mgr, registry, catalog, cfg, connOpts...)
	if err != nil {
		log.Fatalf("connect bench: %v", err)
	}
	defer bench.Close()

	fmt.Printf("connected %d device(s) in %s\n", len(bench.Names()), time.Since(start).Round(time.Millisecond))
	for _, name := range bench.Names() {
		dev, _ := bench.Device(name)
		kind := "hardware"
		if dev.Virtual {
			kind = "virtual"
		}
		fmt.Printf("  %-20s %-30s %s\n", name, dev.Driver, kind)
	}

	if errs := bench.Errors(); len(errs) > 0 {
		fmt.Printf("%d device(s) failed:\n", len(errs))
		for name, err := range errs {
			fmt.Printf("  %-20s %v\n", name, err)
		}
		os.Exit(1)
	}
}
