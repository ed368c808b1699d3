package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// mDNS service types advertised by LXI-class instruments.
const (
	serviceTypeSCPIRaw = "_scpi-raw._tcp"
	serviceTypeLXI     = "_lxi._tcp"

	mdnsDomain = "local."
)

// Instrument is one mDNS-discovered LXI instrument.
type Instrument struct {
	// Instance is the advertised service instance name.
	Instance string

	// Host is the advertised hostname.
	Host string

	// Port is the advertised SCPI port.
	Port int

	// Addresses are the resolved IP addresses.
	Addresses []net.IP

	// Address is the VISA resource string for the first resolved
	// address ("TCPIP0::10.0.0.5::5025::SOCKET"), empty when
	// resolution produced none.
	Address string
}

// BrowseConfig tunes an mDNS browse.
type BrowseConfig struct {
	// Timeout bounds the browse. Defaults to three seconds.
	Timeout time.Duration

	// Interface restricts browsing to one network interface by name.
	// Empty browses all interfaces.
	Interface string
}

// DefaultBrowseConfig returns the browse defaults.
func DefaultBrowseConfig() BrowseConfig {
	return BrowseConfig{Timeout: 3 * time.Second}
}

// BrowseLXI browses mDNS for instruments advertising the SCPI raw
// socket or LXI service types and returns them with ready-to-open
// VISA resource strings. The browse runs until the timeout or until
// ctx is cancelled, whichever comes first.
func BrowseLXI(ctx context.Context, cfg BrowseConfig) ([]Instrument, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBrowseConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := browseOptions(cfg)

	var mu sync.Mutex
	// Aggregate by instance name - the same instrument answers on
	// every interface it is reachable over.
	found := make(map[string]*Instrument)

	var wg sync.WaitGroup
	for _, service := range []string{serviceTypeSCPIRaw, serviceTypeLXI} {
		entries := make(chan *zeroconf.ServiceEntry)
		removed := make(chan *zeroconf.ServiceEntry)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case entry, ok := <-entries:
					if !ok {
						return
					}
					mu.Lock()
					mergeEntry(found, entry)
					mu.Unlock()
				case <-removed:
				case <-ctx.Done():
					return
				}
			}
		}()

		go func(service string) {
			_ = zeroconf.Browse(ctx, service, mdnsDomain, entries, removed, opts...)
		}(service)
	}

	<-ctx.Done()
	wg.Wait()

	out := make([]Instrument, 0, len(found))
	for _, inst := range found {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out, nil
}

// mergeEntry folds one service entry into the aggregate, combining
// addresses from multiple interfaces.
func mergeEntry(found map[string]*Instrument, entry *zeroconf.ServiceEntry) {
	addrs := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	addrs = append(addrs, entry.AddrIPv4...)
	addrs = append(addrs, entry.AddrIPv6...)

	inst, ok := found[entry.Instance]
	if !ok {
		inst = &Instrument{
			Instance: entry.Instance,
			Host:     entry.HostName,
			Port:     entry.Port,
		}
		found[entry.Instance] = inst
	}

	for _, ip := range addrs {
		seen := false
		for _, have := range inst.Addresses {
			if have.Equal(ip) {
				seen = true
				break
			}
		}
		if !seen {
			inst.Addresses = append(inst.Addresses, ip)
		}
	}

	if inst.Address == "" && len(inst.Addresses) > 0 {
		port := inst.Port
		if port == 0 {
			port = visa.DefaultSCPIPort
		}
		inst.Address = fmt.Sprintf("TCPIP0::%s::%d::SOCKET", inst.Addresses[0], port)
	}
}

// browseOptions returns zeroconf client options for the config.
func browseOptions(cfg BrowseConfig) []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if cfg.Interface != "" {
		if iface, err := net.InterfaceByName(cfg.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}
