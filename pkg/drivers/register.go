package drivers

import (
	"context"

	"github.com/benchkit-project/benchkit-go/pkg/collection"
	"github.com/benchkit-project/benchkit-go/pkg/drivers/multimeter"
	"github.com/benchkit-project/benchkit-go/pkg/drivers/sink"
	"github.com/benchkit-project/benchkit-go/pkg/drivers/source"
	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/virtual"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// RegisterAll installs every bundled driver. A nil catalog or registry
// skips that side, so callers can register for virtual-only or
// hardware-only use.
func RegisterAll(cat *virtual.Catalog, reg *collection.Registry) {
	if cat != nil {
		cat.Register("source.Keithley2231A", (*source.Keithley2231A)(nil))
		cat.Register("sink.Chroma63600", (*sink.Chroma63600)(nil))
		cat.Register("multimeter.Keysight34461A", (*multimeter.Keysight34461A)(nil))
	}

	if reg != nil {
		reg.Register("source.Keithley2231A", func(ctx context.Context, mgr *visa.ResourceManager, address string, kwargs map[string]any, opts ...resource.Option) (any, error) {
			channel, err := collection.IntKwarg(kwargs, "channel", 1)
			if err != nil {
				return nil, err
			}
			return source.NewKeithley2231A(ctx, mgr, address, channel, opts...)
		})
		reg.Register("sink.Chroma63600", func(ctx context.Context, mgr *visa.ResourceManager, address string, kwargs map[string]any, opts ...resource.Option) (any, error) {
			return sink.NewChroma63600(ctx, mgr, address, opts...)
		})
		reg.Register("multimeter.Keysight34461A", func(ctx context.Context, mgr *visa.ResourceManager, address string, kwargs map[string]any, opts ...resource.Option) (any, error) {
			return multimeter.NewKeysight34461A(ctx, mgr, address, opts...)
		})
	}
}
