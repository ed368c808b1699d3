// Package sink contains electronic load drivers.
package sink

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// Chroma63600 drives a Chroma 63600-series modular electronic load.
type Chroma63600 struct {
	res *resource.Resource
}

// Valid operating modes for SetMode.
var chromaModes = map[string]bool{
	"CC": true, "CR": true, "CV": true, "CP": true, "CZ": true,
}

// NewChroma63600 connects to the load.
func NewChroma63600(ctx context.Context, mgr *visa.ResourceManager, address string, opts ...resource.Option) (*Chroma63600, error) {
	res, err := resource.Open(ctx, mgr, address, opts...)
	if err != nil {
		return nil, err
	}
	return &Chroma63600{res: res}, nil
}

// Resource returns the underlying resource façade.
func (c *Chroma63600) Resource() *resource.Resource { return c.res }

// SetState enables or disables the input of the load.
func (c *Chroma63600) SetState(on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	return c.res.Write("LOAD " + state)
}

// GetState reports whether the input of the load is enabled.
func (c *Chroma63600) GetState() (bool, error) {
	resp, err := c.res.Query("LOAD?")
	if err != nil {
		return false, err
	}
	return resp == "ON" || resp == "1", nil
}

// On enables the input of the load.
func (c *Chroma63600) On() error { return c.SetState(true) }

// Off disables the input of the load.
func (c *Chroma63600) Off() error { return c.SetState(false) }

// SetMode selects the operating mode of the active channel. Valid
// modes are CC, CR, CV, CP and CZ, with range suffix L, M or H
// ("CCL", "CCH", ...).
func (c *Chroma63600) SetMode(mode string) error {
	mode = strings.ToUpper(mode)
	base := mode
	if len(mode) == 3 {
		base = mode[:2]
		if r := mode[2]; r != 'L' && r != 'M' && r != 'H' {
			return resource.Configf("invalid mode range %q, valid ranges are L, M, H", mode)
		}
	}
	if !chromaModes[base] {
		return resource.Configf("invalid mode %q", mode)
	}
	return c.res.Write("MODE " + mode)
}

// GetMode returns the operating mode of the active channel.
func (c *Chroma63600) GetMode() (string, error) {
	return c.res.Query("MODE?")
}

// SetChannel selects the load channel to control.
func (c *Chroma63600) SetChannel(channel int) error {
	if channel < 1 {
		return resource.Configf("invalid channel %d", channel)
	}
	return c.res.Write(fmt.Sprintf("CHAN %d", channel))
}

// GetChannel returns the selected load channel.
func (c *Chroma63600) GetChannel() (int, error) {
	resp, err := c.res.Query("CHAN?")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp)
}

// SetCurrent changes the static current setpoint for both levels in
// constant current mode.
func (c *Chroma63600) SetCurrent(current float64) error {
	if err := c.res.Write(fmt.Sprintf("CURR:STAT:L1 %f", current)); err != nil {
		return err
	}
	return c.res.Write(fmt.Sprintf("CURR:STAT:L2 %f", current))
}

// GetCurrent reads the level-1 static current setpoint.
func (c *Chroma63600) GetCurrent() (float64, error) {
	resp, err := c.res.Query("CURR:STAT:L1?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// MeasureVoltage measures the voltage present across the load in Vdc.
func (c *Chroma63600) MeasureVoltage() (float64, error) {
	resp, err := c.res.Query("MEAS:VOLT?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// MeasureCurrent measures the current through the load in Adc.
func (c *Chroma63600) MeasureCurrent() (float64, error) {
	resp, err := c.res.Query("MEAS:CURR?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// MeasurePower measures the power consumed by the load in W.
func (c *Chroma63600) MeasurePower() (float64, error) {
	resp, err := c.res.Query("FETC:POW?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// Close releases the underlying session.
func (c *Chroma63600) Close() error {
	return c.res.Close()
}
