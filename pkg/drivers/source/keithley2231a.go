// Package source contains DC power supply drivers.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// Keithley2231A drives a Keithley 2231A triple-channel DC supply.
//
// If channel is non-zero the instance is associated with that output
// channel and per-call channel arguments are unnecessary; valid
// channels are 1-3.
type Keithley2231A struct {
	res     *resource.Resource
	channel int
}

// NewKeithley2231A connects to the supply and locks its interface for
// remote control.
func NewKeithley2231A(ctx context.Context, mgr *visa.ResourceManager, address string, channel int, opts ...resource.Option) (*Keithley2231A, error) {
	res, err := resource.Open(ctx, mgr, address, opts...)
	if err != nil {
		return nil, err
	}

	k := &Keithley2231A{res: res, channel: channel}
	if err := k.SetAccessRemote(true); err != nil {
		_ = res.Close()
		return nil, err
	}
	return k, nil
}

// Resource returns the underlying resource façade.
func (k *Keithley2231A) Resource() *resource.Resource { return k.res }

// SetAccessRemote locks (remote=true) or releases (remote=false) the
// front-panel interface.
func (k *Keithley2231A) SetAccessRemote(remote bool) error {
	if remote {
		return k.res.Write("SYSTem:RWLock")
	}
	return k.res.Write("SYSTem:LOCal")
}

// SetChannel selects the channel used for subsequent commands.
func (k *Keithley2231A) SetChannel(channel int) error {
	if channel < 1 || channel > 3 {
		return resource.Configf("invalid channel %d, valid channels are 1-3", channel)
	}
	return k.res.Write(fmt.Sprintf("INST:NSEL %d", channel))
}

// GetChannel returns the currently selected channel.
func (k *Keithley2231A) GetChannel() (int, error) {
	resp, err := k.res.Query("INST:NSEL?")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp)
}

// selectChannel applies the instance's associated channel, if any.
func (k *Keithley2231A) selectChannel() error {
	if k.channel == 0 {
		return resource.Configf("no channel associated with this instance")
	}
	return k.SetChannel(k.channel)
}

// SetState enables or disables the output of the selected channel.
func (k *Keithley2231A) SetState(on bool) error {
	if err := k.selectChannel(); err != nil {
		return err
	}
	state := 0
	if on {
		state = 1
	}
	return k.res.Write(fmt.Sprintf("CHAN:OUTP %d", state))
}

// GetState reports whether the selected channel's output is enabled.
func (k *Keithley2231A) GetState() (bool, error) {
	if err := k.selectChannel(); err != nil {
		return false, err
	}
	resp, err := k.res.Query("CHAN:OUTP?")
	if err != nil {
		return false, err
	}
	return resp == "ON" || resp == "1", nil
}

// On enables the output. Equivalent to SetState(true).
func (k *Keithley2231A) On() error { return k.SetState(true) }

// Off disables the output. Equivalent to SetState(false).
func (k *Keithley2231A) Off() error { return k.SetState(false) }

// SetVoltage changes the voltage setpoint of the selected channel.
func (k *Keithley2231A) SetVoltage(voltage float64) error {
	if err := k.selectChannel(); err != nil {
		return err
	}
	return k.res.Write(fmt.Sprintf("VOLT %f", voltage))
}

// GetVoltage returns the voltage setpoint of the selected channel.
func (k *Keithley2231A) GetVoltage() (float64, error) {
	if err := k.selectChannel(); err != nil {
		return 0, err
	}
	resp, err := k.res.Query("VOLT?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// SetCurrent changes the current limit of the selected channel.
func (k *Keithley2231A) SetCurrent(current float64) error {
	if err := k.selectChannel(); err != nil {
		return err
	}
	return k.res.Write(fmt.Sprintf("CURR %f", current))
}

// GetCurrent returns the current limit of the selected channel.
func (k *Keithley2231A) GetCurrent() (float64, error) {
	if err := k.selectChannel(); err != nil {
		return 0, err
	}
	resp, err := k.res.Query("CURR?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// MeasureVoltage measures the output voltage of the selected channel
// in Vdc.
func (k *Keithley2231A) MeasureVoltage() (float64, error) {
	if err := k.selectChannel(); err != nil {
		return 0, err
	}
	resp, err := k.res.Query("MEAS:VOLT?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

// MeasureCurrent measures the output current of the selected channel
// in Adc.
func (k *Keithley2231A) MeasureCurrent() (float64, error) {
	if err := k.selectChannel(); err != nil {
		return 0, err
	}
	resp, err := k.res.Query("MEAS:CURR?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

// Close releases the interface lock and the underlying session.
func (k *Keithley2231A) Close() error {
	_ = k.SetAccessRemote(false)
	return k.res.Close()
}
