// Package multimeter contains digital multimeter drivers.
package multimeter

import (
	"context"
	"strconv"
	"strings"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// Measurement functions supported by SetMode, keyed by the short names
// used in bench configs.
var dmmModes = map[string]string{
	"VDC":  "VOLT:DC",
	"VAC":  "VOLT:AC",
	"ADC":  "CURR:DC",
	"AAC":  "CURR:AC",
	"OHMS": "RES",
	"FREQ": "FREQ",
	"TEMP": "TEMP",
}

// Keysight34461A drives a Keysight 34461A 6.5-digit multimeter.
type Keysight34461A struct {
	res *resource.Resource
}

// NewKeysight34461A connects to the multimeter.
func NewKeysight34461A(ctx context.Context, mgr *visa.ResourceManager, address string, opts ...resource.Option) (*Keysight34461A, error) {
	res, err := resource.Open(ctx, mgr, address, opts...)
	if err != nil {
		return nil, err
	}
	return &Keysight34461A{res: res}, nil
}

// Resource returns the underlying resource façade.
func (m *Keysight34461A) Resource() *resource.Resource { return m.res }

// SetMode configures the measurement function. Valid modes: VDC, VAC,
// ADC, AAC, OHMS, FREQ, TEMP.
func (m *Keysight34461A) SetMode(mode string) error {
	function, ok := dmmModes[strings.ToUpper(mode)]
	if !ok {
		return resource.Configf("invalid mode %q", mode)
	}
	return m.res.Write(`FUNC "` + function + `"`)
}

// GetMode returns the configured measurement function.
func (m *Keysight34461A) GetMode() (string, error) {
	resp, err := m.res.Query("FUNC?")
	if err != nil {
		return "", err
	}
	return strings.Trim(resp, `"`), nil
}

// MeasureVoltage triggers and returns a DC voltage reading in Vdc.
func (m *Keysight34461A) MeasureVoltage() (float64, error) {
	return m.read("MEAS:VOLT:DC?")
}

// MeasureVoltageRMS triggers and returns an AC voltage reading in Vrms.
func (m *Keysight34461A) MeasureVoltageRMS() (float64, error) {
	return m.read("MEAS:VOLT:AC?")
}

// MeasureCurrent triggers and returns a DC current reading in Adc.
func (m *Keysight34461A) MeasureCurrent() (float64, error) {
	return m.read("MEAS:CURR:DC?")
}

// MeasureResistance triggers and returns a 2-wire resistance reading
// in ohms.
func (m *Keysight34461A) MeasureResistance() (float64, error) {
	return m.read("MEAS:RES?")
}

// MeasureFrequency triggers and returns a frequency reading in Hz.
func (m *Keysight34461A) MeasureFrequency() (float64, error) {
	return m.read("MEAS:FREQ?")
}

func (m *Keysight34461A) read(query string) (float64, error) {
	resp, err := m.res.Query(query)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// Close releases the underlying session.
func (m *Keysight34461A) Close() error {
	return m.res.Close()
}
