package collection

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/benchkit-project/benchkit-go/pkg/virtual"
)

// Dispatch errors.
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrBadArguments     = errors.New("bad arguments")
)

// Device is one connected instrument of a collection: either a real
// driver instance or a virtual stand-in, behind a uniform call surface.
type Device struct {
	// Name is the config entry name.
	Name string

	// Driver is the driver reference the device was built from.
	Driver string

	// Virtual reports whether the device is simulated.
	Virtual bool

	// Instrument is the driver instance (*source.Keithley2231A, ...) or
	// *virtual.Device. Callers that know the concrete driver type
	// assert it here; scripted callers go through Call.
	Instrument any
}

// Call invokes an operation by its snake_case name with positional
// arguments. Virtual devices dispatch through their simulation engine;
// real drivers are invoked by reflection over their method set.
func (d *Device) Call(name string, args ...any) (any, error) {
	return d.CallKw(name, args, nil)
}

// CallKw invokes an operation with positional and keyword arguments.
// Real drivers accept keyword arguments only as a substitute for a
// sole positional value.
func (d *Device) CallKw(name string, args []any, kwargs map[string]any) (any, error) {
	if vd, ok := d.Instrument.(*virtual.Device); ok {
		return vd.CallKw(name, args, kwargs)
	}
	return invoke(d.Instrument, name, args, kwargs)
}

// Close releases the device, tolerating instruments without a Close
// method.
func (d *Device) Close() error {
	c, ok := d.Instrument.(interface{ Close() error })
	if !ok {
		return nil
	}
	return c.Close()
}

// invoke finds the exported method whose snake_case name matches op and
// calls it with converted arguments.
func invoke(instr any, op string, args []any, kwargs map[string]any) (any, error) {
	v := reflect.ValueOf(instr)
	t := v.Type()

	var method reflect.Value
	found := false
	for i := 0; i < t.NumMethod(); i++ {
		if virtual.OperationName(t.Method(i).Name) == op {
			method = v.Method(i)
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	mt := method.Type()

	// Go methods take positional arguments only; a sole keyword value
	// stands in for a missing sole positional one.
	if len(kwargs) > 0 {
		if len(args) > 0 || len(kwargs) > 1 || mt.NumIn() != 1 {
			return nil, fmt.Errorf("%w: %s: keyword arguments not supported for driver methods", ErrBadArguments, op)
		}
		for _, kv := range kwargs {
			args = []any{kv}
		}
	}

	if len(args) != mt.NumIn() {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrBadArguments, op, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		cv, err := convertArg(a, mt.In(i))
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrBadArguments, op, i, err)
		}
		in[i] = cv
	}

	out := method.Call(in)

	var result any
	var err error
	for _, o := range out {
		if o.Type().Implements(errType) {
			if !o.IsNil() {
				err = o.Interface().(error)
			}
			continue
		}
		if result == nil {
			result = o.Interface()
		}
	}
	return result, err
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// convertArg adapts a decoded config value to a parameter type. YAML
// decodes numbers as int or float64, so numeric kinds convert freely.
func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(t) {
		return av, nil
	}
	if av.Type().ConvertibleTo(t) {
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.String:
			if t.Kind() == reflect.String && av.Kind() != reflect.String {
				break
			}
			return av.Convert(t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}
