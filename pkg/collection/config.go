package collection

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a declarative bench description: device name to entry.
//
//	supply:
//	  driver: source.Keithley2231A
//	  address: TCPIP0::10.0.0.5::5025::SOCKET
//	  kwargs:
//	    channel: 1
//	  init:
//	    - operation: set_voltage
//	      args: [12.0]
//	    - operation: on
type Config map[string]DeviceEntry

// DeviceEntry describes one instrument of a bench.
type DeviceEntry struct {
	// Driver is the driver reference ("source.Keithley2231A").
	Driver string `yaml:"driver"`

	// Address is the VISA resource address. Optional for virtual
	// entries.
	Address string `yaml:"address"`

	// Virtual substitutes a simulated device for the instrument.
	Virtual bool `yaml:"virtual"`

	// Kwargs are constructor arguments for real drivers, or static
	// attribute overrides for virtual devices.
	Kwargs map[string]any `yaml:"kwargs"`

	// Init is the ordered list of operations applied right after the
	// device is connected.
	Init []InitStep `yaml:"init"`
}

// InitStep is one operation of an init sequence.
type InitStep struct {
	// Operation is the snake_case operation name ("set_voltage").
	Operation string `yaml:"operation"`

	// Args are positional arguments.
	Args []any `yaml:"args"`

	// Kwargs are keyword arguments.
	Kwargs map[string]any `yaml:"kwargs"`
}

// ConfigError reports an invalid bench configuration.
type ConfigError struct {
	// Name is the offending device entry, empty for file-level faults.
	Name string

	// Message describes the fault.
	Message string
}

func (e *ConfigError) Error() string {
	if e.Name == "" {
		return "invalid bench config: " + e.Message
	}
	return fmt.Sprintf("invalid bench config: device %s: %s", e.Name, e.Message)
}

// Load reads and validates a bench configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a bench configuration document.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural rules of a bench configuration.
func (c Config) Validate() error {
	for name, entry := range c {
		if entry.Driver == "" {
			return &ConfigError{Name: name, Message: "missing driver"}
		}
		if !entry.Virtual && entry.Address == "" {
			return &ConfigError{Name: name, Message: "missing address"}
		}
		for i, step := range entry.Init {
			if step.Operation == "" {
				return &ConfigError{
					Name:    name,
					Message: fmt.Sprintf("init step %d: missing operation", i),
				}
			}
		}
	}
	return nil
}
