package resource

import "fmt"

// CommunicationError indicates the retry budget was exhausted on a
// transient transport fault during write/read/query. It carries the
// resource address and, when known, the identification string for
// diagnostics.
type CommunicationError struct {
	// Address of the resource that failed.
	Address string

	// IDN is the resource identification string, empty if unknown.
	IDN string

	// Err is the last transport fault observed.
	Err error
}

// Error returns the error message.
func (e *CommunicationError) Error() string {
	msg := fmt.Sprintf("failed to communicate with device at %s", e.Address)
	if e.IDN != "" {
		msg += fmt.Sprintf(" (%s)", e.IDN)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport fault.
func (e *CommunicationError) Unwrap() error { return e.Err }

// ConfigurationError indicates malformed or semantically invalid
// settings supplied to a driver method, e.g. an unsupported enumerated
// option. It is raised immediately and never retried.
type ConfigurationError struct {
	// Message describes the invalid setting.
	Message string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string { return e.Message }

// Configf builds a ConfigurationError with a formatted message.
func Configf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
