package visa

import (
	"errors"
	"fmt"
	"net"
)

// Transport errors.
var (
	ErrInvalidAddress       = errors.New("invalid resource address")
	ErrUnsupportedInterface = errors.New("unsupported interface type")
	ErrSessionClosed        = errors.New("session closed")
	ErrNotSupported         = errors.New("operation not supported by transport")
)

// ConnectError indicates a session could not be established with a
// resource. It is fatal to that resource's construction and is never
// retried; callers must reconstruct the resource to reconnect.
type ConnectError struct {
	// Address is the resource address that could not be reached.
	Address string

	// Err is the underlying transport error.
	Err error
}

// Error returns the error message.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not connect to resource at %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error { return e.Err }

// IOError is a transport-level I/O fault raised during a read, write or
// buffer operation on an established session. Transient faults (timeouts,
// temporary network conditions) are retryable; protocol faults are not.
type IOError struct {
	// Op is the operation that failed ("write", "read", "clear", ...).
	Op string

	// Transient reports whether the fault is worth retrying.
	Transient bool

	// Err is the underlying error.
	Err error
}

// Error returns the error message.
func (e *IOError) Error() string {
	return fmt.Sprintf("visa %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// Timeout reports whether the fault was a timeout.
func (e *IOError) Timeout() bool {
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// transientErr wraps err as a retryable I/O fault.
func transientErr(op string, err error) error {
	return &IOError{Op: op, Transient: true, Err: err}
}

// protocolErr wraps err as a non-retryable transport fault.
func protocolErr(op string, err error) error {
	return &IOError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a transport fault that may succeed
// on a retry. Connection-establishment failures and protocol faults are
// not transient.
func IsTransient(err error) bool {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return ioErr.Transient
	}

	// Bare network timeouts from transports that did not classify.
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}

	return false
}

// classifyNetErr wraps a raw network error, marking timeouts and
// temporary conditions as transient.
func classifyNetErr(op string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return transientErr(op, err)
	}
	return protocolErr(op, err)
}
