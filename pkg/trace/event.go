package trace

import (
	"time"

	"github.com/google/uuid"
)

// Event is one SCPI traffic event captured at a resource façade.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the resource session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Address is the resource address the traffic belongs to.
	Address string `cbor:"3,keyasint"`

	// Direction indicates traffic flow relative to the host.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// Command is the command text sent (writes and queries).
	Command string `cbor:"6,keyasint,omitempty"`

	// Response is the response text received (queries and reads).
	// Binary responses are recorded by size only.
	Response string `cbor:"7,keyasint,omitempty"`

	// Size is the payload size in bytes for raw transfers.
	Size int `cbor:"8,keyasint,omitempty"`

	// Attempts is how many transport attempts the operation took
	// (1 = no retry was needed).
	Attempts int `cbor:"9,keyasint,omitempty"`

	// Elapsed is the total operation duration, retries included.
	Elapsed time.Duration `cbor:"10,keyasint,omitempty"`

	// Err is the final error message when the operation failed.
	Err string `cbor:"11,keyasint,omitempty"`
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Direction indicates traffic flow relative to the host.
type Direction uint8

const (
	// DirectionOut is host-to-instrument traffic.
	DirectionOut Direction = 0
	// DirectionIn is instrument-to-host traffic.
	DirectionIn Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryWrite is a command write.
	CategoryWrite Category = 0
	// CategoryQuery is a write/read pair.
	CategoryQuery Category = 1
	// CategoryRead is a standalone read.
	CategoryRead Category = 2
	// CategoryLifecycle is open/close/clear activity.
	CategoryLifecycle Category = 3
	// CategoryError is a failed operation.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryWrite:
		return "WRITE"
	case CategoryQuery:
		return "QUERY"
	case CategoryRead:
		return "READ"
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
