package visa

import "time"

// Session is one open connection to a physical or simulated instrument.
//
// All operations are synchronous and block the calling goroutine for up
// to the configured I/O timeout. A Session is not safe for concurrent
// use; callers serialize access (typically one coordinating goroutine
// per instrument).
type Session interface {
	// Write sends a text command. The transport appends its line
	// terminator if the command lacks one.
	Write(s string) error

	// WriteRaw sends bytes exactly as given.
	WriteRaw(p []byte) error

	// Read reads one response, decoded as text including any trailing
	// terminator characters.
	Read() (string, error)

	// ReadRaw reads one response without decoding or terminator
	// handling beyond the transport's own framing.
	ReadRaw() ([]byte, error)

	// ReadBytes reads exactly n bytes.
	ReadBytes(n int) ([]byte, error)

	// Clear resets the device input and output buffers at the
	// transport level. Failures are never considered transient.
	Clear() error

	// Timeout returns the current I/O timeout.
	Timeout() time.Duration

	// SetTimeout updates the I/O timeout for subsequent operations.
	SetTimeout(d time.Duration)

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// RemoteLocal is implemented by sessions whose bus supports switching
// the instrument between remote and local (front panel) control.
type RemoteLocal interface {
	// SetLocal returns the instrument to local control.
	SetLocal() error
}

// GroupTriggerer is implemented by bus-controller sessions that can
// issue a group execute trigger to several instruments at once.
type GroupTriggerer interface {
	// GroupExecuteTrigger triggers the instruments at the given
	// primary addresses logically simultaneously.
	GroupExecuteTrigger(addrs ...int) error
}

// Config holds per-session timing configuration. Durations resolve to
// millisecond resolution at the transport.
type Config struct {
	// OpenTimeout bounds connection establishment.
	OpenTimeout time.Duration

	// IOTimeout bounds individual read/write operations.
	IOTimeout time.Duration

	// QueryDelay is the pause between the write and read halves of a
	// query.
	QueryDelay time.Duration
}

// DefaultConfig returns the default session configuration: one second
// open and I/O timeouts, no query delay.
func DefaultConfig() Config {
	return Config{
		OpenTimeout: 1 * time.Second,
		IOTimeout:   1 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = def.IOTimeout
	}
	if c.QueryDelay < 0 {
		c.QueryDelay = 0
	}
	// Millisecond resolution, matching VISA attribute granularity.
	c.OpenTimeout = c.OpenTimeout.Round(time.Millisecond)
	c.IOTimeout = c.IOTimeout.Round(time.Millisecond)
	return c
}
