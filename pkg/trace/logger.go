package trace

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Logger is the interface applications implement to receive traffic events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records a traffic event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking slows
	// down instrument I/O.
	Log(event Event)
}

// NoopLogger discards all events. Use when tracing is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MultiLogger sends events to multiple loggers. Useful when you want
// both console output (via SlogAdapter) and file output (via
// NewFileLogger) simultaneously.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger that sends events to all provided loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to all configured loggers.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// WriterLogger streams CBOR-encoded events to a sink, one event per
// encode, and is safe for concurrent use. Encoding errors are
// swallowed: tracing must never disrupt instrument I/O.
type WriterLogger struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *cbor.Encoder
}

// NewWriterLogger wraps an arbitrary sink. Closing the logger closes
// the sink.
func NewWriterLogger(w io.WriteCloser) *WriterLogger {
	return &WriterLogger{w: w, enc: NewEncoder(w)}
}

// NewFileLogger opens (or creates, mode 0644) the trace log at path
// and appends events to it.
func NewFileLogger(path string) (*WriterLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewWriterLogger(f), nil
}

// Log appends one event. Events logged after Close are dropped.
func (l *WriterLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return
	}
	_ = l.enc.Encode(event)
}

// Close closes the underlying sink. Safe to call more than once.
func (l *WriterLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enc == nil {
		return nil
	}
	l.enc = nil
	return l.w.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
	_ Logger = (*WriterLogger)(nil)
)
