package resource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benchkit-project/benchkit-go/pkg/trace"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// IEEE 488.2 common commands issued by the façade.
const (
	cmdIdentify    = "*IDN?"
	cmdReset       = "*RST"
	cmdClearStatus = "*CLS"
)

// Resource is a live connection to one instrument. Drivers compose
// against it: they format SCPI text and call Write/Query/Read; the
// Resource handles retries, timeouts, tracing and lifecycle.
type Resource struct {
	address   string
	session   visa.Session
	idn       string
	retry     retrier
	delay     time.Duration // query delay
	tracer    trace.Logger
	sessionID string

	closeOnce sync.Once
}

// Open establishes a session to the given address through the resource
// manager, issues the identification query and returns a fully open
// Resource. If the session cannot be established, or the identification
// query fails, Open releases whatever was opened and returns
// *visa.ConnectError: a Resource is never observable half-open.
func Open(ctx context.Context, mgr *visa.ResourceManager, address string, opts ...Option) (*Resource, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sess, err := mgr.Open(ctx, address, visa.Config{
		OpenTimeout: o.openTimeout,
		IOTimeout:   o.ioTimeout,
		QueryDelay:  o.queryDelay,
	})
	if err != nil {
		return nil, err
	}

	r := &Resource{
		address:   address,
		session:   sess,
		retry:     retrier{limit: o.retryLimit, delay: o.retryDelay},
		delay:     o.queryDelay,
		tracer:    o.tracer,
		sessionID: trace.NewSessionID(),
	}

	idn, err := r.Query(cmdIdentify)
	if err != nil {
		_ = sess.Close()
		return nil, &visa.ConnectError{Address: address, Err: fmt.Errorf("identification query: %w", err)}
	}
	r.idn = idn

	if o.clear {
		if err := r.Clear(); err != nil {
			_ = sess.Close()
			return nil, &visa.ConnectError{Address: address, Err: err}
		}
	}

	r.emit(trace.Event{
		Direction: trace.DirectionOut,
		Category:  trace.CategoryLifecycle,
		Response:  idn,
	})

	return r, nil
}

// Address returns the resource address.
func (r *Resource) Address() string { return r.address }

// IDN returns the identification string captured when the resource was
// opened.
func (r *Resource) IDN() string { return r.idn }

// Session exposes the underlying transport session, for bus-level
// coordination (group triggering). Most callers never need it.
func (r *Resource) Session() visa.Session { return r.session }

// Timeout returns the session I/O timeout in effect.
func (r *Resource) Timeout() time.Duration { return r.session.Timeout() }

// SetTimeout updates the live session's I/O timeout immediately.
// Resolution is one millisecond.
func (r *Resource) SetTimeout(d time.Duration) { r.session.SetTimeout(d) }

// Write sends a text command to the instrument, retrying transient
// faults per the retry policy.
func (r *Resource) Write(cmd string) error {
	start := time.Now()
	res := r.retry.do(func() error { return r.session.Write(cmd) })
	r.emitOp(trace.Event{
		Direction: trace.DirectionOut,
		Category:  trace.CategoryWrite,
		Command:   cmd,
	}, res, start)
	return r.commFault(res.err)
}

// WriteRaw sends bytes to the instrument, retrying transient faults per
// the retry policy.
func (r *Resource) WriteRaw(p []byte) error {
	start := time.Now()
	res := r.retry.do(func() error { return r.session.WriteRaw(p) })
	r.emitOp(trace.Event{
		Direction: trace.DirectionOut,
		Category:  trace.CategoryWrite,
		Size:      len(p),
	}, res, start)
	return r.commFault(res.err)
}

// Query writes a command, waits the configured query delay, reads the
// response and trims trailing whitespace and line terminators. The
// write and read are retried as a single unit: a failed write or a
// failed read each count as one attempt of the whole query.
func (r *Resource) Query(cmd string) (string, error) {
	start := time.Now()
	var resp string
	res := r.retry.do(func() error {
		if err := r.session.Write(cmd); err != nil {
			return err
		}
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
		raw, err := r.session.Read()
		if err != nil {
			return err
		}
		resp = strings.TrimRight(raw, " \t\r\n")
		return nil
	})
	r.emitOp(trace.Event{
		Direction: trace.DirectionIn,
		Category:  trace.CategoryQuery,
		Command:   cmd,
		Response:  resp,
	}, res, start)
	if res.err != nil {
		return "", r.commFault(res.err)
	}
	return resp, nil
}

// Read reads a response from the instrument, trimmed of trailing
// whitespace and line terminators.
func (r *Resource) Read() (string, error) {
	start := time.Now()
	var resp string
	res := r.retry.do(func() error {
		raw, err := r.session.Read()
		if err != nil {
			return err
		}
		resp = strings.TrimRight(raw, " \t\r\n")
		return nil
	})
	r.emitOp(trace.Event{
		Direction: trace.DirectionIn,
		Category:  trace.CategoryRead,
		Response:  resp,
	}, res, start)
	if res.err != nil {
		return "", r.commFault(res.err)
	}
	return resp, nil
}

// ReadRaw reads a response in its received byte form, terminators
// included, no decoding.
func (r *Resource) ReadRaw() ([]byte, error) {
	start := time.Now()
	var resp []byte
	res := r.retry.do(func() error {
		raw, err := r.session.ReadRaw()
		if err != nil {
			return err
		}
		resp = raw
		return nil
	})
	r.emitOp(trace.Event{
		Direction: trace.DirectionIn,
		Category:  trace.CategoryRead,
		Size:      len(resp),
	}, res, start)
	if res.err != nil {
		return nil, r.commFault(res.err)
	}
	return resp, nil
}

// ReadBytes reads exactly n bytes from the instrument.
func (r *Resource) ReadBytes(n int) ([]byte, error) {
	start := time.Now()
	var resp []byte
	res := r.retry.do(func() error {
		raw, err := r.session.ReadBytes(n)
		if err != nil {
			return err
		}
		resp = raw
		return nil
	})
	r.emitOp(trace.Event{
		Direction: trace.DirectionIn,
		Category:  trace.CategoryRead,
		Size:      len(resp),
	}, res, start)
	if res.err != nil {
		return nil, r.commFault(res.err)
	}
	return resp, nil
}

// Clear resets the device input and output buffers at the transport
// level. Buffer clear failures are not considered transient, so Clear
// is never retried; a failure is reported as a communication fault.
func (r *Resource) Clear() error {
	err := r.session.Clear()
	event := trace.Event{
		Direction: trace.DirectionOut,
		Category:  trace.CategoryLifecycle,
		Command:   "<clear>",
	}
	if err != nil {
		event.Category = trace.CategoryError
		event.Err = err.Error()
	}
	r.emit(event)
	if err != nil {
		return &CommunicationError{Address: r.address, IDN: r.idn, Err: err}
	}
	return nil
}

// Reset executes a device reset (*RST), cancelling any pending
// operation-complete command or query. Follows the normal retry policy.
func (r *Resource) Reset() error {
	return r.Write(cmdReset)
}

// ClearStatus clears the instrument status byte (*CLS), emptying the
// error queue and clearing all event registers. Follows the normal
// retry policy.
func (r *Resource) ClearStatus() error {
	return r.Write(cmdClearStatus)
}

// SetLocal returns the instrument to local (front panel) control.
// Transports without remote/local switching make this a silent no-op:
// the capability is bus-dependent, its absence is not an error.
func (r *Resource) SetLocal() {
	rl, ok := r.session.(visa.RemoteLocal)
	if !ok {
		return
	}
	_ = rl.SetLocal()
}

// Close releases the underlying session. The session is released
// exactly once no matter how many times Close is called or how many
// errors occurred during the resource's lifetime; release failures are
// suppressed so teardown never masks an earlier error.
func (r *Resource) Close() error {
	r.closeOnce.Do(func() {
		r.emit(trace.Event{
			Direction: trace.DirectionOut,
			Category:  trace.CategoryLifecycle,
			Command:   "<close>",
		})
		_ = r.session.Close()
	})
	return nil
}

// String returns a short description of the resource.
func (r *Resource) String() string {
	return fmt.Sprintf("Resource ID: %s\nAddress: %s", r.idn, r.address)
}

// commFault wraps an exhausted or non-transient transport error.
// Transient faults that survived the retry budget become
// *CommunicationError; everything else propagates unchanged.
func (r *Resource) commFault(err error) error {
	if err == nil {
		return nil
	}
	if visa.IsTransient(err) {
		return &CommunicationError{Address: r.address, IDN: r.idn, Err: err}
	}
	return err
}

// emitOp fills retry/timing bookkeeping into event and emits it.
func (r *Resource) emitOp(event trace.Event, res attemptResult, start time.Time) {
	event.Attempts = res.attempts
	event.Elapsed = time.Since(start)
	if res.err != nil {
		event.Category = trace.CategoryError
		event.Err = res.err.Error()
	}
	r.emit(event)
}

// emit stamps and forwards an event to the tracer.
func (r *Resource) emit(event trace.Event) {
	event.Timestamp = time.Now()
	event.SessionID = r.sessionID
	event.Address = r.address
	r.tracer.Log(event)
}
