package visa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Simulated-transport errors.
var (
	ErrSimNotFound = errors.New("simulated instrument not found")
	ErrSimNoData   = errors.New("no response pending")
)

// SimConfig describes a simulated instrument.
type SimConfig struct {
	// IDN is the response to "*IDN?".
	IDN string

	// Responses maps command text (terminator stripped, case
	// preserved) to canned responses.
	Responses map[string]string

	// Handler, if set, is consulted before Responses. Returning
	// ok=false falls through to the canned table.
	Handler func(cmd string) (resp string, ok bool)
}

// SimInstrument is the scripted behavior shared by all sessions opened
// to one SIM address. It mimics a synchronous request/response SCPI
// instrument and supports fault injection for retry testing.
type SimInstrument struct {
	mu sync.Mutex

	cfg SimConfig

	// pending holds responses produced by writes, consumed by reads.
	pending []string

	// writes records every command received, in order.
	writes []string

	// failures remaining to inject, and the fault to use.
	failCount int
	failErr   error
}

// NewSimInstrument creates a simulated instrument.
func NewSimInstrument(cfg SimConfig) *SimInstrument {
	if cfg.IDN == "" {
		cfg.IDN = "benchkit,simulated instrument,0,1.0"
	}
	return &SimInstrument{cfg: cfg}
}

// FailNext makes the next n reads and writes fail with a transient
// fault. Pass err nil for a generic injected fault.
func (si *SimInstrument) FailNext(n int, err error) {
	si.mu.Lock()
	defer si.mu.Unlock()
	if err == nil {
		err = errors.New("injected fault")
	}
	si.failCount = n
	si.failErr = err
}

// Writes returns every command received so far.
func (si *SimInstrument) Writes() []string {
	si.mu.Lock()
	defer si.mu.Unlock()
	out := make([]string, len(si.writes))
	copy(out, si.writes)
	return out
}

// takeFault consumes one injected fault if any remain.
func (si *SimInstrument) takeFault(op string) error {
	if si.failCount > 0 {
		si.failCount--
		return transientErr(op, si.failErr)
	}
	return nil
}

func (si *SimInstrument) handleWrite(cmd string) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	if err := si.takeFault("write"); err != nil {
		return err
	}

	cmd = strings.TrimRight(cmd, "\r\n")
	si.writes = append(si.writes, cmd)

	if resp, ok := si.respond(cmd); ok {
		si.pending = append(si.pending, resp)
	}
	return nil
}

// respond computes the response for a command, if it is a query.
func (si *SimInstrument) respond(cmd string) (string, bool) {
	if si.cfg.Handler != nil {
		if resp, ok := si.cfg.Handler(cmd); ok {
			return resp, true
		}
	}
	if resp, ok := si.cfg.Responses[cmd]; ok {
		return resp, true
	}
	if strings.EqualFold(cmd, "*IDN?") {
		return si.cfg.IDN, true
	}
	return "", false
}

func (si *SimInstrument) handleRead() (string, error) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if err := si.takeFault("read"); err != nil {
		return "", err
	}

	if len(si.pending) == 0 {
		// A read with nothing to say behaves like a bus timeout.
		return "", transientErr("read", ErrSimNoData)
	}
	resp := si.pending[0]
	si.pending = si.pending[1:]
	return resp + "\n", nil
}

func (si *SimInstrument) clearBuffers() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.pending = nil
}

// SimHub is an Opener holding named simulated instruments, addressed as
// "SIM::<name>". Construct one, add instruments, register it on a
// ResourceManager.
type SimHub struct {
	mu          sync.RWMutex
	instruments map[string]*SimInstrument
}

// NewSimHub returns an empty hub.
func NewSimHub() *SimHub {
	return &SimHub{instruments: make(map[string]*SimInstrument)}
}

// Add installs an instrument under the given name.
func (h *SimHub) Add(name string, si *SimInstrument) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instruments[name] = si
}

// Get returns the named instrument.
func (h *SimHub) Get(name string) (*SimInstrument, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	si, ok := h.instruments[name]
	return si, ok
}

// Open returns a session bound to the named instrument.
func (h *SimHub) Open(_ context.Context, addr Address, cfg Config) (Session, error) {
	h.mu.RLock()
	si, ok := h.instruments[addr.Name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSimNotFound, addr.Name)
	}
	return &SimSession{inst: si, timeout: cfg.IOTimeout}, nil
}

// Resources lists the hub's instruments as SIM addresses.
func (h *SimHub) Resources() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.instruments))
	for name := range h.instruments {
		out = append(out, Address{Kind: InterfaceSim, Name: name}.String())
	}
	return out
}

// SimSession is a session over one simulated instrument.
type SimSession struct {
	inst    *SimInstrument
	timeout time.Duration
	closed  bool
}

// NewSimSession returns a session bound directly to an instrument,
// bypassing the hub. Useful in tests that build sessions by hand.
func NewSimSession(si *SimInstrument) *SimSession {
	return &SimSession{inst: si, timeout: time.Second}
}

// Instrument returns the scripted instrument behind the session.
func (s *SimSession) Instrument() *SimInstrument { return s.inst }

// Write sends a command to the simulated instrument.
func (s *SimSession) Write(cmd string) error {
	if s.closed {
		return protocolErr("write", ErrSessionClosed)
	}
	return s.inst.handleWrite(cmd)
}

// WriteRaw sends bytes, interpreted as a text command.
func (s *SimSession) WriteRaw(p []byte) error {
	return s.Write(string(p))
}

// Read returns the next pending response.
func (s *SimSession) Read() (string, error) {
	if s.closed {
		return "", protocolErr("read", ErrSessionClosed)
	}
	return s.inst.handleRead()
}

// ReadRaw returns the next pending response as bytes.
func (s *SimSession) ReadRaw() ([]byte, error) {
	resp, err := s.Read()
	if err != nil {
		return nil, err
	}
	return []byte(resp), nil
}

// ReadBytes returns the first n bytes of the next pending response.
func (s *SimSession) ReadBytes(n int) ([]byte, error) {
	resp, err := s.ReadRaw()
	if err != nil {
		return nil, err
	}
	if len(resp) < n {
		return nil, transientErr("read", ErrSimNoData)
	}
	return resp[:n], nil
}

// Clear discards pending responses.
func (s *SimSession) Clear() error {
	if s.closed {
		return protocolErr("clear", ErrSessionClosed)
	}
	s.inst.clearBuffers()
	return nil
}

// SetLocal is accepted and ignored, like an instrument without a
// remote/local switch.
func (s *SimSession) SetLocal() error { return nil }

// Timeout returns the I/O timeout.
func (s *SimSession) Timeout() time.Duration { return s.timeout }

// SetTimeout updates the I/O timeout.
func (s *SimSession) SetTimeout(d time.Duration) {
	s.timeout = d.Round(time.Millisecond)
}

// Close marks the session closed. Safe to call more than once.
func (s *SimSession) Close() error {
	s.closed = true
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Session     = (*SimSession)(nil)
	_ RemoteLocal = (*SimSession)(nil)
	_ Opener      = (*SimHub)(nil)
)
