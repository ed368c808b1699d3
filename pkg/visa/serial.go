package visa

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// SerialMode holds line settings for ASRL resources.
type SerialMode struct {
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultSerialMode returns the conventional 9600 8N1 instrument
// settings.
func DefaultSerialMode() SerialMode {
	return SerialMode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// serialOpener opens ASRL (serial port) sessions.
type serialOpener struct {
	// Mode overrides the default line settings when non-zero.
	Mode SerialMode
}

// Open opens the serial device named by the address.
func (o *serialOpener) Open(_ context.Context, addr Address, cfg Config) (Session, error) {
	mode := o.Mode
	if mode.BaudRate == 0 {
		mode = DefaultSerialMode()
	}

	port, err := serial.Open(addr.Path, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   mode.Parity,
		StopBits: mode.StopBits,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", addr.Path, err)
	}

	s := &serialSession{port: port}
	s.SetTimeout(cfg.IOTimeout)
	return s, nil
}

// Resources lists serial ports present on the host as ASRL addresses.
func (o *serialOpener) Resources() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		out = append(out, Address{Kind: InterfaceSerial, Path: p}.String())
	}
	return out
}

// serialSession is a newline-terminated SCPI conversation over a serial
// port.
type serialSession struct {
	port    serial.Port
	timeout time.Duration
	closed  bool
}

// Write sends a command, appending the line terminator if missing.
func (s *serialSession) Write(cmd string) error {
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	return s.WriteRaw([]byte(cmd))
}

// WriteRaw sends bytes exactly as given.
func (s *serialSession) WriteRaw(p []byte) error {
	if s.closed {
		return protocolErr("write", ErrSessionClosed)
	}
	if _, err := s.port.Write(p); err != nil {
		return transientErr("write", err)
	}
	return nil
}

// Read reads one newline-terminated response as text.
func (s *serialSession) Read() (string, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadRaw reads bytes until the line terminator or the read timeout. A
// timeout with no data at all is a transient fault; a timeout after a
// partial read returns what arrived.
func (s *serialSession) ReadRaw() ([]byte, error) {
	if s.closed {
		return nil, protocolErr("read", ErrSessionClosed)
	}

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return nil, transientErr("read", err)
		}
		if n == 0 {
			// go.bug.st/serial signals a read timeout as n==0, nil.
			if len(out) == 0 {
				return nil, transientErr("read", fmt.Errorf("timeout after %v", s.timeout))
			}
			return out, nil
		}
		out = append(out, buf[0])
		if buf[0] == '\n' {
			return out, nil
		}
	}
}

// ReadBytes reads exactly n bytes.
func (s *serialSession) ReadBytes(n int) ([]byte, error) {
	if s.closed {
		return nil, protocolErr("read", ErrSessionClosed)
	}
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := s.port.Read(buf[got:])
		if err != nil {
			return nil, transientErr("read", err)
		}
		if m == 0 {
			return nil, transientErr("read", io.ErrUnexpectedEOF)
		}
		got += m
	}
	return buf, nil
}

// Clear flushes the port's input and output buffers.
func (s *serialSession) Clear() error {
	if s.closed {
		return protocolErr("clear", ErrSessionClosed)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return protocolErr("clear", err)
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return protocolErr("clear", err)
	}
	return nil
}

// Timeout returns the I/O timeout.
func (s *serialSession) Timeout() time.Duration { return s.timeout }

// SetTimeout updates the read timeout on the live port.
func (s *serialSession) SetTimeout(d time.Duration) {
	s.timeout = d.Round(time.Millisecond)
	_ = s.port.SetReadTimeout(s.timeout)
}

// Close releases the port. Safe to call more than once.
func (s *serialSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// Compile-time interface satisfaction check.
var _ Session = (*serialSession)(nil)
