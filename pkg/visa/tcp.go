package visa

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// tcpOpener opens raw-socket SCPI sessions (LXI "TCPIP...::SOCKET"
// resources).
type tcpOpener struct{}

// Open dials the instrument with the configured open timeout.
func (tcpOpener) Open(ctx context.Context, addr Address, cfg Config) (Session, error) {
	dialer := &net.Dialer{Timeout: cfg.OpenTimeout}
	target := net.JoinHostPort(addr.Host, fmt.Sprintf("%d", addr.Port))

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	return &tcpSession{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: cfg.IOTimeout,
	}, nil
}

// Resources returns nil; TCP endpoints cannot be enumerated locally.
// LXI instruments are found via mDNS (see pkg/discovery).
func (tcpOpener) Resources() []string { return nil }

// tcpSession is a newline-terminated SCPI conversation over one TCP
// connection.
type tcpSession struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	closed  bool
}

func (s *tcpSession) deadline() time.Time {
	if s.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.timeout)
}

// Write sends a command, appending the line terminator if missing.
func (s *tcpSession) Write(cmd string) error {
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	return s.WriteRaw([]byte(cmd))
}

// WriteRaw sends bytes exactly as given.
func (s *tcpSession) WriteRaw(p []byte) error {
	if s.closed {
		return protocolErr("write", ErrSessionClosed)
	}
	if err := s.conn.SetWriteDeadline(s.deadline()); err != nil {
		return protocolErr("write", err)
	}
	if _, err := s.conn.Write(p); err != nil {
		return classifyNetErr("write", err)
	}
	return nil
}

// Read reads one newline-terminated response as text.
func (s *tcpSession) Read() (string, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadRaw reads one newline-terminated response without decoding.
func (s *tcpSession) ReadRaw() ([]byte, error) {
	if s.closed {
		return nil, protocolErr("read", ErrSessionClosed)
	}
	if err := s.conn.SetReadDeadline(s.deadline()); err != nil {
		return nil, protocolErr("read", err)
	}
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return nil, classifyNetErr("read", err)
	}
	return line, nil
}

// ReadBytes reads exactly n bytes.
func (s *tcpSession) ReadBytes(n int) ([]byte, error) {
	if s.closed {
		return nil, protocolErr("read", ErrSessionClosed)
	}
	if err := s.conn.SetReadDeadline(s.deadline()); err != nil {
		return nil, protocolErr("read", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		return nil, classifyNetErr("read", err)
	}
	return buf, nil
}

// Clear discards any pending input. Raw sockets have no out-of-band
// device-clear primitive, so draining the receive buffer is the closest
// equivalent.
func (s *tcpSession) Clear() error {
	if s.closed {
		return protocolErr("clear", ErrSessionClosed)
	}

	// Short deadline: we only want what has already arrived.
	if err := s.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond)); err != nil {
		return protocolErr("clear", err)
	}
	buf := make([]byte, 4096)
	for {
		_, err := s.reader.Read(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil // drained
			}
			return protocolErr("clear", err)
		}
	}
}

// Timeout returns the I/O timeout.
func (s *tcpSession) Timeout() time.Duration { return s.timeout }

// SetTimeout updates the I/O timeout for subsequent operations.
func (s *tcpSession) SetTimeout(d time.Duration) {
	s.timeout = d.Round(time.Millisecond)
}

// Close releases the connection. Safe to call more than once.
func (s *tcpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Compile-time interface satisfaction check.
var _ Session = (*tcpSession)(nil)
