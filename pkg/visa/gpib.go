package visa

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
)

// PrologixOpener opens GPIB sessions through a Prologix GPIB-USB
// controller attached to a serial port. Register it explicitly:
//
//	mgr.Register(visa.InterfaceGPIB, visa.NewPrologixOpener("/dev/ttyUSB0"))
//
// All GPIB addresses opened through it share the one controller. The
// adapter can target only one instrument at a time, so sessions
// multiplex it: a mutex serializes bus transactions, and each
// transaction re-addresses the adapter (++addr) to its session's
// primary address before any traffic is issued.
type PrologixOpener struct {
	// SerialPort is the controller's virtual COM port device.
	SerialPort string

	// KnownAddresses lists GPIB primary addresses of instruments known
	// to be on the bus, for discovery sweeps.
	KnownAddresses []int

	// dial opens the controller port. Tests replace it; nil means the
	// Prologix VCP driver.
	dial func(serialPort string) (io.ReadWriteCloser, error)

	mu      sync.Mutex
	port    io.ReadWriteCloser
	ctrl    *prologix.Controller
	current int // primary address the adapter is targeting
	refs    int // open session count
}

// NewPrologixOpener returns an opener for a Prologix controller on the
// given serial port.
func NewPrologixOpener(serialPort string) *PrologixOpener {
	return &PrologixOpener{SerialPort: serialPort}
}

// Open returns a session for the instrument at the address's primary
// address. The first Open connects to the controller; later Opens
// share it.
func (o *PrologixOpener) Open(_ context.Context, addr Address, cfg Config) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.port == nil {
		dial := o.dial
		if dial == nil {
			dial = func(serialPort string) (io.ReadWriteCloser, error) {
				return vcp.NewVCP(serialPort)
			}
		}
		port, err := dial(o.SerialPort)
		if err != nil {
			return nil, fmt.Errorf("open prologix port %s: %w", o.SerialPort, err)
		}

		ctrl, err := prologix.NewController(port, addr.Primary, false)
		if err != nil {
			port.Close()
			return nil, fmt.Errorf("prologix controller: %w", err)
		}

		o.port = port
		o.ctrl = ctrl
		o.current = addr.Primary
	}

	o.refs++
	return &gpibSession{
		opener:  o,
		primary: addr.Primary,
		timeout: cfg.IOTimeout,
	}, nil
}

// Resources lists the configured instrument addresses on board 0.
func (o *PrologixOpener) Resources() []string {
	out := make([]string, 0, len(o.KnownAddresses))
	for _, pad := range o.KnownAddresses {
		out = append(out, Address{Kind: InterfaceGPIB, Primary: pad}.String())
	}
	return out
}

// addressTo retargets the adapter at the given primary address. Caller
// holds o.mu.
func (o *PrologixOpener) addressTo(pad int) error {
	if o.current == pad {
		return nil
	}
	if _, err := o.port.Write([]byte("++addr " + strconv.Itoa(pad) + "\n")); err != nil {
		return err
	}
	o.current = pad
	return nil
}

// release drops one session's claim on the controller, closing the
// port when the last session goes away.
func (o *PrologixOpener) release() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.refs--
	if o.refs > 0 {
		return nil
	}
	port := o.port
	o.port = nil
	o.ctrl = nil
	if port == nil {
		return nil
	}
	return port.Close()
}

// gpibSession is one instrument conversation multiplexed over the
// opener's shared Prologix controller.
type gpibSession struct {
	opener  *PrologixOpener
	primary int
	timeout time.Duration
	closed  bool
}

// transact runs fn as one bus transaction: the controller is locked
// for the duration and re-addressed to this session's instrument
// first.
func (s *gpibSession) transact(op string, fn func(ctrl *prologix.Controller) error) error {
	if s.closed {
		return protocolErr(op, ErrSessionClosed)
	}

	o := s.opener
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.port == nil {
		return protocolErr(op, ErrSessionClosed)
	}
	if err := o.addressTo(s.primary); err != nil {
		return transientErr(op, err)
	}
	return fn(o.ctrl)
}

// Write sends a command to the session's instrument.
func (s *gpibSession) Write(cmd string) error {
	return s.transact("write", func(ctrl *prologix.Controller) error {
		if err := ctrl.Command("%s", strings.TrimRight(cmd, "\r\n")); err != nil {
			return transientErr("write", err)
		}
		return nil
	})
}

// WriteRaw sends bytes exactly as given.
func (s *gpibSession) WriteRaw(p []byte) error {
	return s.transact("write", func(ctrl *prologix.Controller) error {
		if _, err := ctrl.Write(p); err != nil {
			return transientErr("write", err)
		}
		return nil
	})
}

// Read reads one response from the session's instrument.
func (s *gpibSession) Read() (string, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadRaw reads one response without decoding.
func (s *gpibSession) ReadRaw() ([]byte, error) {
	var out []byte
	err := s.transact("read", func(ctrl *prologix.Controller) error {
		buf := make([]byte, 4096)
		n, err := ctrl.Read(buf)
		if err != nil && err != io.EOF {
			return transientErr("read", err)
		}
		if n == 0 {
			return transientErr("read", fmt.Errorf("no response within %v", s.timeout))
		}
		out = buf[:n]
		return nil
	})
	return out, err
}

// ReadBytes reads exactly n bytes.
func (s *gpibSession) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	err := s.transact("read", func(ctrl *prologix.Controller) error {
		got := 0
		for got < n {
			m, err := ctrl.Read(buf[got:])
			if err != nil && err != io.EOF {
				return transientErr("read", err)
			}
			if m == 0 {
				return transientErr("read", io.ErrUnexpectedEOF)
			}
			got += m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Clear sends the Selected Device Clear message to the instrument.
func (s *gpibSession) Clear() error {
	return s.transact("clear", func(ctrl *prologix.Controller) error {
		if err := ctrl.ClearDevice(); err != nil {
			return protocolErr("clear", err)
		}
		return nil
	})
}

// SetLocal returns front-panel control to the instrument.
func (s *gpibSession) SetLocal() error {
	return s.transact("local", func(ctrl *prologix.Controller) error {
		return ctrl.FrontPanel(true)
	})
}

// GroupExecuteTrigger triggers the instruments at the given primary
// addresses in one bus transaction. With no addresses the session's
// own instrument is triggered.
func (s *gpibSession) GroupExecuteTrigger(addrs ...int) error {
	return s.transact("trigger", func(*prologix.Controller) error {
		// The ++trg controller command takes up to 15 listen addresses.
		cmd := "++trg"
		for _, a := range addrs {
			cmd += " " + strconv.Itoa(a)
		}
		if _, err := s.opener.port.Write([]byte(cmd + "\n")); err != nil {
			return transientErr("trigger", err)
		}
		return nil
	})
}

// Timeout returns the I/O timeout.
func (s *gpibSession) Timeout() time.Duration { return s.timeout }

// SetTimeout updates the read timeout. The Prologix read timeout is
// capped at 3 seconds by the adapter firmware; longer values are
// tracked locally only.
func (s *gpibSession) SetTimeout(d time.Duration) {
	s.timeout = d.Round(time.Millisecond)
}

// Close drops this session's claim on the shared controller. The port
// is released when the last session closes. Safe to call more than
// once.
func (s *gpibSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.opener.release()
}

// Compile-time interface satisfaction checks.
var (
	_ Session        = (*gpibSession)(nil)
	_ RemoteLocal    = (*gpibSession)(nil)
	_ GroupTriggerer = (*gpibSession)(nil)
)
