package visa

import (
	"fmt"
	"strconv"
	"strings"
)

// InterfaceKind identifies the physical or simulated interface type of a
// resource address.
type InterfaceKind int

const (
	// InterfaceTCPIP is a raw-socket LXI instrument (SCPI over TCP).
	InterfaceTCPIP InterfaceKind = iota

	// InterfaceSerial is an RS-232/USB-serial instrument.
	InterfaceSerial

	// InterfaceGPIB is an IEEE-488 instrument behind a bus controller.
	InterfaceGPIB

	// InterfaceSim is the built-in simulated instrument transport.
	InterfaceSim
)

// String returns the interface kind name.
func (k InterfaceKind) String() string {
	switch k {
	case InterfaceTCPIP:
		return "TCPIP"
	case InterfaceSerial:
		return "ASRL"
	case InterfaceGPIB:
		return "GPIB"
	case InterfaceSim:
		return "SIM"
	default:
		return "UNKNOWN"
	}
}

// DefaultSCPIPort is the conventional raw-socket SCPI port for LXI
// instruments.
const DefaultSCPIPort = 5025

// Address is a parsed VISA resource address.
//
// Supported forms:
//
//	TCPIP[board]::<host>[::port]::SOCKET
//	ASRL<path>::INSTR
//	GPIB[board]::<primary address>::INSTR
//	SIM::<name>
type Address struct {
	// Kind is the interface type.
	Kind InterfaceKind

	// Board is the interface board index (TCPIP/GPIB).
	Board int

	// Host is the instrument hostname or IP (TCPIP).
	Host string

	// Port is the TCP port (TCPIP); DefaultSCPIPort if omitted.
	Port int

	// Path is the serial device path (ASRL).
	Path string

	// Primary is the GPIB primary address (GPIB).
	Primary int

	// Name is the simulated instrument name (SIM).
	Name string

	// Raw is the original address string.
	Raw string
}

// String returns the canonical resource string.
func (a Address) String() string {
	switch a.Kind {
	case InterfaceTCPIP:
		return fmt.Sprintf("TCPIP%d::%s::%d::SOCKET", a.Board, a.Host, a.Port)
	case InterfaceSerial:
		return fmt.Sprintf("ASRL%s::INSTR", a.Path)
	case InterfaceGPIB:
		return fmt.Sprintf("GPIB%d::%d::INSTR", a.Board, a.Primary)
	case InterfaceSim:
		return fmt.Sprintf("SIM::%s", a.Name)
	default:
		return a.Raw
	}
}

// ParseAddress parses a VISA resource address string.
func ParseAddress(s string) (Address, error) {
	addr := Address{Raw: s}

	parts := strings.Split(s, "::")
	if len(parts) < 2 {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	head := parts[0]
	switch {
	case strings.HasPrefix(head, "TCPIP"):
		addr.Kind = InterfaceTCPIP
		board, err := parseBoard(head, "TCPIP")
		if err != nil {
			return addr, err
		}
		addr.Board = board
		addr.Host = parts[1]
		addr.Port = DefaultSCPIPort
		// TCPIP0::host::5025::SOCKET or TCPIP0::host::SOCKET
		if len(parts) >= 4 {
			port, err := strconv.Atoi(parts[2])
			if err != nil {
				return addr, fmt.Errorf("%w: bad port in %q", ErrInvalidAddress, s)
			}
			addr.Port = port
		}
		if strings.ToUpper(parts[len(parts)-1]) != "SOCKET" {
			return addr, fmt.Errorf("%w: TCPIP address must end in ::SOCKET: %q", ErrInvalidAddress, s)
		}

	case strings.HasPrefix(head, "ASRL"):
		addr.Kind = InterfaceSerial
		addr.Path = strings.TrimPrefix(head, "ASRL")
		if addr.Path == "" {
			return addr, fmt.Errorf("%w: missing serial device in %q", ErrInvalidAddress, s)
		}
		if strings.ToUpper(parts[len(parts)-1]) != "INSTR" {
			return addr, fmt.Errorf("%w: serial address must end in ::INSTR: %q", ErrInvalidAddress, s)
		}

	case strings.HasPrefix(head, "GPIB"):
		addr.Kind = InterfaceGPIB
		board, err := parseBoard(head, "GPIB")
		if err != nil {
			return addr, err
		}
		addr.Board = board
		pad, err := strconv.Atoi(parts[1])
		if err != nil || pad < 0 || pad > 30 {
			return addr, fmt.Errorf("%w: bad GPIB primary address in %q", ErrInvalidAddress, s)
		}
		addr.Primary = pad

	case head == "SIM":
		addr.Kind = InterfaceSim
		addr.Name = parts[1]
		if addr.Name == "" {
			return addr, fmt.Errorf("%w: missing simulated instrument name in %q", ErrInvalidAddress, s)
		}

	default:
		return addr, fmt.Errorf("%w: %q", ErrUnsupportedInterface, head)
	}

	return addr, nil
}

// parseBoard extracts the numeric board suffix of an interface prefix
// ("TCPIP0" -> 0). A missing suffix means board 0.
func parseBoard(head, prefix string) (int, error) {
	suffix := strings.TrimPrefix(head, prefix)
	if suffix == "" {
		return 0, nil
	}
	board, err := strconv.Atoi(suffix)
	if err != nil || board < 0 {
		return 0, fmt.Errorf("%w: bad board index %q", ErrInvalidAddress, head)
	}
	return board, nil
}
