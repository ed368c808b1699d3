package visa

import (
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Address
	}{
		{
			name: "tcpip with port",
			in:   "TCPIP0::192.168.1.20::5025::SOCKET",
			want: Address{Kind: InterfaceTCPIP, Board: 0, Host: "192.168.1.20", Port: 5025},
		},
		{
			name: "tcpip default port",
			in:   "TCPIP0::scope.local::SOCKET",
			want: Address{Kind: InterfaceTCPIP, Board: 0, Host: "scope.local", Port: DefaultSCPIPort},
		},
		{
			name: "tcpip no board index",
			in:   "TCPIP::10.0.0.5::5555::SOCKET",
			want: Address{Kind: InterfaceTCPIP, Board: 0, Host: "10.0.0.5", Port: 5555},
		},
		{
			name: "tcpip board 2",
			in:   "TCPIP2::host::SOCKET",
			want: Address{Kind: InterfaceTCPIP, Board: 2, Host: "host", Port: DefaultSCPIPort},
		},
		{
			name: "serial",
			in:   "ASRL/dev/ttyUSB0::INSTR",
			want: Address{Kind: InterfaceSerial, Path: "/dev/ttyUSB0"},
		},
		{
			name: "gpib",
			in:   "GPIB0::5::INSTR",
			want: Address{Kind: InterfaceGPIB, Board: 0, Primary: 5},
		},
		{
			name: "gpib board 1",
			in:   "GPIB1::22::INSTR",
			want: Address{Kind: InterfaceGPIB, Board: 1, Primary: 22},
		},
		{
			name: "sim",
			in:   "SIM::psu",
			want: Address{Kind: InterfaceSim, Name: "psu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			if err != nil {
				t.Fatalf("ParseAddress(%q) failed: %v", tt.in, err)
			}
			tt.want.Raw = tt.in
			if got != tt.want {
				t.Errorf("ParseAddress(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAddressErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty", in: "", want: ErrInvalidAddress},
		{name: "no separator", in: "TCPIP0", want: ErrInvalidAddress},
		{name: "tcpip bad port", in: "TCPIP0::host::notaport::SOCKET", want: ErrInvalidAddress},
		{name: "tcpip missing socket", in: "TCPIP0::host::5025::INSTR", want: ErrInvalidAddress},
		{name: "serial missing path", in: "ASRL::INSTR", want: ErrInvalidAddress},
		{name: "gpib bad pad", in: "GPIB0::banana::INSTR", want: ErrInvalidAddress},
		{name: "gpib pad out of range", in: "GPIB0::31::INSTR", want: ErrInvalidAddress},
		{name: "sim missing name", in: "SIM::", want: ErrInvalidAddress},
		{name: "unknown interface", in: "USB0::0x1234::INSTR", want: ErrUnsupportedInterface},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseAddress(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestAddressStringRoundTrip(t *testing.T) {
	addrs := []string{
		"TCPIP0::192.168.1.20::5025::SOCKET",
		"ASRL/dev/ttyUSB0::INSTR",
		"GPIB0::5::INSTR",
		"SIM::psu",
	}

	for _, in := range addrs {
		addr, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q) failed: %v", in, err)
		}
		if got := addr.String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
	}
}
