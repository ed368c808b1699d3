// Package trace records SCPI traffic as structured events.
//
// Every command, response and fault that crosses a resource façade can
// be captured as an Event and forwarded to a Logger: a CBOR file log
// for later analysis, an slog bridge for console output during
// development, or both through a MultiLogger. Events carry the resource
// address and a per-session UUID so traffic from a full bench can be
// interleaved in one log and pulled apart afterwards with a Reader.
package trace
