// Package virtual synthesizes stand-in instruments from real driver
// types.
//
// A Device is built by introspecting a registered driver's method set
// into a capability table: one entry per operation with its parameter
// signature, declared return kind and a type-appropriate default value.
// Calls are then answered dynamically with self-consistent state (a
// value written through set_voltage is observable through get_voltage
// and measure_voltage), and every invocation is appended to an ordered
// call history for test assertions.
//
// The engine trades strict typing for coverage: any driver, however
// large its command surface, becomes usable in offline tests without
// bespoke mock code. Unknown operation names are answered permissively
// by default (recorded, nil result) so exploratory scripts against
// partially-modeled devices do not crash; enable strict mode when typos
// must fail loudly.
package virtual
