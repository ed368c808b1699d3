// Package resource provides the façade instrument drivers compose
// against: a Resource couples one transport session with an
// identification string, millisecond-resolution timeouts and a bounded
// retry policy for transient bus faults.
//
// A Resource is either fully open (session established, identification
// string populated) or Open fails; no half-open handle is ever returned.
// Resources are single-caller objects: serialize access externally,
// typically with one coordinating goroutine per instrument.
package resource
