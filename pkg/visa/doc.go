// Package visa implements the transport layer for VISA-style instrument
// resources: address parsing, the Session contract shared by all
// interface types, and concrete sessions for TCPIP socket (LXI), serial
// and Prologix GPIB instruments, plus an in-memory simulated instrument
// for offline use.
//
// Sessions are opened through an explicitly constructed ResourceManager
// rather than a package-level singleton, so tests and applications
// control exactly which transports exist and when they are torn down.
package visa
