// Package avbtypes defines the wire-level data model shared by every AVTP
// stream type: stream identifiers, MAC addresses, traffic specifications and
// the 24-byte AVTP common header that precedes every subtype's payload.
//
// Nothing in this package touches sockets, threads or shared memory — it is
// the pure-value layer the rest of the module builds on, analogous to the
// teacher's address/type definitions that sit below its transport and av
// packages.
package avbtypes
