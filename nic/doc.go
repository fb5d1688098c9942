// Package nic abstracts the network device the stream handler transmits
// and receives AVTP PDUs on: an opaque raw send/receive device plus the
// per-queue credit-shaper register programming the transmit sequencer
// drives. Register I/O itself is deliberately not modeled — this module
// treats the NIC driver as an opaque device, per spec.md §1.
//
// Grounded on spec.md §4.7 and original_source's IasAvbTransmitSequencer.cpp
// (updateShaper) for the shaper formula.
package nic
