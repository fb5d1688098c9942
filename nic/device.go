package nic

import (
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/packetpool"
)

// EtherTypeIEEE1722 is the AVTP EtherType, spec §6.
const EtherTypeIEEE1722 = 0x22F0

// TxDevice is the opaque transmit device the sequencer submits
// hardware-scheduled packets to. It models the reference target's launch-time
// NIC ring (igb_avb's attime submission), never the register layout itself —
// per §1 the NIC driver is treated as an opaque device.
type TxDevice interface {
	// Submit enqueues pkt for transmission at pkt.Attime. Submission errors
	// are *SubmitError values the caller classifies by their Kind.
	Submit(pkt *packetpool.Packet) error

	// Reclaim returns packets whose transmission has completed since the
	// last call, so the sequencer can return them to their pool.
	Reclaim() []*packetpool.Packet

	// Close releases the device.
	Close() error
}

// RxDevice is the opaque receive device the receive engine polls.
type RxDevice interface {
	// ReadFrame blocks for up to timeout waiting for one frame, copying it
	// into buf. It returns 0, nil on timeout (spec §4.6 step 2/3).
	ReadFrame(buf []byte, timeout time.Duration) (n int, err error)

	// JoinMulticast/LeaveMulticast manage PACKET_ADD_MEMBERSHIP-style
	// multicast group membership for a stream's DMAC, spec §4.6.
	JoinMulticast(mac avbtypes.MacAddress) error
	LeaveMulticast(mac avbtypes.MacAddress) error

	// LinkUp reports carrier state; the engine sleeps and retries while
	// this is false, spec §4.6 step 1.
	LinkUp() bool

	// Close releases the device.
	Close() error
}

// SubmitErrorKind classifies a TxDevice.Submit error per spec §4.7's
// "Submission errors" rule and §7's TransientTxError/FatalTxError kinds.
type SubmitErrorKind uint8

const (
	// SubmitErrorTransient covers any error besides ENOSPC/EINVAL/ENXIO:
	// retry the same packet next cycle.
	SubmitErrorTransient SubmitErrorKind = iota
	// SubmitErrorFatal is EINVAL/ENXIO: drop the packet, mark the entry.
	SubmitErrorFatal
	// SubmitErrorRingFull is ENOSPC: the TX ring is undersized for current
	// traffic, trigger a sequencer restart.
	SubmitErrorRingFull
)

// SubmitError wraps a TxDevice.Submit failure with its classification.
type SubmitError struct {
	Kind SubmitErrorKind
	Err  error
}

func (e *SubmitError) Error() string { return e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }
