package avbtypes

import "fmt"

// SrClass is an IEEE 802.1Q Stream Reservation traffic class.
type SrClass uint8

const (
	// SrClassA is the low-latency, high-priority class (125us class
	// interval).
	SrClassA SrClass = iota
	// SrClassB is the higher-latency class (250us class interval).
	SrClassB
)

func (c SrClass) String() string {
	switch c {
	case SrClassA:
		return "class-a"
	case SrClassB:
		return "class-b"
	default:
		return "class-unknown"
	}
}

// ClassInterval returns the class's nominal packet rate in packets per
// second (one packet per class interval: 125us for A, 250us for B), used by
// the control package's TSpec builders.
func (c SrClass) ClassInterval() (packetsPerSecond uint32) {
	switch c {
	case SrClassA:
		return 8000
	case SrClassB:
		return 4000
	default:
		return 0
	}
}

// Direction distinguishes a talker (transmit) stream from a listener
// (receive) stream.
type Direction uint8

const (
	DirectionTransmit Direction = iota
	DirectionReceive
)

func (d Direction) String() string {
	if d == DirectionReceive {
		return "receive"
	}
	return "transmit"
}

// TSpec is the traffic specification negotiated (externally, by the SRP
// collaborator out of scope for this module) for a stream: it bounds the
// packet rate and size so the TX sequencer can reserve bandwidth and size
// its packet pool.
type TSpec struct {
	Class             SrClass
	MaxFrameSize      uint16
	MaxIntervalFrames uint16
	PacketsPerSecond  uint32
}

// RequiredBandwidth returns the bandwidth this TSpec requires in kbit/s:
// packetsPerSecond * maxFrameSize * 8 / 1000, as the original registry
// convention does, rounded down.
func (t TSpec) RequiredBandwidth() uint64 {
	return uint64(t.PacketsPerSecond) * uint64(t.MaxFrameSize) * 8 / 1000
}

// Validate checks the TSpec invariants: non-zero rate and frame size, and
// at least one interval frame.
func (t TSpec) Validate() error {
	if t.PacketsPerSecond == 0 {
		return fmt.Errorf("%w: tspec packetsPerSecond must be nonzero", ErrInvalidParam)
	}
	if t.MaxFrameSize == 0 {
		return fmt.Errorf("%w: tspec maxFrameSize must be nonzero", ErrInvalidParam)
	}
	if t.MaxIntervalFrames == 0 {
		return fmt.Errorf("%w: tspec maxIntervalFrames must be nonzero", ErrInvalidParam)
	}
	return nil
}
