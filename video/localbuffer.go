package video

// Descriptor is one local video packet: an RTP (H.264) or raw MPEG-TS
// payload plus the bookkeeping spec §4.4 requires on transmit.
type Descriptor struct {
	Payload      []byte
	RTPSequence  uint16
	RTPTimestamp uint32
	Marker       bool // RTP marker bit, maps to AVTP mpt
}

// LocalBuffer is the producer/consumer contract between a video stream and
// the local application feeding/draining it (an external collaborator;
// this package only defines the contract, same split as audio.LocalBuffer).
type LocalBuffer interface {
	// PopDescriptor returns the oldest queued descriptor, or ok=false if
	// none is queued (the transmit path then emits a dummy packet).
	PopDescriptor() (d Descriptor, ok bool)

	// PushDescriptor delivers one received descriptor to the local
	// consumer.
	PushDescriptor(d Descriptor)
}
