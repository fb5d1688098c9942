package audio

// ValidationMode controls how aggressively a receive stream checks format
// fields on each PDU, per spec §4.3.
type ValidationMode uint8

const (
	// ValidateAlways checks format code and frequency code on every PDU.
	ValidateAlways ValidationMode = iota
	// ValidateOnce checks only the first PDU received.
	ValidateOnce
	// ValidateNever skips format/frequency checks entirely.
	ValidateNever
)

// maxConsecutiveBadSequence is the length of the consecutive bad-sequence
// PDU run at which the stream moves to Invalid: the third bad PDU in a row
// invalidates it, per spec §4.2/§4.3.
const maxConsecutiveBadSequence = 3
