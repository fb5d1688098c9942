package audio

// LocalBuffer is the producer/consumer contract between an audio stream
// and whatever local application code feeds or drains it. It is the
// "connected local buffer" spec §4.3 refers to; this module defines the
// contract only, not an implementation — local buffering is an external
// collaborator.
type LocalBuffer interface {
	// PullSamples returns up to n interleaved samples per channel for
	// transmit; count is how many of the requested n were actually
	// available (0 if the buffer has nothing at all); the caller pads the
	// rest with silence.
	PullSamples(n, channels int) (samples []int32, count int)

	// PushSamples delivers n interleaved received samples per channel to
	// the local consumer.
	PushSamples(samples []int32, channels int)
}
