package control

import "errors"

// Sentinel errors for control package operations, following the teacher's
// av/errors.go convention of one var block per error kind. Engine methods
// wrap these (and the avbtypes/ringbuffer/shmconn sentinels they pass
// through) with fmt.Errorf("...: %w", err) for context.
var (
	// ErrStreamExists is returned when createXStream names a StreamId
	// already registered with this engine.
	ErrStreamExists = errors.New("control: stream already exists")

	// ErrStreamNotFound is returned by destroyAvbStream/connectXStreams/
	// activateStream/deactivateStream/getAvbStreamInfo for an unknown
	// StreamId.
	ErrStreamNotFound = errors.New("control: stream not found")

	// ErrWrongKind is returned when connectAudioStreams/connectVideoStreams
	// is called against a stream of the other media kind.
	ErrWrongKind = errors.New("control: stream kind mismatch")

	// ErrWrongDirection reports a stream direction mismatch. No Engine
	// method returns it: connectXStreams accepts streams of either
	// direction.
	ErrWrongDirection = errors.New("control: stream direction mismatch")

	// ErrNoClockDomain reports a missing clock domain. No Engine method
	// returns it: a createXStream call naming a clock domain kind the engine
	// does not have yet gets a newly constructed domain of that kind.
	ErrNoClockDomain = errors.New("control: clock domain not configured")

	// ErrEngineStopped is returned by the createXStream methods when called
	// after Stop; the other Engine methods do not check for Stop.
	ErrEngineStopped = errors.New("control: engine stopped")
)
