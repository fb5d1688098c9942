package avbtypes

import "errors"

// Sentinel errors shared across AVB packages. Each models one of the error
// kinds from the error handling design: InvalidParam, NotInitialized,
// AlreadyInUse, AlreadyInitialized, UnsupportedFormat and NotEnoughMemory are
// all surfaced to the caller with no state change; callers should compare
// with errors.Is rather than string matching.
var (
	// ErrInvalidParam is returned for a malformed argument at an API boundary.
	ErrInvalidParam = errors.New("avb: invalid parameter")

	// ErrNotInitialized is returned when an operation requires init() to have
	// run first.
	ErrNotInitialized = errors.New("avb: not initialized")

	// ErrAlreadyInUse is returned when a resource (stream id, pool, reader
	// slot) is already claimed.
	ErrAlreadyInUse = errors.New("avb: already in use")

	// ErrAlreadyInitialized is returned on a second init() call.
	ErrAlreadyInitialized = errors.New("avb: already initialized")

	// ErrUnsupportedFormat is returned when a wire format falls outside the
	// negotiated set.
	ErrUnsupportedFormat = errors.New("avb: unsupported format")

	// ErrNotEnoughMemory is returned when an allocation (pool pages, ring
	// buffer segment) fails.
	ErrNotEnoughMemory = errors.New("avb: not enough memory")

	// ErrInitializationFailed covers socket/driver/PTP/ring-buffer init
	// failure; callers should assume any partial state has been cleaned up.
	ErrInitializationFailed = errors.New("avb: initialization failed")

	// ErrThreadStartFailed / ErrThreadStopFailed cover worker lifecycle
	// failures.
	ErrThreadStartFailed = errors.New("avb: worker start failed")
	ErrThreadStopFailed  = errors.New("avb: worker stop failed")

	// ErrValidationFailed is returned internally when a wire PDU fails
	// validation; the caller-visible effect is a stream state transition to
	// Invalid, not an error return.
	ErrValidationFailed = errors.New("avb: pdu validation failed")

	// ErrNotFound is returned when a StreamId has no registered stream.
	ErrNotFound = errors.New("avb: stream not found")
)
