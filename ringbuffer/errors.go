package ringbuffer

import "errors"

// Error kinds surfaced to SHM clients as normal backpressure signals, spec
// §7 RingBufferFull/Empty/Timeout, plus the structural errors a caller can
// hit misusing the table/transaction API.
var (
	ErrReaderTableFull = errors.New("ringbuffer: reader table full")
	ErrInvalidReader   = errors.New("ringbuffer: invalid or removed reader")
	ErrInvalidParam    = errors.New("ringbuffer: invalid access kind")
	ErrNotAllowed      = errors.New("ringbuffer: concurrent write transaction")
	ErrWouldBlock      = errors.New("ringbuffer: no bytes available")
	ErrTimeout         = errors.New("ringbuffer: wait timed out")
)
