// Package ringbuffer implements the process-shared, multi-reader
// single-writer video ring buffer (spec §4.8): a header block of offsets,
// level, condvars and a 32-entry reader table, followed by a contiguous
// numBuffers*bufferSize data area.
//
// The header is a plain Go struct mapped directly onto a shared memory
// segment via unsafe.Pointer (see segment.go) — every process attaching to
// the segment must run the exact same struct layout, which in practice
// means the same build of this binary on both sides, the direct analogue
// of the design notes' "std::mutex on shared-memory objects ... must have
// the same layout in all processes that map the segment" caveat for
// boost::interprocess::offset_ptr.
package ringbuffer
