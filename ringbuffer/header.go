package ringbuffer

import "sync/atomic"

// maxReaders is the 32-slot reader table size, spec §4.8.
const maxReaders = 32

// readerSlot is one entry of the per-reader table: {pid, offset,
// allowedToRead, lastAccess} per spec's VideoRingBuffer layout. offset is
// the reader's cumulative consumed-buffer count since the last lap reset
// (it can exceed numBuffers until that reset) — see the lapCount comment
// on header below for why this
// isn't a plain mod-numBuffers ring position.
type readerSlot struct {
	lastAccessNs  int64
	offset        uint64
	pid           int32
	inUse         uint32
	allowedToRead uint32
}

// header is the shared-memory control block mapped directly onto the
// segment (see segment.go). Every process attaching to a given segment
// must run an identical build of this struct — see doc.go.
//
// readOffset/lapCount/readerSlot.offset are cumulative counts since the
// last lap reset, not mod-numBuffers ring positions: a reader and the
// writer comparing two mod-N positions can't tell "nothing written yet"
// apart from "a full lap written and nothing read", so availableRead/Write
// are computed from these monotonic counters instead (DESIGN.md records
// this as a resolution of spec §4.8's `w ≥ r ? w−r : n−r+w` formula, which
// is exact only while the ring isn't completely full). writeOffset stays a
// true mod-numBuffers physical position since Buffer() needs it for
// indexing into the data area.
type header struct {
	writerLastAccessNs int64

	bufferSize  uint32
	numBuffers  uint32
	writeOffset uint32 // physical position in the data area, 0..numBuffers-1
	bufferLevel uint32 // writer's current lead over the slowest reader, 0..numBuffers

	readOffset uint64 // min live reader.offset, cumulative since last lap reset
	lapCount   uint64 // writer's cumulative produced-buffer count since last lap reset

	writeInProgress uint32 // CAS lock: at most one writer transaction
	readInProgress  uint32 // CAS lock: taken by resetFromWriter to bar reader starts

	tableLock uint32 // per-reader-table lock guarding addReader/removeReader/purge

	readGen  uint32 // bumped + futex-woken whenever availableRead may have grown
	writeGen uint32 // bumped + futex-woken whenever availableWrite may have grown

	readWaitLevel  uint32
	writeWaitLevel uint32

	readers [maxReaders]readerSlot
}

func (h *header) loadBufferSize() uint32  { return atomic.LoadUint32(&h.bufferSize) }
func (h *header) loadNumBuffers() uint32  { return atomic.LoadUint32(&h.numBuffers) }
func (h *header) loadWriteOffset() uint32 { return atomic.LoadUint32(&h.writeOffset) }
func (h *header) loadReadOffset() uint64  { return atomic.LoadUint64(&h.readOffset) }
func (h *header) loadLapCount() uint64    { return atomic.LoadUint64(&h.lapCount) }
func (h *header) loadBufferLevel() uint32 { return atomic.LoadUint32(&h.bufferLevel) }

func (h *header) bumpReadGen() {
	atomic.AddUint32(&h.readGen, 1)
	futexWakeAll(&h.readGen)
}

func (h *header) bumpWriteGen() {
	atomic.AddUint32(&h.writeGen, 1)
	futexWakeAll(&h.writeGen)
}
