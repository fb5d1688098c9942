package ringbuffer

import (
	"sync/atomic"
	"time"
)

// Access distinguishes the two transaction kinds beginAccess/endAccess take,
// spec §4.8.
type Access uint8

const (
	AccessRead Access = iota
	AccessWrite
)

// DefaultPurgeThreshold is purgeUnresponsiveReaders' default eviction age,
// spec §4.8 "Liveness" (default 2s).
const DefaultPurgeThreshold = 2 * time.Second

// Ring is a multi-reader single-writer shared-memory video ring buffer,
// spec §4.8.
type Ring struct {
	seg *segment
	hdr *header
}

// NewInMemory builds a Ring over a private (non-shared) backing array —
// used by tests and single-process embeddings that don't need cross-process
// sharing.
func NewInMemory(bufferSize, numBuffers uint32) (*Ring, error) {
	seg, err := newInMemorySegment(bufferSize, numBuffers)
	if err != nil {
		return nil, err
	}
	return &Ring{seg: seg, hdr: seg.hdr}, nil
}

// NewShared creates a memfd-backed segment named per spec §6's
// `avb_<connectionName>` convention (the caller supplies the full name) and
// returns the Ring plus the underlying fd for handing to client processes.
func NewShared(name string, bufferSize, numBuffers uint32) (*Ring, int, error) {
	seg, fd, err := newSharedSegment(name, bufferSize, numBuffers)
	if err != nil {
		return nil, -1, err
	}
	return &Ring{seg: seg, hdr: seg.hdr}, fd, nil
}

// AttachShared mmaps a segment created by NewShared elsewhere, identified by
// an already-open fd (obtained from the creator), without re-initializing it.
func AttachShared(fd int, bufferSize, numBuffers uint32) (*Ring, error) {
	seg, err := attachSharedSegment(fd, bufferSize, numBuffers)
	if err != nil {
		return nil, err
	}
	return &Ring{seg: seg, hdr: seg.hdr}, nil
}

// NewNamed creates a filesystem-backed segment at path, for the
// `shmconn` creator side.
func NewNamed(path string, bufferSize, numBuffers uint32) (*Ring, error) {
	seg, err := newNamedSegment(path, bufferSize, numBuffers)
	if err != nil {
		return nil, err
	}
	return &Ring{seg: seg, hdr: seg.hdr}, nil
}

// AttachNamed opens and mmaps a segment created by NewNamed, for the
// `shmconn` client side.
func AttachNamed(path string, bufferSize, numBuffers uint32) (*Ring, error) {
	seg, err := attachNamedSegment(path, bufferSize, numBuffers)
	if err != nil {
		return nil, err
	}
	return &Ring{seg: seg, hdr: seg.hdr}, nil
}

// Close releases the Ring's backing segment (munmap, and for the creator,
// closes the memfd).
func (r *Ring) Close() error { return r.seg.Close() }

// BufferSize and NumBuffers report the ring's fixed geometry.
func (r *Ring) BufferSize() uint32 { return r.hdr.loadBufferSize() }
func (r *Ring) NumBuffers() uint32 { return r.hdr.loadNumBuffers() }

// Buffer returns the data-area slice for buffer index i, for the caller to
// copy payload bytes into/out of between beginAccess and endAccess.
func (r *Ring) Buffer(i uint32) []byte {
	bs := r.hdr.loadBufferSize()
	return r.seg.data[uint64(i)*uint64(bs) : uint64(i+1)*uint64(bs)]
}

// AddReader finds a free slot in the 32-entry reader table, spec §4.8
// addReader(pid).
func (r *Ring) AddReader(pid int32) (int, error) {
	spinLock(&r.hdr.tableLock)
	defer spinUnlock(&r.hdr.tableLock)

	for i := range r.hdr.readers {
		slot := &r.hdr.readers[i]
		if atomic.LoadUint32(&slot.inUse) != 0 {
			continue
		}
		slot.pid = pid
		slot.offset = atomic.LoadUint64(&r.hdr.readOffset)
		slot.allowedToRead = 1
		atomic.StoreInt64(&slot.lastAccessNs, nowNanos())
		atomic.StoreUint32(&slot.inUse, 1)
		return i, nil
	}
	return -1, ErrReaderTableFull
}

// RemoveReader clears a reader's table entry, spec §4.8 removeReader(pid).
func (r *Ring) RemoveReader(idx int) {
	spinLock(&r.hdr.tableLock)
	if idx >= 0 && idx < maxReaders {
		atomic.StoreUint32(&r.hdr.readers[idx].inUse, 0)
	}
	spinUnlock(&r.hdr.tableLock)
	r.aggregateReaderOffset()
	r.hdr.bumpWriteGen() // a slow reader's departure may free write space
}

func (r *Ring) liveReaderSlots() []*readerSlot {
	out := make([]*readerSlot, 0, maxReaders)
	for i := range r.hdr.readers {
		slot := &r.hdr.readers[i]
		if atomic.LoadUint32(&slot.inUse) != 0 {
			out = append(out, slot)
		}
	}
	return out
}

// availableRead returns the number of buffers reader idx may read. This is
// spec §4.8 updateAvailable's per-reader formula (`w ≥ r ? w−r : n−r+w`),
// recast over the cumulative-since-reset counters lapCount/reader.offset
// instead of the two mod-numBuffers positions the spec formula names —
// see the header.lapCount doc comment for why.
func (r *Ring) availableRead(idx int) uint32 {
	slot := &r.hdr.readers[idx]
	rOff := atomic.LoadUint64(&slot.offset)
	produced := r.hdr.loadLapCount()
	if produced < rOff {
		return 0
	}
	return uint32(produced - rOff)
}

// availableWrite returns the number of buffers the writer may write, derived
// from bufferLevel (the full/empty-disambiguating counter; see endAccess).
func (r *Ring) availableWrite() uint32 {
	n := r.hdr.loadNumBuffers()
	level := r.hdr.loadBufferLevel()
	if level >= n {
		return 0
	}
	return n - level
}

// BeginAccess clamps the requested count to what's available and to
// contiguity-with-wrap (never crossing the buffer end in one transaction),
// and for AccessWrite acquires writeInProgress, spec §4.8 beginAccess.
func (r *Ring) BeginAccess(access Access, readerIdx int, requested uint32) (offset uint32, n uint32, err error) {
	switch access {
	case AccessWrite:
		if !atomic.CompareAndSwapUint32(&r.hdr.writeInProgress, 0, 1) {
			return 0, 0, ErrNotAllowed
		}
		avail := r.availableWrite()
		n = requested
		if n > avail {
			n = avail
		}
		w := r.hdr.loadWriteOffset()
		nb := r.hdr.loadNumBuffers()
		if w+n > nb {
			n = nb - w
		}
		if n == 0 {
			atomic.StoreUint32(&r.hdr.writeInProgress, 0)
			return 0, 0, ErrWouldBlock
		}
		return w, n, nil
	case AccessRead:
		if readerIdx < 0 || readerIdx >= maxReaders {
			return 0, 0, ErrInvalidReader
		}
		slot := &r.hdr.readers[readerIdx]
		if atomic.LoadUint32(&slot.inUse) == 0 {
			return 0, 0, ErrInvalidReader
		}
		avail := r.availableRead(readerIdx)
		n = requested
		if n > avail {
			n = avail
		}
		rOff := atomic.LoadUint64(&slot.offset)
		nb := r.hdr.loadNumBuffers()
		phys := uint32(rOff % uint64(nb))
		if phys+n > nb {
			n = nb - phys
		}
		if n == 0 {
			return 0, 0, ErrWouldBlock
		}
		return phys, n, nil
	default:
		return 0, 0, ErrInvalidParam
	}
}

// EndAccess commits the advancement of a prior BeginAccess, spec §4.8
// endAccess.
func (r *Ring) EndAccess(access Access, readerIdx int, n uint32) error {
	switch access {
	case AccessWrite:
		nb := r.hdr.loadNumBuffers()
		w := r.hdr.loadWriteOffset()
		atomic.StoreUint32(&r.hdr.writeOffset, (w+n)%nb)
		atomic.AddUint64(&r.hdr.lapCount, uint64(n))
		atomic.AddUint32(&r.hdr.bufferLevel, n)
		atomic.StoreInt64(&r.hdr.writerLastAccessNs, nowNanos())
		atomic.StoreUint32(&r.hdr.writeInProgress, 0)
		level := r.hdr.loadBufferLevel()
		if level >= atomic.LoadUint32(&r.hdr.readWaitLevel) || atomic.LoadUint32(&r.hdr.readWaitLevel) == 0 {
			r.hdr.bumpReadGen()
		}
		return nil
	case AccessRead:
		if readerIdx < 0 || readerIdx >= maxReaders {
			return ErrInvalidReader
		}
		slot := &r.hdr.readers[readerIdx]
		atomic.AddUint64(&slot.offset, uint64(n))
		atomic.StoreInt64(&slot.lastAccessNs, nowNanos())
		r.aggregateReaderOffset()
		r.hdr.bumpWriteGen()
		return nil
	default:
		return ErrInvalidParam
	}
}

// aggregateReaderOffset recomputes the global readOffset as the minimum of
// all live readers' offsets and decreases bufferLevel by the delta it
// advanced, per spec §4.8 endAccess. When every live reader has fully
// caught up to the writer at an exact multiple of numBuffers (spec's
// literal case: every live reader has reached numBuffers), lapCount, all
// reader offsets, and the global readOffset reset to 0 atomically instead
// of being left to grow without bound — the "all readers wrapped" rule.
func (r *Ring) aggregateReaderOffset() {
	spinLock(&r.hdr.tableLock)
	defer spinUnlock(&r.hdr.tableLock)

	live := r.liveReaderSlots()
	if len(live) == 0 {
		return
	}

	nb := uint64(r.hdr.loadNumBuffers())
	lap := r.hdr.loadLapCount()
	min := atomic.LoadUint64(&live[0].offset)
	for _, slot := range live {
		off := atomic.LoadUint64(&slot.offset)
		if off < min {
			min = off
		}
	}

	old := atomic.LoadUint64(&r.hdr.readOffset)
	if min == lap && min > 0 && min%nb == 0 {
		for _, slot := range live {
			atomic.StoreUint64(&slot.offset, 0)
		}
		atomic.StoreUint64(&r.hdr.readOffset, 0)
		atomic.StoreUint64(&r.hdr.lapCount, 0)
		decrBufferLevel(r.hdr, uint32(lap-old))
		return
	}
	if min == old {
		return
	}
	atomic.StoreUint64(&r.hdr.readOffset, min)
	decrBufferLevel(r.hdr, uint32(min-old))
}

func decrBufferLevel(h *header, delta uint32) {
	for {
		cur := atomic.LoadUint32(&h.bufferLevel)
		next := cur - delta
		if cur < delta {
			next = 0
		}
		if atomic.CompareAndSwapUint32(&h.bufferLevel, cur, next) {
			return
		}
	}
}

// WaitRead blocks until reader idx has at least n buffers available or
// timeout elapses, spec §4.8 waitRead.
func (r *Ring) WaitRead(idx int, n uint32, timeout time.Duration) error {
	deadline := deadlineFrom(timeout)
	for {
		if r.availableRead(idx) >= n {
			return nil
		}
		remaining := remainingUntil(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		gen := atomic.LoadUint32(&r.hdr.readGen)
		futexWaitGen(&r.hdr.readGen, gen, remaining)
	}
}

// WaitWrite blocks until the writer has at least n free buffers or
// timeout elapses, spec §4.8 waitWrite.
func (r *Ring) WaitWrite(n uint32, timeout time.Duration) error {
	deadline := deadlineFrom(timeout)
	for {
		if r.availableWrite() >= n {
			return nil
		}
		remaining := remainingUntil(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		gen := atomic.LoadUint32(&r.hdr.writeGen)
		futexWaitGen(&r.hdr.writeGen, gen, remaining)
	}
}

// PurgeUnresponsiveReaders evicts any reader whose lastAccess predates
// threshold, spec §4.8 "Liveness". Returns the number of readers purged.
func (r *Ring) PurgeUnresponsiveReaders(threshold time.Duration) int {
	now := nowNanos()
	purged := 0
	spinLock(&r.hdr.tableLock)
	for i := range r.hdr.readers {
		slot := &r.hdr.readers[i]
		if atomic.LoadUint32(&slot.inUse) == 0 {
			continue
		}
		age := time.Duration(now - atomic.LoadInt64(&slot.lastAccessNs))
		if age > threshold {
			atomic.StoreUint32(&slot.inUse, 0)
			purged++
		}
	}
	spinUnlock(&r.hdr.tableLock)
	if purged > 0 {
		r.aggregateReaderOffset()
		r.hdr.bumpWriteGen()
	}
	return purged
}

// WriterAlive reports whether writerLastAccess is newer than threshold —
// the mechanism by which readers detect writer death, spec §4.8 "Liveness".
func (r *Ring) WriterAlive(threshold time.Duration) bool {
	last := atomic.LoadInt64(&r.hdr.writerLastAccessNs)
	return time.Duration(nowNanos()-last) <= threshold
}

// ResetFromWriter zeros offsets and level, taking only readInProgress so no
// reader transaction straddles the reset, spec §4.8 "Reset".
func (r *Ring) ResetFromWriter() {
	spinLock(&r.hdr.readInProgress)
	defer spinUnlock(&r.hdr.readInProgress)
	r.resetOffsetsLocked()
}

// ResetFromReader zeros offsets and level, taking only writeInProgress so no
// writer transaction straddles the reset, spec §4.8 "Reset".
func (r *Ring) ResetFromReader() {
	spinLock(&r.hdr.writeInProgress)
	defer spinUnlock(&r.hdr.writeInProgress)
	r.resetOffsetsLocked()
}

func (r *Ring) resetOffsetsLocked() {
	spinLock(&r.hdr.tableLock)
	atomic.StoreUint32(&r.hdr.writeOffset, 0)
	atomic.StoreUint64(&r.hdr.readOffset, 0)
	atomic.StoreUint64(&r.hdr.lapCount, 0)
	atomic.StoreUint32(&r.hdr.bufferLevel, 0)
	for i := range r.hdr.readers {
		if atomic.LoadUint32(&r.hdr.readers[i].inUse) != 0 {
			atomic.StoreUint64(&r.hdr.readers[i].offset, 0)
		}
	}
	spinUnlock(&r.hdr.tableLock)
	r.hdr.bumpReadGen()
	r.hdr.bumpWriteGen()
}

// ZeroOut additionally memsets the data region, spec §4.8 "Reset".
func (r *Ring) ZeroOut() {
	for i := range r.seg.data {
		r.seg.data[i] = 0
	}
}
