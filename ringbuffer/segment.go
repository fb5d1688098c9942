package ringbuffer

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

var headerSize = int(unsafe.Sizeof(header{}))

// segment is the mapped memory backing a Ring: a header followed by a
// contiguous numBuffers*bufferSize data area, per spec §4.8's layout.
type segment struct {
	mem  []byte
	hdr  *header
	data []byte

	closer func() error
}

func newSegment(mem []byte, bufferSize, numBuffers uint32, closer func() error) (*segment, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	if len(mem) < need {
		return nil, fmt.Errorf("ringbuffer: segment too small: have %d bytes, need %d", len(mem), need)
	}
	hdr := (*header)(unsafe.Pointer(&mem[0]))
	return &segment{mem: mem, hdr: hdr, data: mem[headerSize:need], closer: closer}, nil
}

func initHeader(h *header, bufferSize, numBuffers uint32) {
	*h = header{}
	h.bufferSize = bufferSize
	h.numBuffers = numBuffers
}

// newInMemorySegment allocates a private (non-shared) backing array, for use
// within a single process — primarily tests and single-process embeddings
// of the ring buffer semantics.
func newInMemorySegment(bufferSize, numBuffers uint32) (*segment, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	mem := make([]byte, need)
	seg, err := newSegment(mem, bufferSize, numBuffers, func() error { return nil })
	if err != nil {
		return nil, err
	}
	initHeader(seg.hdr, bufferSize, numBuffers)
	return seg, nil
}

// newSharedSegment creates a memfd-backed anonymous shared-memory segment
// (the Go analogue of `shm_open`/`memfd_create` named in spec §4.8's
// domain-stack expansion) sized to hold the header plus numBuffers buffers
// of bufferSize bytes, and mmaps it MAP_SHARED. The returned fd can be
// handed to another process for AttachShared; this module has no
// fd-passing channel of its own (shmconn uses NewNamed/AttachNamed).
func newSharedSegment(name string, bufferSize, numBuffers uint32) (*segment, int, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, -1, fmt.Errorf("ringbuffer: memfd_create %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(need)); err != nil {
		_ = unix.Close(fd)
		return nil, -1, fmt.Errorf("ringbuffer: ftruncate: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, need, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, -1, fmt.Errorf("ringbuffer: mmap: %w", err)
	}
	closer := func() error {
		err1 := unix.Munmap(mem)
		err2 := unix.Close(fd)
		if err1 != nil {
			return err1
		}
		return err2
	}
	seg, err := newSegment(mem, bufferSize, numBuffers, closer)
	if err != nil {
		_ = closer()
		return nil, -1, err
	}
	initHeader(seg.hdr, bufferSize, numBuffers)
	return seg, fd, nil
}

// attachSharedSegment mmaps an already-initialized segment from an fd
// obtained from elsewhere (the creator), without
// re-initializing the header.
func attachSharedSegment(fd int, bufferSize, numBuffers uint32) (*segment, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	mem, err := unix.Mmap(fd, 0, need, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("ringbuffer: attach mmap: %w", err)
	}
	closer := func() error { return unix.Munmap(mem) }
	return newSegment(mem, bufferSize, numBuffers, closer)
}

func (s *segment) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// newNamedSegment creates (or truncates) a filesystem-backed shared-memory
// segment at path — the POSIX `shm_open`-by-name analogue spec §6's
// `avb_<connectionName>` naming convention needs, since a memfd has no path
// a separate process can open. `shmconn` builds the create/attach/detach
// lifecycle contract on top of this and attachNamedSegment.
func newNamedSegment(path string, bufferSize, numBuffers uint32) (*segment, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ringbuffer: open %q: %w", path, err)
	}
	if err := unix.Ftruncate(fd, int64(need)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ringbuffer: ftruncate %q: %w", path, err)
	}
	mem, err := unix.Mmap(fd, 0, need, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	_ = unix.Close(fd) // the mapping keeps the segment alive; the fd itself isn't needed after mmap
	if err != nil {
		return nil, fmt.Errorf("ringbuffer: mmap %q: %w", path, err)
	}
	closer := func() error { return unix.Munmap(mem) }
	seg, err := newSegment(mem, bufferSize, numBuffers, closer)
	if err != nil {
		_ = closer()
		return nil, err
	}
	initHeader(seg.hdr, bufferSize, numBuffers)
	return seg, nil
}

// attachNamedSegment opens and mmaps an existing segment created by
// newNamedSegment, without re-initializing its header.
func attachNamedSegment(path string, bufferSize, numBuffers uint32) (*segment, error) {
	need := headerSize + int(bufferSize)*int(numBuffers)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ringbuffer: open %q: %w", path, err)
	}
	mem, err := unix.Mmap(fd, 0, need, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	_ = unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("ringbuffer: attach mmap %q: %w", path, err)
	}
	closer := func() error { return unix.Munmap(mem) }
	return newSegment(mem, bufferSize, numBuffers, closer)
}
