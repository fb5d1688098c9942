package ringbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAll(t *testing.T, r *Ring, payload byte, n uint32) {
	t.Helper()
	off, got, err := r.BeginAccess(AccessWrite, -1, n)
	require.NoError(t, err)
	require.Equal(t, n, got)
	for i := uint32(0); i < got; i++ {
		buf := r.Buffer(off + i)
		for j := range buf {
			buf[j] = payload
		}
	}
	require.NoError(t, r.EndAccess(AccessWrite, -1, got))
}

func TestRing_WriteThenReadRoundTrip(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()

	idx, err := r.AddReader(123)
	require.NoError(t, err)

	writeAll(t, r, 0xAB, 3)

	off, n, err := r.BeginAccess(AccessRead, idx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, byte(0xAB), r.Buffer(0)[off])
	require.NoError(t, r.EndAccess(AccessRead, idx, n))

	assert.EqualValues(t, 0, r.availableRead(idx))
}

func TestRing_FullRingBlocksWriter(t *testing.T) {
	r, err := NewInMemory(1, 4)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.AddReader(1) // reader stays at offset 0, never reads
	require.NoError(t, err)

	writeAll(t, r, 1, 4)

	assert.EqualValues(t, 4, r.hdr.loadBufferLevel())
	_, _, err = r.BeginAccess(AccessWrite, -1, 1)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestRing_ConcurrentWriteBeginRejected(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.BeginAccess(AccessWrite, -1, 2)
	require.NoError(t, err)

	_, _, err = r.BeginAccess(AccessWrite, -1, 1)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestRing_AllReadersReachedEndResets(t *testing.T) {
	r, err := NewInMemory(1, 4)
	require.NoError(t, err)
	defer r.Close()

	idxA, err := r.AddReader(1)
	require.NoError(t, err)
	idxB, err := r.AddReader(2)
	require.NoError(t, err)

	writeAll(t, r, 1, 4)

	for _, idx := range []int{idxA, idxB} {
		off, n, err := r.BeginAccess(AccessRead, idx, 4)
		require.NoError(t, err)
		require.NoError(t, r.EndAccess(AccessRead, idx, n))
		_ = off
	}

	assert.EqualValues(t, 0, r.hdr.loadReadOffset())
	assert.EqualValues(t, 0, r.hdr.readers[idxA].offset)
	assert.EqualValues(t, 0, r.hdr.readers[idxB].offset)
	assert.EqualValues(t, 0, r.hdr.loadBufferLevel())
}

func TestRing_SlowReaderLimitsWriterLevel(t *testing.T) {
	r, err := NewInMemory(1, 4)
	require.NoError(t, err)
	defer r.Close()

	fast, err := r.AddReader(1)
	require.NoError(t, err)
	_, err = r.AddReader(2) // never reads
	require.NoError(t, err)

	writeAll(t, r, 1, 2)

	off, n, err := r.BeginAccess(AccessRead, fast, 2)
	require.NoError(t, err)
	require.NoError(t, r.EndAccess(AccessRead, fast, n))
	_ = off

	// the slow reader still anchors readOffset at 0, so bufferLevel holds.
	assert.EqualValues(t, 2, r.hdr.loadBufferLevel())
}

func TestRing_WaitReadTimesOut(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()
	idx, err := r.AddReader(1)
	require.NoError(t, err)

	start := time.Now()
	err = r.WaitRead(idx, 1, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRing_WaitReadWokenByWrite(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()
	idx, err := r.AddReader(1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.WaitRead(idx, 2, time.Second) }()

	time.Sleep(10 * time.Millisecond)
	writeAll(t, r, 7, 2)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitRead was not woken by write")
	}
}

func TestRing_PurgeUnresponsiveReaders(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()

	idx, err := r.AddReader(1)
	require.NoError(t, err)
	r.hdr.readers[idx].lastAccessNs = nowNanos() - int64(5*time.Second)

	purged := r.PurgeUnresponsiveReaders(2 * time.Second)
	assert.Equal(t, 1, purged)
	assert.EqualValues(t, 0, r.hdr.readers[idx].inUse)
}

func TestRing_ResetFromWriterZeroesState(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()
	idx, err := r.AddReader(1)
	require.NoError(t, err)
	writeAll(t, r, 9, 3)

	r.ResetFromWriter()

	assert.EqualValues(t, 0, r.hdr.loadWriteOffset())
	assert.EqualValues(t, 0, r.hdr.loadReadOffset())
	assert.EqualValues(t, 0, r.hdr.loadBufferLevel())
	assert.EqualValues(t, 0, r.hdr.readers[idx].offset)
}

func TestRing_WriterAliveTracksStamp(t *testing.T) {
	r, err := NewInMemory(4, 8)
	require.NoError(t, err)
	defer r.Close()

	writeAll(t, r, 1, 1)
	assert.True(t, r.WriterAlive(time.Second))

	r.hdr.writerLastAccessNs = nowNanos() - int64(10*time.Second)
	assert.False(t, r.WriterAlive(time.Second))
}
