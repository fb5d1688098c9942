package rxengine

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(vlan bool, streamID avbtypes.StreamId, ts uint32) []byte {
	var hdr []byte
	if vlan {
		hdr = make([]byte, vlanHeaderLen)
		binary.BigEndian.PutUint16(hdr[12:14], etherTypeVLAN)
		binary.BigEndian.PutUint16(hdr[14:16], 7)
		binary.BigEndian.PutUint16(hdr[16:18], 0x22F0)
	} else {
		hdr = make([]byte, ethHeaderLen)
		binary.BigEndian.PutUint16(hdr[12:14], 0x22F0)
	}
	pdu := make([]byte, avbtypes.HeaderLen)
	h := avbtypes.Header{StreamID: streamID, Timestamp: ts}
	_ = h.Encode(pdu)
	return append(hdr, pdu...)
}

func TestClassifyFrame_Untagged(t *testing.T) {
	frame := buildFrame(false, 42, 0)
	cf, ok := classifyFrame(frame)
	require.True(t, ok)
	assert.False(t, cf.tagged)
	assert.Len(t, cf.payload, avbtypes.HeaderLen)
}

func TestClassifyFrame_VLANTagged(t *testing.T) {
	frame := buildFrame(true, 42, 0)
	cf, ok := classifyFrame(frame)
	require.True(t, ok)
	assert.True(t, cf.tagged)
	assert.EqualValues(t, 7, cf.vlanID)
	assert.Len(t, cf.payload, avbtypes.HeaderLen)
}

func TestClassifyFrame_RejectsNon1722(t *testing.T) {
	frame := make([]byte, ethHeaderLen+4)
	binary.BigEndian.PutUint16(frame[12:14], 0x0800) // IPv4
	_, ok := classifyFrame(frame)
	assert.False(t, ok)
}

func TestExtractStreamID(t *testing.T) {
	frame := buildFrame(false, 0x1122334455, 0)
	cf, ok := classifyFrame(frame)
	require.True(t, ok)
	id, ok := extractStreamID(cf.payload)
	require.True(t, ok)
	assert.EqualValues(t, 0x1122334455, id)
}

func TestShouldDiscard(t *testing.T) {
	e := &Engine{cfg: Config{DiscardAfter: 10 * time.Millisecond}}
	now := uint64(1_000_000_000)
	// pts 50ms stale: discard.
	assert.True(t, e.shouldDiscard(uint32(now-50_000_000), now))
	// pts 1ms stale: keep.
	assert.False(t, e.shouldDiscard(uint32(now-1_000_000), now))
}

func TestShouldDiscard_DisabledByDefault(t *testing.T) {
	e := &Engine{cfg: Config{}}
	assert.False(t, e.shouldDiscard(0, 1<<40))
}

type fakeStream struct {
	id       avbtypes.StreamId
	state    avbtypes.State
	smac     avbtypes.MacAddress
	idleHits int
	reads    int
	failNext bool
}

func (f *fakeStream) StreamID() avbtypes.StreamId          { return f.id }
func (f *fakeStream) SMAC() avbtypes.MacAddress             { return f.smac }
func (f *fakeStream) SetSMAC(m avbtypes.MacAddress)         { f.smac = m }
func (f *fakeStream) State() avbtypes.State                 { return f.state }
func (f *fakeStream) CheckIdle(now time.Time)               { f.idleHits++ }
func (f *fakeStream) ReadAvbPacket(raw []byte) error {
	f.reads++
	f.state = avbtypes.StateValid
	return nil
}

type fakeRx struct {
	frames [][]byte
	linkUp bool
}

func (f *fakeRx) ReadFrame(buf []byte, timeout time.Duration) (int, error) {
	if len(f.frames) == 0 {
		return 0, nil
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return copy(buf, frame), nil
}
func (f *fakeRx) JoinMulticast(avbtypes.MacAddress) error { return nil }
func (f *fakeRx) LeaveMulticast(avbtypes.MacAddress) error { return nil }
func (f *fakeRx) LinkUp() bool                             { return f.linkUp }
func (f *fakeRx) Close() error                              { return nil }

type fakePtp struct{ now uint64 }

func (f *fakePtp) Now() uint64          { return f.now }
func (f *fakePtp) EpochCounter() uint64 { return 0 }

func TestEngine_DispatchesExactMatch(t *testing.T) {
	frame := buildFrame(false, 99, 0)
	rx := &fakeRx{linkUp: true, frames: [][]byte{frame}}
	eng := New(DefaultConfig(), rx, &fakePtp{now: 1})
	stream := &fakeStream{id: 99}
	eng.RegisterStream(stream)

	var changed avbtypes.State
	var changedID avbtypes.StreamId
	eng.OnStatusChange(func(id avbtypes.StreamId, s avbtypes.State) {
		changedID, changed = id, s
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = eng.Run(ctx)

	assert.Equal(t, 1, stream.reads)
	assert.EqualValues(t, 99, changedID)
	assert.Equal(t, avbtypes.StateValid, changed)
}

func TestEngine_WildcardMatchesUnknownStreamID(t *testing.T) {
	frame := buildFrame(false, 7, 0)
	rx := &fakeRx{linkUp: true, frames: [][]byte{frame}}
	eng := New(DefaultConfig(), rx, &fakePtp{now: 1})
	wildcard := &fakeStream{id: avbtypes.Wildcard}
	eng.RegisterStream(wildcard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = eng.Run(ctx)

	assert.Equal(t, 1, wildcard.reads)
}

func TestEngine_IdleSweepChecksAllStreams(t *testing.T) {
	rx := &fakeRx{linkUp: true}
	eng := New(Config{IdleWait: time.Millisecond}, rx, &fakePtp{now: 1})
	stream := &fakeStream{id: 1}
	eng.RegisterStream(stream)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = eng.Run(ctx)

	assert.Positive(t, stream.idleHits)
}
