package audio

import (
	"testing"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuffer struct {
	tx []int32
	rx []int32
}

func (b *fakeBuffer) PullSamples(n, channels int) ([]int32, int) {
	need := n * channels
	if len(b.tx) >= need {
		out := b.tx[:need]
		b.tx = b.tx[need:]
		return out, n
	}
	got := len(b.tx) / channels
	out := append([]int32{}, b.tx...)
	b.tx = nil
	return out, got
}

func (b *fakeBuffer) PushSamples(samples []int32, channels int) {
	b.rx = append(b.rx, samples...)
}

func newTestStream(t *testing.T, buf LocalBuffer) *Stream {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 200, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	base := avtpstream.NewBase(avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 1), tspec, avbtypes.DirectionTransmit, nil)
	cfg := Config{
		SampleFrequency: 48000,
		Format:          FormatSAF16,
		NumChannels:     2,
		ValidationMode:  ValidateAlways,
		Saturate:        true,
	}
	s, err := New(base, cfg, buf)
	require.NoError(t, err)
	return s
}

func TestSamplesPerPacketPerChannelClassA(t *testing.T) {
	s := newTestStream(t, &fakeBuffer{})
	// 48000 / 8000 = 6 samples per packet per channel.
	assert.Equal(t, 6, s.SamplesPerPacketPerChannel())
}

func TestWriteToAvbPacketAnchorsOnFirstCall(t *testing.T) {
	fb := &fakeBuffer{tx: make([]int32, 6*2)}
	s := newTestStream(t, fb)

	pool, err := packetpool.Init(256, 4)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, s.WriteToAvbPacket(pkt, 1_000_000))
	assert.Equal(t, uint64(6), s.refPlaneSampleCount)
	assert.True(t, s.anchored)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	txBuf := &fakeBuffer{tx: []int32{100 << 16, 200 << 16, 300 << 16, 400 << 16, 500 << 16, 600 << 16, 700 << 16, 800 << 16, 900 << 16, 1000 << 16, 1100 << 16, 1200 << 16}}
	txStream := newTestStream(t, txBuf)

	pool, err := packetpool.Init(256, 2)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, txStream.WriteToAvbPacket(pkt, 1_000_000))

	rxBuf := &fakeBuffer{}
	rxStream := newTestStream(t, rxBuf)
	rxStream.seq = 255 // so the first received seq (0) is accepted as wraparound
	rxStream.haveSeq = false

	raw := pkt.Buf[:pkt.Len]
	require.NoError(t, rxStream.ReadFromAvbPacket(raw))
	require.Len(t, rxBuf.rx, 6*2)
	for i, want := range []int32{100 << 16, 200 << 16, 300 << 16, 400 << 16, 500 << 16, 600 << 16, 700 << 16, 800 << 16, 900 << 16, 1000 << 16, 1100 << 16, 1200 << 16} {
		assert.Equal(t, want, rxBuf.rx[i])
	}
}

func TestReadFromAvbPacketRejectsFormatMismatch(t *testing.T) {
	txBuf := &fakeBuffer{tx: make([]int32, 6*2)}
	txStream := newTestStream(t, txBuf)

	pool, err := packetpool.Init(256, 2)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen
	require.NoError(t, txStream.WriteToAvbPacket(pkt, 1_000_000))

	rxBuf := &fakeBuffer{}
	rxStream := newTestStream(t, rxBuf)
	rxStream.cfg.SampleFrequency = 96000 // mismatched frequency code

	raw := pkt.Buf[:pkt.Len]
	err = rxStream.ReadFromAvbPacket(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, avbtypes.ErrValidationFailed)
}

func newIec61883Stream(t *testing.T, buf LocalBuffer) *Stream {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 200, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	base := avtpstream.NewBase(avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 1), tspec, avbtypes.DirectionTransmit, nil)
	cfg := Config{
		SampleFrequency: 48000,
		Format:          FormatIec61883_6,
		NumChannels:     2,
		ValidationMode:  ValidateAlways,
		Saturate:        true,
	}
	s, err := New(base, cfg, buf)
	require.NoError(t, err)
	return s
}

func TestIec61883RoundTripCarriesCipHeader(t *testing.T) {
	txBuf := &fakeBuffer{tx: []int32{100 << 16, 200 << 16, 300 << 16, 400 << 16, 500 << 16, 600 << 16, 700 << 16, 800 << 16, 900 << 16, 1000 << 16, 1100 << 16, 1200 << 16}}
	txStream := newIec61883Stream(t, txBuf)

	pool, err := packetpool.Init(256, 2)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, txStream.WriteToAvbPacket(pkt, 1_000_000))

	hdr, err := avbtypes.DecodeHeader(pkt.Buf)
	require.NoError(t, err)
	assert.Equal(t, avbtypes.SubtypeIec61883, hdr.Subtype)
	assert.Equal(t, uint16(cipHeaderLen+6*2*4), hdr.StreamDataLength)
	// DBS byte of the CIP header carries the wire channel count.
	assert.Equal(t, byte(2), pkt.Payload()[1])

	rxBuf := &fakeBuffer{}
	rxStream := newIec61883Stream(t, rxBuf)
	rxStream.seq = 255
	rxStream.haveSeq = false

	raw := pkt.Buf[:pkt.Len]
	require.NoError(t, rxStream.ReadFromAvbPacket(raw))
	require.Len(t, rxBuf.rx, 6*2)
	for i, want := range []int32{100 << 16, 200 << 16, 300 << 16, 400 << 16, 500 << 16, 600 << 16, 700 << 16, 800 << 16, 900 << 16, 1000 << 16, 1100 << 16, 1200 << 16} {
		assert.Equal(t, want, rxBuf.rx[i])
	}
}
