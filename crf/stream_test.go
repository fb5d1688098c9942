package crf

import (
	"testing"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) *Stream {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 100, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	base := avtpstream.NewBase(avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 3), tspec, avbtypes.DirectionTransmit, nil)
	s, err := New(base, Config{CrfType: 1, BaseFreqIndex: 7, Pull: PullFlat, TimestampsPerPdu: 6, TimestampInterval: 8})
	require.NoError(t, err)
	return s
}

func TestBaseFrequencyTableRoundTrip(t *testing.T) {
	idx, ok := BaseFrequencyIndex(48000)
	require.True(t, ok)
	assert.Equal(t, uint8(7), idx)
	hz, ok := BaseFrequencyFromIndex(idx)
	require.True(t, ok)
	assert.Equal(t, uint32(48000), hz)
}

func TestNewRejectsUnknownBaseFrequency(t *testing.T) {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 100, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	base := avtpstream.NewBase(0, tspec, avbtypes.DirectionTransmit, nil)
	_, err := New(base, Config{BaseFreqIndex: 99, TimestampsPerPdu: 1})
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)
}

func TestWriteToAvbPacketEncodesTimestampVector(t *testing.T) {
	s := newTestStream(t)
	pool, err := packetpool.Init(256, 1)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, s.WriteToAvbPacket(pkt, 1_000_000))

	hdr, err := avbtypes.DecodeHeader(pkt.Buf)
	require.NoError(t, err)
	assert.Equal(t, avbtypes.SubtypeCRF, hdr.Subtype)
	assert.Equal(t, uint16(6*8), hdr.StreamDataLength)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	tx := newTestStream(t)
	pool, err := packetpool.Init(256, 1)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, tx.WriteToAvbPacket(pkt, 2_000_000))

	rx := newTestStream(t)
	require.NoError(t, rx.ReadFromAvbPacket(pkt.Buf[:pkt.Len]))
}

func TestReadRejectsBadPayloadLength(t *testing.T) {
	rx := newTestStream(t)
	buf := make([]byte, avbtypes.HeaderLen)
	hdr := avbtypes.Header{Subtype: avbtypes.SubtypeCRF, StreamDataLength: 5}
	require.NoError(t, hdr.Encode(buf))
	err := rx.ReadFromAvbPacket(buf)
	assert.ErrorIs(t, err, avbtypes.ErrValidationFailed)
}
