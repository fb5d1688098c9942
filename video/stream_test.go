package video

import (
	"testing"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVideoBuffer struct {
	tx []Descriptor
	rx []Descriptor
}

func (b *fakeVideoBuffer) PopDescriptor() (Descriptor, bool) {
	if len(b.tx) == 0 {
		return Descriptor{}, false
	}
	d := b.tx[0]
	b.tx = b.tx[1:]
	return d, true
}

func (b *fakeVideoBuffer) PushDescriptor(d Descriptor) {
	b.rx = append(b.rx, d)
}

func newTestStream(buf LocalBuffer) *Stream {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 1400, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	base := avtpstream.NewBase(avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 2), tspec, avbtypes.DirectionTransmit, nil)
	return New(base, Config{Format: FormatH264RTP, LaunchDelta: 2000}, buf)
}

func TestPreparePacketEmitsDummyWhenEmpty(t *testing.T) {
	s := newTestStream(&fakeVideoBuffer{})
	pool, err := packetpool.Init(256, 2)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)

	require.NoError(t, s.PreparePacket(pkt, 1000))
	assert.True(t, pkt.IsDummy())
	assert.Equal(t, uint64(1000+2000), pkt.Attime)
}

func TestPreparePacketEncodesRtpOverAvtp(t *testing.T) {
	fb := &fakeVideoBuffer{tx: []Descriptor{{Payload: []byte{1, 2, 3, 4}, RTPSequence: 10, RTPTimestamp: 9000, Marker: true}}}
	s := newTestStream(fb)
	pool, err := packetpool.Init(256, 1)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	require.NoError(t, s.PreparePacket(pkt, 1000))
	assert.False(t, pkt.IsDummy())

	hdr, err := avbtypes.DecodeHeader(pkt.Buf)
	require.NoError(t, err)
	assert.Equal(t, avbtypes.SubtypeCVF, hdr.Subtype)
}

func TestReadFromAvbPacketReconstructsSequence(t *testing.T) {
	fb := &fakeVideoBuffer{}
	s := newTestStream(fb)

	// AVTP sequence field wraps 254, 255, 0, 1 — the reconstructed rolling
	// sequence should keep counting 254, 255, 256, 257.
	avtpSeqs := []uint8{254, 255, 0, 1}
	for _, seq := range avtpSeqs {
		buf := buildCvfPacket(t, seq)
		require.NoError(t, s.ReadFromAvbPacket(buf))
	}

	require.Len(t, fb.rx, 4)
	assert.Equal(t, uint16(254), fb.rx[0].RTPSequence)
	assert.Equal(t, uint16(255), fb.rx[1].RTPSequence)
	assert.Equal(t, uint16(256), fb.rx[2].RTPSequence)
	assert.Equal(t, uint16(257), fb.rx[3].RTPSequence)
}

func buildCvfPacket(t *testing.T, avtpSeq uint8) []byte {
	t.Helper()
	rtpPkt := &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1, Timestamp: 1}, Payload: []byte{9, 9}}
	rtpBytes, err := rtpPkt.Marshal()
	require.NoError(t, err)

	buf := make([]byte, avbtypes.HeaderLen+len(rtpBytes))
	hdr := avbtypes.Header{
		Subtype:          avbtypes.SubtypeCVF,
		StreamValid:      true,
		Sequence:         avtpSeq,
		StreamID:         avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 2),
		StreamDataLength: uint16(len(rtpBytes)),
	}
	require.NoError(t, hdr.Encode(buf))
	copy(buf[avbtypes.HeaderLen:], rtpBytes)
	return buf
}

func TestMpegTsRoundTrip(t *testing.T) {
	s := newTestStream(&fakeVideoBuffer{})
	s.cfg.Format = FormatMPEGTS

	pool, err := packetpool.Init(512, 1)
	require.NoError(t, err)
	pkt, err := pool.GetPacket()
	require.NoError(t, err)
	pkt.PayloadOffset = avbtypes.HeaderLen

	sp := make([]byte, sourcePacketLen)
	sp[4] = 0x47 // TS sync byte after the 4-byte SPH

	require.NoError(t, s.WriteMpegTsPacket(pkt, 0, [][]byte{sp}))

	got, err := s.ReadMpegTsPacket(pkt.Buf[:pkt.Len])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sp, got[0])
}

func TestMpegTsRejectsBadLength(t *testing.T) {
	s := newTestStream(&fakeVideoBuffer{})
	err := s.WriteMpegTsPacket(nil, 0, [][]byte{{1, 2, 3}})
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)
}
