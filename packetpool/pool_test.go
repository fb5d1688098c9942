package packetpool

import (
	"testing"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRejectsOutOfRangeSizes(t *testing.T) {
	_, err := Init(0, 10)
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)

	_, err = Init(100, 0)
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)

	_, err = Init(100, MaxPoolSize+1)
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)
}

func TestGetPacketReturnPacketRestoresFreeCount(t *testing.T) {
	p, err := Init(256, 4)
	require.NoError(t, err)
	require.Equal(t, 4, p.FreeCount())

	pkt, err := p.GetPacket()
	require.NoError(t, err)
	require.Equal(t, 3, p.FreeCount())

	require.NoError(t, p.ReturnPacket(pkt))
	assert.Equal(t, 4, p.FreeCount())
}

func TestPoolExhaustion(t *testing.T) {
	p, err := Init(64, 2)
	require.NoError(t, err)

	_, err = p.GetPacket()
	require.NoError(t, err)
	_, err = p.GetPacket()
	require.NoError(t, err)

	_, err = p.GetPacket()
	assert.ErrorIs(t, err, avbtypes.ErrNotEnoughMemory)
}

func TestReturnPacketRejectsForeignPacket(t *testing.T) {
	a, err := Init(64, 1)
	require.NoError(t, err)
	b, err := Init(64, 1)
	require.NoError(t, err)

	pkt, err := a.GetPacket()
	require.NoError(t, err)

	err = b.ReturnPacket(pkt)
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)
}

func TestReturnPacketRejectsInvalidPacket(t *testing.T) {
	p, err := Init(64, 1)
	require.NoError(t, err)
	err = p.ReturnPacket(&Packet{})
	assert.ErrorIs(t, err, avbtypes.ErrInvalidParam)
}

func TestInitAllPacketsFromTemplateAppliesHeader(t *testing.T) {
	p, err := Init(32, 3)
	require.NoError(t, err)

	tmpl, err := p.GetPacket()
	require.NoError(t, err)
	tmpl.PayloadOffset = 24
	tmpl.Buf[0] = 0xaa

	require.NoError(t, p.InitAllPacketsFromTemplate(tmpl))

	pkt, err := p.GetPacket()
	require.NoError(t, err)
	assert.Equal(t, 24, pkt.PayloadOffset)
	assert.Equal(t, byte(0xaa), pkt.Buf[0])
}

func TestGetDummyPacketMarksDummy(t *testing.T) {
	p, err := Init(32, 1)
	require.NoError(t, err)
	pkt, err := p.GetDummyPacket()
	require.NoError(t, err)
	assert.True(t, pkt.IsDummy())
}
