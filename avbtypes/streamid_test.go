package avbtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIdRoundTrip(t *testing.T) {
	cases := []StreamId{
		Wildcard,
		1,
		0xdeadbeefcafebabe,
		NewStreamId(MacAddress{0x00, 0x1b, 0x21, 0x11, 0x22, 0x33}, 7),
	}
	for _, want := range cases {
		var buf [8]byte
		want.PutBytes(buf[:])
		got, err := StreamIdFromBytes(buf[:])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStreamIdMacAndUniqueID(t *testing.T) {
	mac := MacAddress{0x00, 0x1b, 0x21, 0x11, 0x22, 0x33}
	id := NewStreamId(mac, 0x0042)
	assert.Equal(t, mac, id.MacAddress())
	assert.Equal(t, uint16(0x0042), id.UniqueID())
}

func TestStreamIdFromBytesShort(t *testing.T) {
	_, err := StreamIdFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestWildcardIsZero(t *testing.T) {
	assert.True(t, Wildcard.IsWildcard())
	assert.False(t, StreamId(1).IsWildcard())
}
