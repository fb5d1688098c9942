package avbtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Subtype:            SubtypeAAF,
		StreamValid:        true,
		Version:            0,
		Sequence:           200,
		TimestampUncertain: false,
		StreamID:           NewStreamId(MacAddress{1, 2, 3, 4, 5, 6}, 9),
		Timestamp:          0xfffffc18, // 2^32 - 1000
		FormatSpecific0:    0x02060002,
		StreamDataLength:   48,
		FormatSpecific1:    0,
	}
	buf := make([]byte, HeaderLen)
	require.NoError(t, h.Encode(buf))
	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderEncodeShortBuffer(t *testing.T) {
	h := Header{}
	err := h.Encode(make([]byte, HeaderLen-1))
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestDecodeHeaderShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderLen-1))
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestTimestampDeltaWraparound(t *testing.T) {
	// Anchor near the top of the 32-bit space; next timestamp wraps to a
	// small value 1000ns later.
	anchor := uint32(0xffffffff - 999) // 2^32 - 1000
	next := anchor + 1000              // wraps to 0
	assert.Equal(t, int32(1000), TimestampDelta(anchor, next))
	assert.Equal(t, int32(-1000), TimestampDelta(next, anchor))
}
