package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleRoundTripSAF16(t *testing.T) {
	buf := make([]byte, 2)
	EncodeSample(buf, FormatSAF16, 1000<<16, false)
	got := DecodeSample(buf, FormatSAF16)
	assert.Equal(t, int32(1000<<16), got)
}

func TestSampleRoundTripSAF24(t *testing.T) {
	buf := make([]byte, 3)
	EncodeSample(buf, FormatSAF24, -12345<<8, false)
	got := DecodeSample(buf, FormatSAF24)
	assert.Equal(t, int32(-12345<<8), got)
}

func TestSampleSaturationClampsSAF16(t *testing.T) {
	buf := make([]byte, 2)
	EncodeSample(buf, FormatSAF16, 0x7fffffff, true)
	got := DecodeSample(buf, FormatSAF16)
	assert.Equal(t, int32(32767)<<16, got)
}

func TestFrequencyCodeTableRoundTrip(t *testing.T) {
	code, ok := FrequencyCode(48000)
	assert.True(t, ok)
	assert.Equal(t, uint8(7), code)

	hz, ok := FrequencyFromCode(code)
	assert.True(t, ok)
	assert.Equal(t, uint32(48000), hz)
}

func TestFrequencyCodeUnknown(t *testing.T) {
	_, ok := FrequencyCode(12345)
	assert.False(t, ok)
}

func TestWireFormatCodeRoundTrip(t *testing.T) {
	code := FormatSAF24.WireFormatCode()
	got, ok := FormatFromWireCode(code)
	assert.True(t, ok)
	assert.Equal(t, FormatSAF24, got)
}

func TestFormatFromWireCodeUnknown(t *testing.T) {
	_, ok := FormatFromWireCode(0xff)
	assert.False(t, ok)
}
