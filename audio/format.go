package audio

import (
	"encoding/binary"
	"math"
)

// Format is the audio sample encoding carried on the wire.
type Format uint8

const (
	FormatIec61883_6 Format = iota
	FormatSAF16
	FormatSAF24
	FormatSAF32
	FormatSAFFloat
)

// SampleSize returns the wire size in bytes of one sample for f.
func (f Format) SampleSize() int {
	switch f {
	case FormatSAF16:
		return 2
	case FormatSAF24:
		return 3
	case FormatSAF32, FormatSAFFloat:
		return 4
	case FormatIec61883_6:
		return 4 // quadlet: 4-bit label + 24-bit sample
	default:
		return 0
	}
}

// Compatibility selects the wire compatibility mode, per spec §4.3's
// "compatibility modes {latest, d6_1722a, SAF}". The format and frequency
// codes are the same in every mode; only CompatD6_1722a changes behaviour,
// adding one side-channel per frame that the receive path strips.
type Compatibility uint8

const (
	CompatLatest Compatibility = iota
	CompatD6_1722a
	CompatSAF
)

// saturateInt32 clamps v into the representable range of an n-bit signed
// integer, the same clipping-protection idiom as the teacher's GainEffect.
func saturateInt32(v int64, bits uint) int32 {
	max := int64(1)<<(bits-1) - 1
	min := -(int64(1) << (bits - 1))
	if v > max {
		return int32(max)
	}
	if v < min {
		return int32(min)
	}
	return int32(v)
}

// EncodeSample writes one internal int32 PCM sample (left-justified to 32
// bits) into dst in wire format f, big-endian. dst must be at least
// f.SampleSize() bytes.
func EncodeSample(dst []byte, f Format, sample int32, saturate bool) {
	switch f {
	case FormatSAF16:
		v := sample >> 16
		if saturate {
			v = int32(saturateInt32(int64(v), 16))
		}
		binary.BigEndian.PutUint16(dst, uint16(int16(v)))
	case FormatSAF24:
		v := sample >> 8
		if saturate {
			v = int32(saturateInt32(int64(v), 24))
		}
		dst[0] = byte(v >> 16)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v)
	case FormatSAF32:
		binary.BigEndian.PutUint32(dst, uint32(sample))
	case FormatSAFFloat:
		f64 := float64(sample) / float64(1<<31)
		binary.BigEndian.PutUint32(dst, math.Float32bits(float32(f64)))
	case FormatIec61883_6:
		// 4-bit label (0x4 = raw audio) + 24-bit sample.
		v := sample >> 8
		if saturate {
			v = int32(saturateInt32(int64(v), 24))
		}
		quad := (uint32(0x4) << 24) | (uint32(v) & 0x00ffffff)
		binary.BigEndian.PutUint32(dst, quad)
	}
}

// DecodeSample reads one wire-format sample from src and returns it as an
// internal int32 PCM sample left-justified to 32 bits.
func DecodeSample(src []byte, f Format) int32 {
	switch f {
	case FormatSAF16:
		return int32(int16(binary.BigEndian.Uint16(src))) << 16
	case FormatSAF24:
		v := int32(src[0])<<16 | int32(src[1])<<8 | int32(src[2])
		if v&0x800000 != 0 {
			v |= ^int32(0xffffff) // sign-extend 24 -> 32
		}
		return v << 8
	case FormatSAF32:
		return int32(binary.BigEndian.Uint32(src))
	case FormatSAFFloat:
		bits := binary.BigEndian.Uint32(src)
		f64 := float64(math.Float32frombits(bits))
		return int32(f64 * float64(1<<31))
	case FormatIec61883_6:
		quad := binary.BigEndian.Uint32(src)
		v := int32(quad & 0x00ffffff)
		if v&0x800000 != 0 {
			v |= ^int32(0xffffff)
		}
		return v << 8
	default:
		return 0
	}
}

// sampleFrequencyTable maps the AVTP format-specific frequency code to Hz,
// the "fixed table" spec §4.3 refers to.
var sampleFrequencyTable = map[uint8]uint32{
	1: 8000,
	2: 16000,
	3: 32000,
	4: 44100,
	5: 88200,
	6: 176400,
	7: 48000,
	8: 96000,
	9: 192000,
}

// FrequencyCode returns the wire frequency code for hz, and false if hz is
// not in the fixed table.
func FrequencyCode(hz uint32) (uint8, bool) {
	for code, freq := range sampleFrequencyTable {
		if freq == hz {
			return code, true
		}
	}
	return 0, false
}

// FrequencyFromCode reverses FrequencyCode.
func FrequencyFromCode(code uint8) (uint32, bool) {
	hz, ok := sampleFrequencyTable[code]
	return hz, ok
}

// WireFormatCode returns the AVTP format-specific format code for f, the
// value carried in the header's FormatSpecific0 byte 0 (spec §6 "format
// code, sample-frequency code, channels-per-frame").
func (f Format) WireFormatCode() uint8 {
	return uint8(f)
}

// FormatFromWireCode reverses WireFormatCode.
func FormatFromWireCode(code uint8) (Format, bool) {
	f := Format(code)
	switch f {
	case FormatIec61883_6, FormatSAF16, FormatSAF24, FormatSAF32, FormatSAFFloat:
		return f, true
	default:
		return 0, false
	}
}
