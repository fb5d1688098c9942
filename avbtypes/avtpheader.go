package avbtypes

import "encoding/binary"

// HeaderLen is the fixed length of the AVTP common header shared by every
// subtype this module supports (AAF/61883 audio, RTP/MPEG-TS video, CRF).
const HeaderLen = 24

// Subtype identifies the AVTP payload format carried after the common
// header.
type Subtype uint8

const (
	SubtypeIec61883 Subtype = 0x00 // 61883-6 audio or MPEG-TS video (tag 0x40)
	SubtypeAAF      Subtype = 0x02
	SubtypeCVF      Subtype = 0x03 // compressed video, RTP-over-AVTP (H.264)
	SubtypeCRF      Subtype = 0x04
)

// Header is the 24-byte AVTP common header present at the start of every
// PDU this module handles:
//
//	byte 0:    subtype
//	byte 1:    sv(1) version(3) reserved(4) — sv is the stream-valid bit
//	byte 2:    sequence number
//	byte 3:    tu(1) reserved(7) — tu is the timestamp-uncertain bit
//	byte 4-11: StreamID (big-endian)
//	byte 12-15: AVTP timestamp (big-endian, 32-bit ns, wraps mod 2^32)
//	byte 16-19: format-specific field
//	byte 20-21: stream_data_length (big-endian)
//	byte 22-23: format-specific field
type Header struct {
	Subtype            Subtype
	StreamValid        bool
	Version            uint8
	Sequence           uint8
	TimestampUncertain bool
	StreamID           StreamId
	Timestamp          uint32
	FormatSpecific0    uint32
	StreamDataLength   uint16
	FormatSpecific1    uint16
}

// Encode writes h into dst in wire order. dst must be at least HeaderLen
// bytes long.
func (h Header) Encode(dst []byte) error {
	if len(dst) < HeaderLen {
		return ErrInvalidParam
	}
	dst[0] = byte(h.Subtype)
	b1 := (h.Version & 0x7) << 4
	if h.StreamValid {
		b1 |= 0x80
	}
	dst[1] = b1
	dst[2] = h.Sequence
	var b3 byte
	if h.TimestampUncertain {
		b3 = 0x80
	}
	dst[3] = b3
	h.StreamID.PutBytes(dst[4:12])
	binary.BigEndian.PutUint32(dst[12:16], h.Timestamp)
	binary.BigEndian.PutUint32(dst[16:20], h.FormatSpecific0)
	binary.BigEndian.PutUint16(dst[20:22], h.StreamDataLength)
	binary.BigEndian.PutUint16(dst[22:24], h.FormatSpecific1)
	return nil
}

// DecodeHeader parses the 24-byte AVTP common header from src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderLen {
		return Header{}, ErrInvalidParam
	}
	streamID, err := StreamIdFromBytes(src[4:12])
	if err != nil {
		return Header{}, err
	}
	return Header{
		Subtype:            Subtype(src[0]),
		StreamValid:        src[1]&0x80 != 0,
		Version:            (src[1] >> 4) & 0x7,
		Sequence:           src[2],
		TimestampUncertain: src[3]&0x80 != 0,
		StreamID:           streamID,
		Timestamp:          binary.BigEndian.Uint32(src[12:16]),
		FormatSpecific0:    binary.BigEndian.Uint32(src[16:20]),
		StreamDataLength:   binary.BigEndian.Uint16(src[20:22]),
		FormatSpecific1:    binary.BigEndian.Uint16(src[22:24]),
	}, nil
}

// TimestampDelta computes the signed wraparound difference b-a over the
// 32-bit modular AVTP timestamp space, per the spec's "signed-wraparound
// arithmetic" requirement for presentation-time comparisons.
func TimestampDelta(a, b uint32) int32 {
	return int32(b - a)
}
