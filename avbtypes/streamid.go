package avbtypes

import "encoding/binary"

// StreamId is the 64-bit AVTP stream identifier: the top 48 bits are
// conventionally the talker's MAC address and the low 16 bits a per-talker
// unique id, but this package treats it as an opaque totally-ordered value.
// The zero StreamId is the wildcard used by receive streams that accept any
// talker.
type StreamId uint64

// Wildcard is the zero StreamId, matched by a receive stream configured to
// accept any talker.
const Wildcard StreamId = 0

// IsWildcard reports whether id is the wildcard value.
func (id StreamId) IsWildcard() bool {
	return id == Wildcard
}

// NewStreamId builds a StreamId from a talker MAC address and a per-talker
// unique id, matching the wire layout (48-bit MAC, 16-bit unique id).
func NewStreamId(mac MacAddress, uniqueID uint16) StreamId {
	var b [8]byte
	copy(b[0:6], mac[:])
	binary.BigEndian.PutUint16(b[6:8], uniqueID)
	return StreamId(binary.BigEndian.Uint64(b[:]))
}

// MacAddress extracts the talker MAC from the conventional StreamId layout.
func (id StreamId) MacAddress() MacAddress {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	var m MacAddress
	copy(m[:], b[0:6])
	return m
}

// UniqueID extracts the per-talker unique id from the conventional StreamId
// layout.
func (id StreamId) UniqueID() uint16 {
	return uint16(id & 0xffff)
}

// PutBytes encodes id into dst as 8 big-endian bytes. dst must be at least
// 8 bytes long.
func (id StreamId) PutBytes(dst []byte) {
	binary.BigEndian.PutUint64(dst, uint64(id))
}

// StreamIdFromBytes decodes a StreamId from 8 big-endian bytes.
func StreamIdFromBytes(src []byte) (StreamId, error) {
	if len(src) < 8 {
		return 0, ErrInvalidParam
	}
	return StreamId(binary.BigEndian.Uint64(src)), nil
}
