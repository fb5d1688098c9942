package video

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/packetpool"
)

// WriteMpegTsPacket fills pkt with a 61883-6 MPEG-TS payload: a CIP header
// followed by N source packets (4-byte SPH + 188-byte TS), per spec §4.4's
// MPEG-TS transmit path. sourcePackets must each be exactly
// sourcePacketLen bytes (SPH already prepended by the caller).
func (s *Stream) WriteMpegTsPacket(pkt *packetpool.Packet, refTime uint64, sourcePackets [][]byte) error {
	for _, sp := range sourcePackets {
		if len(sp) != sourcePacketLen {
			return fmt.Errorf("%w: source packet must be %d bytes, got %d", avbtypes.ErrInvalidParam, sourcePacketLen, len(sp))
		}
	}

	payload := pkt.Payload()
	need := cipHeaderLen + len(sourcePackets)*sourcePacketLen
	if len(payload) < need {
		return fmt.Errorf("%w: video packet payload too small for %d source packets", avbtypes.ErrInvalidParam, len(sourcePackets))
	}

	encodeCipHeader(payload[:cipHeaderLen], len(sourcePackets))
	off := cipHeaderLen
	for _, sp := range sourcePackets {
		off += copy(payload[off:], sp)
	}

	hdr := avbtypes.Header{
		Subtype:          avbtypes.SubtypeIec61883,
		StreamValid:      true,
		Sequence:         s.seq,
		StreamID:         s.StreamID(),
		Timestamp:        uint32(refTime),
		StreamDataLength: uint16(need),
		FormatSpecific1:  avtpTag << 8,
	}
	if err := hdr.Encode(pkt.Buf); err != nil {
		return err
	}
	s.seq++
	pkt.Attime = refTime + s.cfg.LaunchDelta
	pkt.Len = pkt.PayloadOffset + need
	return nil
}

// encodeCipHeader writes a minimal quadlet-based 61883 CIP header: fixed
// FN (fragment number, always 0 — TS packets are never fragmented across
// source packets), QPC (quadlet padding count, always 0) and SPH=1 (source
// packet header present), with DBS set to the number of source packets in
// this PDU.
func encodeCipHeader(dst []byte, numSourcePackets int) {
	for i := range dst {
		dst[i] = 0
	}
	dst[1] = byte(numSourcePackets) // DBS
	dst[4] = 0x40                  // FMT=0x20 (MPEG2-TS) shifted, SPH bit set below
	dst[4] |= 0x04                 // SPH=1
	binary.BigEndian.PutUint16(dst[6:8], 0) // DBC/reserved, not tracked by this module
}

// ReadMpegTsPacket parses a received 61883-6 MPEG-TS PDU: skips the CIP
// header (only its length is checked, not its fields) and splits the
// payload back into source packets, discarding (and
// marking the stream Invalid) any PDU whose payload length is not a whole
// number of sourcePacketLen units.
func (s *Stream) ReadMpegTsPacket(raw []byte) ([][]byte, error) {
	hdr, err := avbtypes.DecodeHeader(raw)
	if err != nil {
		s.NoteValidationFailure()
		return nil, err
	}
	if hdr.Subtype != avbtypes.SubtypeIec61883 {
		s.NoteValidationFailure()
		return nil, fmt.Errorf("%w: unexpected mpeg-ts subtype %d", avbtypes.ErrValidationFailed, hdr.Subtype)
	}

	payload := raw[avbtypes.HeaderLen:]
	if len(payload) < int(hdr.StreamDataLength) || int(hdr.StreamDataLength) < cipHeaderLen {
		s.NoteValidationFailure()
		return nil, fmt.Errorf("%w: mpeg-ts payload shorter than declared length", avbtypes.ErrValidationFailed)
	}
	payload = payload[:hdr.StreamDataLength]
	body := payload[cipHeaderLen:]

	if len(body)%sourcePacketLen != 0 {
		s.NoteValidationFailure()
		return nil, fmt.Errorf("%w: mpeg-ts payload not a multiple of %d bytes", avbtypes.ErrValidationFailed, sourcePacketLen)
	}

	n := len(body) / sourcePacketLen
	packets := make([][]byte, n)
	for i := 0; i < n; i++ {
		packets[i] = body[i*sourcePacketLen : (i+1)*sourcePacketLen]
	}
	s.NotePduAccepted(time.Now())
	return packets, nil
}
