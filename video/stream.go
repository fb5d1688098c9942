package video

import (
	"fmt"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// defaultMsgCountMax is the default sequence-error budget per observation
// window, spec §4.4 "msgCountMax sequence errors ... in one observation
// interval (default 1 s)".
const defaultMsgCountMax = 10

// observationWindow is the sequence-error counting window.
const observationWindow = 1 * time.Second

// Config carries the init-time parameters for a video stream.
type Config struct {
	Format        Format
	Compatibility Compatibility
	MaxPacketRate uint32
	MaxPacketSize uint32
	LaunchDelta   uint64 // ns, per-class lead time added to refTime
	MsgCountMax   int
}

// Stream is an H.264/RTP or MPEG-TS/61883 video AVTP stream.
type Stream struct {
	*avtpstream.Base

	cfg Config

	seq uint8 // AVTP 8-bit sequence

	lastRtpSeq     uint16
	haveLastRtpSeq bool

	rtpHighByte uint16 // rolling upper-bits reconstruction for AVTP's 8-bit sequence
	rolling     uint16 // last reconstructed full 16-bit sequence
	haveRolling bool

	seqErrorCount      int
	seqErrorWindowFrom time.Time

	buffer LocalBuffer
}

// New constructs a video Stream.
func New(base *avtpstream.Base, cfg Config, buffer LocalBuffer) *Stream {
	if cfg.MsgCountMax == 0 {
		cfg.MsgCountMax = defaultMsgCountMax
	}
	return &Stream{Base: base, cfg: cfg, buffer: buffer}
}

// PreparePacket fills pkt for transmit, following spec §4.4's four
// transmit steps (H.264/RTP framing; MPEG-TS uses WriteMpegTsPacket
// instead).
func (s *Stream) PreparePacket(pkt *packetpool.Packet, refTime uint64) error {
	desc, ok := s.buffer.PopDescriptor()
	if !ok {
		pkt.MakeDummy()
		pkt.Attime = refTime + s.cfg.LaunchDelta
		return nil
	}

	if s.haveLastRtpSeq && s.lastRtpSeq != 0 && desc.RTPSequence != s.lastRtpSeq+1 {
		s.noteSequenceError()
	}
	s.lastRtpSeq = desc.RTPSequence
	s.haveLastRtpSeq = true

	rtpPkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         desc.Marker,
			SequenceNumber: desc.RTPSequence,
			Timestamp:      desc.RTPTimestamp,
		},
		Payload: desc.Payload,
	}
	rtpBytes, err := rtpPkt.Marshal()
	if err != nil {
		return fmt.Errorf("video: marshal rtp packet: %w", err)
	}

	payload := pkt.Payload()
	if len(payload) < len(rtpBytes) {
		return fmt.Errorf("%w: video packet payload too small", avbtypes.ErrInvalidParam)
	}
	n := copy(payload, rtpBytes)

	hdr := avbtypes.Header{
		Subtype:          avbtypes.SubtypeCVF,
		StreamValid:      true,
		Sequence:         s.seq,
		TimestampUncertain: false,
		StreamID:         s.StreamID(),
		Timestamp:        desc.RTPTimestamp,
		StreamDataLength: uint16(n),
	}
	if desc.Marker {
		hdr.FormatSpecific1 |= 0x1 // mpt bit mirrors the RTP marker
	}
	if err := hdr.Encode(pkt.Buf); err != nil {
		return err
	}
	s.seq++
	pkt.Attime = refTime + s.cfg.LaunchDelta
	pkt.Len = pkt.PayloadOffset + n
	return nil
}

// noteSequenceError increments the sliding-window sequence-error counter
// and resets the stream if the per-second budget is exceeded, per spec
// §4.4.
func (s *Stream) noteSequenceError() {
	now := time.Now()
	if now.Sub(s.seqErrorWindowFrom) > observationWindow {
		s.seqErrorWindowFrom = now
		s.seqErrorCount = 0
	}
	s.seqErrorCount++
	if s.seqErrorCount > s.cfg.MsgCountMax {
		s.resetStream()
	}
}

// resetStream clears rolling sequence tracking, matching spec §4.4's
// "reset the stream" on excessive sequence errors within one observation
// window. Lifecycle state (Valid/Invalid/NoData) is untouched; only the
// stream's own sequence bookkeeping is cleared.
func (s *Stream) resetStream() {
	s.haveLastRtpSeq = false
	s.rtpHighByte = 0
	s.seqErrorCount = 0
	logrus.WithFields(logrus.Fields{"stream_id": s.StreamID()}).Warn("video stream reset after excessive sequence errors")
}

// ReadFromAvbPacket parses a received RTP-over-AVTP PDU, reconstructs the
// RTP sequence high byte from the AVTP 8-bit sequence, and delivers a
// Descriptor to the local buffer.
func (s *Stream) ReadFromAvbPacket(raw []byte) error {
	hdr, err := avbtypes.DecodeHeader(raw)
	if err != nil {
		s.NoteValidationFailure()
		return err
	}
	if hdr.Subtype != avbtypes.SubtypeCVF {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: unexpected video subtype %d", avbtypes.ErrValidationFailed, hdr.Subtype)
	}

	payload := raw[avbtypes.HeaderLen:]
	if len(payload) < int(hdr.StreamDataLength) {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: video payload shorter than stream_data_length", avbtypes.ErrValidationFailed)
	}
	payload = payload[:hdr.StreamDataLength]

	rtpPkt := &rtp.Packet{}
	if err := rtpPkt.Unmarshal(payload); err != nil {
		s.NoteValidationFailure()
		return fmt.Errorf("video: unmarshal rtp packet: %w", err)
	}

	// The AVTP common header's own sequence field is only 8 bits; it
	// increments once per PDU (one RTP packet per PDU), so it is used as
	// the low byte of a reconstructed rolling 16-bit packet count rather
	// than trusting the RTP header's own (independently wrapping)
	// sequence number.
	fullSeq := s.reconstructSequence(uint16(hdr.Sequence))

	s.buffer.PushDescriptor(Descriptor{
		Payload:      rtpPkt.Payload,
		RTPSequence:  fullSeq,
		RTPTimestamp: rtpPkt.Timestamp,
		Marker:       rtpPkt.Marker,
	})
	s.NotePduAccepted(time.Now())
	return nil
}

// reconstructSequence maintains a rolling 16-bit RTP sequence given only
// the low 8 bits the AVTP sequence actually carries: it compares the new
// low byte against the previous full sequence's low byte and bumps the
// rolling high byte whenever the low byte wraps, using the same
// wraparound-distance idiom as an RTP sequence-number-less-than
// comparison.
func (s *Stream) reconstructSequence(low8 uint16) uint16 {
	low8 &= 0xff
	if s.haveRolling {
		prevLow8 := s.rolling & 0xff
		switch {
		case low8 < prevLow8 && prevLow8-low8 > 0x80:
			s.rtpHighByte += 0x100
		case low8 > prevLow8 && low8-prevLow8 > 0x80:
			s.rtpHighByte -= 0x100
		}
	}
	full := s.rtpHighByte | low8
	s.rolling = full
	s.haveRolling = true
	return full
}
