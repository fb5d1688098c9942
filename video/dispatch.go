package video

import (
	"fmt"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/packetpool"
)

// PrepareAvbPacket is the format-polymorphic entry point the transmit
// sequencer calls (spec §4.7 step 2's "stream.preparePacket"): it dispatches
// to the H.264/RTP or MPEG-TS/61883 transmit path based on cfg.Format, so
// the sequencer itself never needs to know which video subtype it is
// driving, matching the avbtypes.Subtype-tagged closed variant set the
// design notes call for instead of open polymorphism.
func (s *Stream) PrepareAvbPacket(pkt *packetpool.Packet, refTime uint64) error {
	switch s.cfg.Format {
	case FormatMPEGTS:
		return s.prepareMpegTsFromBuffer(pkt, refTime)
	default:
		return s.PreparePacket(pkt, refTime)
	}
}

// prepareMpegTsFromBuffer pops one descriptor from the local buffer (its
// Payload already a whole multiple of sourcePacketLen) and encodes it as a
// 61883-6 MPEG-TS PDU, or emits a dummy packet if nothing is queued —
// mirroring PreparePacket's dummy-packet rule for the RTP path.
func (s *Stream) prepareMpegTsFromBuffer(pkt *packetpool.Packet, refTime uint64) error {
	desc, ok := s.buffer.PopDescriptor()
	if !ok {
		pkt.MakeDummy()
		pkt.Attime = refTime + s.cfg.LaunchDelta
		return nil
	}
	if len(desc.Payload)%sourcePacketLen != 0 {
		return fmt.Errorf("%w: mpeg-ts descriptor payload not a multiple of %d bytes", avbtypes.ErrInvalidParam, sourcePacketLen)
	}
	n := len(desc.Payload) / sourcePacketLen
	sourcePackets := make([][]byte, n)
	for i := 0; i < n; i++ {
		sourcePackets[i] = desc.Payload[i*sourcePacketLen : (i+1)*sourcePacketLen]
	}
	return s.WriteMpegTsPacket(pkt, refTime, sourcePackets)
}

// ReadAvbPacket is the format-polymorphic receive entry point the receive
// engine calls.
func (s *Stream) ReadAvbPacket(raw []byte) error {
	if s.cfg.Format == FormatMPEGTS {
		_, err := s.ReadMpegTsPacket(raw)
		return err
	}
	return s.ReadFromAvbPacket(raw)
}
