package audio

import "github.com/avbcore/streamhandler/packetpool"

// PrepareAvbPacket aliases WriteToAvbPacket under the common name the
// transmit sequencer dispatches through across audio/video/crf streams.
func (s *Stream) PrepareAvbPacket(pkt *packetpool.Packet, launchTime uint64) error {
	return s.WriteToAvbPacket(pkt, launchTime)
}

// ReadAvbPacket aliases ReadFromAvbPacket under the common name the receive
// engine dispatches through.
func (s *Stream) ReadAvbPacket(raw []byte) error {
	return s.ReadFromAvbPacket(raw)
}
