package video

// Format is the video payload encoding carried after the AVTP common
// header.
type Format uint8

const (
	// FormatH264RTP is RTP-over-AVTP carrying H.264 (subtype CVF).
	FormatH264RTP Format = iota
	// FormatMPEGTS is IEC61883-6 MPEG-TS with a 4-byte SPH per TS packet
	// (subtype 61883, tag 0x40).
	FormatMPEGTS
)

// Compatibility selects the 61883 CIP framing variant, per spec §3's
// VideoStream compatibility mode {current, D5, D9}.
type Compatibility uint8

const (
	CompatCurrent Compatibility = iota
	CompatD5
	CompatD9
)

// tsPacketLen is one MPEG transport-stream packet.
const tsPacketLen = 188

// sphLen is the source-packet-header prefix IEC61883-6 adds ahead of each
// TS packet.
const sphLen = 4

// sourcePacketLen is sphLen + tsPacketLen, the spec's "multiple of 192
// bytes" payload unit.
const sourcePacketLen = sphLen + tsPacketLen

// cipHeaderLen is the quadlet-based 61883 CIP header preceding the source
// packets.
const cipHeaderLen = 8

// avtpTag identifies an IEC61883-6 MPEG-TS payload, spec §6 "AVTP tag=0x40".
const avtpTag = 0x40
