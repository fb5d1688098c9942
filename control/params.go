package control

import (
	"time"

	"github.com/avbcore/streamhandler/audio"
	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/crf"
	"github.com/avbcore/streamhandler/video"
)

// ReceiveAudioParams is createReceiveAudioStream's argument set, spec §6.
type ReceiveAudioParams struct {
	Class           avbtypes.SrClass
	MaxChannels     int
	SampleFrequency uint32
	Format          audio.Format
	Compatibility   audio.Compatibility
	StreamID        avbtypes.StreamId // avbtypes.Wildcard accepts any talker
	DMAC            avbtypes.MacAddress
	VlanID          uint16
	Preconfigured   bool
}

// ReceiveVideoParams is createReceiveVideoStream's argument set.
type ReceiveVideoParams struct {
	Class         avbtypes.SrClass
	MaxRate       uint32
	MaxSize       uint32
	Format        video.Format
	Compatibility video.Compatibility
	StreamID      avbtypes.StreamId
	DMAC          avbtypes.MacAddress
	VlanID        uint16
	Preconfigured bool
}

// ReceiveCRFParams is createReceiveClockReferenceStream's argument set.
// ClockDomainKind names which clock.Domain this stream feeds on every
// accepted PDU.
type ReceiveCRFParams struct {
	Class           avbtypes.SrClass
	CrfType         uint8
	StampsPerPdu    int
	StreamID        avbtypes.StreamId
	DMAC            avbtypes.MacAddress
	ClockDomainKind clock.Kind
}

// TransmitAudioParams is createTransmitAudioStream's argument set. StreamID
// left zero auto-assigns StreamID from Config.LocalMAC and an internal
// counter.
type TransmitAudioParams struct {
	Class                  avbtypes.SrClass
	SampleFrequency        uint32
	Format                 audio.Format
	Compatibility          audio.Compatibility
	NumChannels            int
	PresentationTimeOffset time.Duration
	ClockDomainKind        clock.Kind
	DMAC                   avbtypes.MacAddress
	VlanID                 uint16
	StreamID               avbtypes.StreamId
	Preconfigured          bool
}

// TransmitVideoParams is createTransmitVideoStream's argument set.
type TransmitVideoParams struct {
	Class           avbtypes.SrClass
	MaxRate         uint32
	MaxSize         uint32
	Format          video.Format
	Compatibility   video.Compatibility
	LaunchDelta     time.Duration
	ClockDomainKind clock.Kind
	DMAC            avbtypes.MacAddress
	VlanID          uint16
	StreamID        avbtypes.StreamId
	Preconfigured   bool
}

// TransmitCRFParams is createTransmitClockReferenceStream's argument set.
type TransmitCRFParams struct {
	Class             avbtypes.SrClass
	CrfType           uint8
	BaseFreqIndex     uint8
	Pull              crf.PullMultiplier
	TimestampsPerPdu  int
	TimestampInterval uint32
	ClockDomainKind   clock.Kind
	DMAC              avbtypes.MacAddress
	VlanID            uint16
	StreamID          avbtypes.StreamId
	Preconfigured     bool
}

// StreamInfo is getAvbStreamInfo's per-stream result: the lifecycle fields
// every kind shares plus the diagnostic Counters snapshot. Kind names which
// of the original source's outAudioList/outVideoList/outCrfList this entry
// belongs in.
type StreamInfo struct {
	StreamID avbtypes.StreamId
	Kind     string
	Dir      avbtypes.Direction
	Class    avbtypes.SrClass
	State    avbtypes.State
	Counters Counters
}
