package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/sirupsen/logrus"
)

// fifoDepth is the media-clock bending FIFO depth, spec §4.3 "64-entry
// FIFO".
const fifoDepth = 64

// cipHeaderLen is the 8-byte CIP header spec §6 requires between the AVTP
// common header and the payload for IEC 61883-6 audio, matching the
// layout video/mpegts.go's encodeCipHeader uses for 61883-6 video.
const cipHeaderLen = 8

// encodeCipHeader writes a minimal quadlet-based 61883 CIP header for
// audio: DBS set to the number of quadlets per data block (one per wire
// channel), FN/QPC/SPH all zero (audio frames are never fragmented and
// carry no source-packet header).
func encodeCipHeader(dst []byte, wireChannels int) {
	for i := range dst {
		dst[i] = 0
	}
	dst[1] = byte(wireChannels) // DBS
}

// Config carries the init-time parameters spec §4.3's transmit path
// derives sampleIntervalNs and samplesPerPacketPerChannel from.
type Config struct {
	SampleFrequency        uint32
	Format                 Format
	Compatibility          Compatibility
	NumChannels            int
	PresentationTimeOffset uint64 // ns, class-dependent, added to the reference-plane time
	ValidationMode         ValidationMode
	Saturate               bool
	RatioBendRate          float64
	RatioBendLimit         float64
}

// Stream is an AAF/IEC61883-6 audio AVTP stream.
type Stream struct {
	*avtpstream.Base

	cfg Config

	sampleIntervalNs           float64
	samplesPerPacketPerChannel int

	seq                 uint8
	haveSeq             bool
	anchored            bool
	refPlaneSampleCount uint64
	refPlaneSampleTime  uint64
	packetLaunchTime    uint64

	badSequenceRun int
	validatedOnce  bool

	fillFifo [fifoDepth]int64
	fillSum  int64
	fillIdx  int

	buffer LocalBuffer
}

// New constructs an audio Stream from a base and config, computing the
// derived per-packet sample count per spec §4.3's init step.
func New(base *avtpstream.Base, cfg Config, buffer LocalBuffer) (*Stream, error) {
	if cfg.SampleFrequency == 0 {
		return nil, fmt.Errorf("%w: audio sampleFrequency must be nonzero", avbtypes.ErrInvalidParam)
	}
	if cfg.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: audio numChannels must be positive", avbtypes.ErrInvalidParam)
	}
	pps := base.TSpec().PacketsPerSecond
	if pps == 0 {
		return nil, fmt.Errorf("%w: audio stream tspec packetsPerSecond must be nonzero", avbtypes.ErrInvalidParam)
	}
	samplesPerPacket := int(math.Ceil(float64(cfg.SampleFrequency) / float64(pps)))

	return &Stream{
		Base:                       base,
		cfg:                        cfg,
		sampleIntervalNs:           1e9 / float64(cfg.SampleFrequency),
		samplesPerPacketPerChannel: samplesPerPacket,
		buffer:                     buffer,
	}, nil
}

// SamplesPerPacketPerChannel exposes the derived per-packet sample count.
func (s *Stream) SamplesPerPacketPerChannel() int {
	return s.samplesPerPacketPerChannel
}

// resetTime re-anchors the reference plane: queries the clock domain for a
// reference event count and PTP time, matching spec §4.3 step 1.
func (s *Stream) resetTime(nextWindowStart uint64) {
	cd := s.ClockDomain()
	var refCount uint64
	if cd != nil {
		refCount = cd.EventCount(nextWindowStart)
	}
	s.refPlaneSampleCount = refCount
	s.refPlaneSampleTime = nextWindowStart
	s.packetLaunchTime = s.refPlaneSampleTime + s.cfg.PresentationTimeOffset
	s.anchored = true
}

// WriteToAvbPacket fills pkt with the next packet's worth of audio data for
// transmit, following spec §4.3's five transmit steps.
func (s *Stream) WriteToAvbPacket(pkt *packetpool.Packet, nextWindowStart uint64) error {
	if !s.anchored {
		s.resetTime(nextWindowStart)
	}

	n := s.samplesPerPacketPerChannel
	samples, got := s.buffer.PullSamples(n, s.cfg.NumChannels)
	if got < n {
		// Pad with silence (dummy samples); the stream stays live and the
		// shortfall is not reported to the caller.
		pad := make([]int32, (n-got)*s.cfg.NumChannels)
		samples = append(samples, pad...)
	}

	sampleSize := s.cfg.Format.SampleSize()
	payload := pkt.Payload()
	samplesLen := n * s.cfg.NumChannels * sampleSize

	cipLen := 0
	if s.cfg.Format == FormatIec61883_6 {
		cipLen = cipHeaderLen
	}
	need := cipLen + samplesLen
	if len(payload) < need {
		return fmt.Errorf("%w: audio packet payload too small for %d samples", avbtypes.ErrInvalidParam, n)
	}
	if cipLen > 0 {
		encodeCipHeader(payload[:cipHeaderLen], s.cfg.NumChannels)
	}
	off := cipLen
	for _, sm := range samples[:n*s.cfg.NumChannels] {
		EncodeSample(payload[off:], s.cfg.Format, sm, s.cfg.Saturate)
		off += sampleSize
	}

	freqCode, ok := FrequencyCode(s.cfg.SampleFrequency)
	if !ok {
		return fmt.Errorf("%w: audio stream has no wire frequency code for %d Hz", avbtypes.ErrInvalidParam, s.cfg.SampleFrequency)
	}
	formatSpecific0 := uint32(s.cfg.Format.WireFormatCode())<<24 | uint32(freqCode)<<16 | uint32(s.cfg.NumChannels)&0xffff

	hdr := avbtypes.Header{
		Subtype:          subtypeFor(s.cfg.Format),
		StreamValid:      true,
		Sequence:         s.seq,
		StreamID:         s.StreamID(),
		Timestamp:        uint32(s.packetLaunchTime),
		FormatSpecific0:  formatSpecific0,
		StreamDataLength: uint16(need),
	}
	if err := hdr.Encode(pkt.Buf); err != nil {
		return err
	}
	s.seq++
	pkt.Attime = s.packetLaunchTime
	pkt.Len = pkt.PayloadOffset + need

	s.refPlaneSampleCount += uint64(n)
	s.packetLaunchTime += uint64(float64(n) * s.sampleIntervalNs)
	return nil
}

func subtypeFor(f Format) avbtypes.Subtype {
	if f == FormatIec61883_6 {
		return avbtypes.SubtypeIec61883
	}
	return avbtypes.SubtypeAAF
}

// UpdateRelativeFillLevel feeds delta into the 64-entry drift-correction
// FIFO, per spec §4.3's media-clock bending algorithm, and returns the
// current PPM correction capped at RatioBendLimit.
func (s *Stream) UpdateRelativeFillLevel(delta int64) float64 {
	old := s.fillFifo[s.fillIdx]
	s.fillFifo[s.fillIdx] = delta
	s.fillSum += delta - old
	s.fillIdx = (s.fillIdx + 1) % fifoDepth

	avg := float64(s.fillSum) / float64(fifoDepth)
	ppm := avg * s.cfg.RatioBendRate
	if s.cfg.RatioBendLimit > 0 {
		if ppm > s.cfg.RatioBendLimit {
			ppm = s.cfg.RatioBendLimit
		}
		if ppm < -s.cfg.RatioBendLimit {
			ppm = -s.cfg.RatioBendLimit
		}
	}
	s.sampleIntervalNs = (1e9 / float64(s.cfg.SampleFrequency)) * (1 + ppm/1e6)
	return ppm
}

// ReadFromAvbPacket validates and decodes one received PDU, per spec
// §4.3's six receive steps.
func (s *Stream) ReadFromAvbPacket(raw []byte) error {
	hdr, err := avbtypes.DecodeHeader(raw)
	if err != nil {
		s.NoteValidationFailure()
		return err
	}

	if s.haveSeq && hdr.Sequence != s.seq+1 {
		s.badSequenceRun++
		if s.badSequenceRun >= maxConsecutiveBadSequence {
			s.NoteValidationFailure()
			logStreamEvent(s.StreamID(), "audio stream marked invalid after consecutive sequence gaps")
			return fmt.Errorf("%w: audio sequence mismatch", avbtypes.ErrValidationFailed)
		}
	} else {
		s.badSequenceRun = 0
	}
	s.seq = hdr.Sequence
	s.haveSeq = true

	if s.shouldValidateFormat() {
		wantCode := s.cfg.Format.WireFormatCode()
		wantFreqCode, ok := FrequencyCode(s.cfg.SampleFrequency)
		if !ok {
			s.NoteValidationFailure()
			return fmt.Errorf("%w: audio stream has no wire frequency code for %d Hz", avbtypes.ErrInvalidParam, s.cfg.SampleFrequency)
		}
		gotCode := uint8(hdr.FormatSpecific0 >> 24)
		gotFreqCode := uint8(hdr.FormatSpecific0 >> 16)
		if gotCode != wantCode || gotFreqCode != wantFreqCode {
			s.NoteValidationFailure()
			return fmt.Errorf("%w: audio format/frequency code mismatch", avbtypes.ErrValidationFailed)
		}
		s.validatedOnce = true
	}

	sampleSize := s.cfg.Format.SampleSize()
	if sampleSize == 0 || s.cfg.NumChannels <= 0 {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: audio stream misconfigured", avbtypes.ErrInvalidParam)
	}
	wireChannels := s.cfg.NumChannels
	if s.cfg.Compatibility == CompatD6_1722a {
		wireChannels++ // one extra pseudo-channel carries the side channel
	}

	cipLen := 0
	if s.cfg.Format == FormatIec61883_6 {
		cipLen = cipHeaderLen
	}
	if int(hdr.StreamDataLength) < cipLen {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: audio stream_data_length shorter than the CIP header", avbtypes.ErrValidationFailed)
	}
	samplesLen := int(hdr.StreamDataLength) - cipLen

	bytesPerFrame := sampleSize * wireChannels
	if bytesPerFrame == 0 || samplesLen%bytesPerFrame != 0 {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: audio stream_data_length not a multiple of frame size", avbtypes.ErrValidationFailed)
	}
	sampleCount := samplesLen / bytesPerFrame

	payload := raw[avbtypes.HeaderLen:]
	if len(payload) < int(hdr.StreamDataLength) {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: audio payload shorter than stream_data_length", avbtypes.ErrValidationFailed)
	}
	payload = payload[cipLen:]

	if cd := s.ClockDomain(); cd != nil && cd.Variant() == clock.KindRxRecovered {
		cd.Feed(uint64(hdr.Timestamp), uint64(sampleCount))
	}

	samples := make([]int32, sampleCount*s.cfg.NumChannels)
	off := 0
	si := 0
	for i := 0; i < sampleCount; i++ {
		for c := 0; c < wireChannels; c++ {
			v := DecodeSample(payload[off:], s.cfg.Format)
			off += sampleSize
			if s.cfg.Compatibility == CompatD6_1722a && c == wireChannels-1 {
				continue // side channel, stripped per spec §4.3
			}
			samples[si] = v
			si++
		}
	}

	s.buffer.PushSamples(samples, s.cfg.NumChannels)
	s.NotePduAccepted(time.Now())
	return nil
}

func (s *Stream) shouldValidateFormat() bool {
	switch s.cfg.ValidationMode {
	case ValidateAlways:
		return true
	case ValidateOnce:
		return !s.validatedOnce
	default:
		return false
	}
}

// logStreamEvent is a small helper matching the teacher's structured
// logging convention for audio-stream diagnostics.
func logStreamEvent(id avbtypes.StreamId, msg string) {
	logrus.WithFields(logrus.Fields{"stream_id": id}).Debug(msg)
}
