package crf

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/packetpool"
)

// PullMultiplier is the CRF pull field, spec §4.5 "pull multiplier
// (flat/+0.1%/−0.1%/+4.1667%/−4.1667%)".
type PullMultiplier uint8

const (
	PullFlat PullMultiplier = iota
	PullPlus01Pct
	PullMinus01Pct
	PullPlus4_1667Pct
	PullMinus4_1667Pct
)

// ratio returns the multiplicative factor a pull multiplier applies to the
// nominal base frequency.
func (p PullMultiplier) ratio() float64 {
	switch p {
	case PullPlus01Pct:
		return 1.001
	case PullMinus01Pct:
		return 0.999
	case PullPlus4_1667Pct:
		return 1.0416667
	case PullMinus4_1667Pct:
		return 0.9583333
	default:
		return 1.0
	}
}

// baseFrequencyTable maps the CRF base-frequency index to Hz, per spec
// §4.5's "{8k, 16k, 32k, 44.1k, 88.2k, 176.4k, 48k, 96k, 192k} indexed 1..9".
var baseFrequencyTable = map[uint8]uint32{
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

// BaseFrequencyFromIndex resolves the table index to Hz.
func BaseFrequencyFromIndex(idx uint8) (uint32, bool) {
	hz, ok := baseFrequencyTable[idx]
	return hz, ok
}

// BaseFrequencyIndex resolves a Hz value back to its table index.
func BaseFrequencyIndex(hz uint32) (uint8, bool) {
	for idx, f := range baseFrequencyTable {
		if f == hz {
			return idx, true
		}
	}
	return 0, false
}

// Config carries CRF-specific init parameters.
type Config struct {
	CrfType           uint8
	BaseFreqIndex     uint8
	Pull              PullMultiplier
	TimestampsPerPdu  int
	TimestampInterval uint32 // in base-frequency ticks
}

// Stream is a Clock Reference Format AVTP stream.
type Stream struct {
	*avtpstream.Base

	cfg Config

	lastEpoch uint64
	mrToggle  bool
}

// New constructs a CRF stream.
func New(base *avtpstream.Base, cfg Config) (*Stream, error) {
	if cfg.TimestampsPerPdu <= 0 {
		return nil, fmt.Errorf("%w: crf timestampsPerPdu must be positive", avbtypes.ErrInvalidParam)
	}
	if _, ok := BaseFrequencyFromIndex(cfg.BaseFreqIndex); !ok {
		return nil, fmt.Errorf("%w: crf unknown base frequency index %d", avbtypes.ErrInvalidParam, cfg.BaseFreqIndex)
	}
	return &Stream{Base: base, cfg: cfg}, nil
}

// WriteToAvbPacket computes the timestamp vector for this service cycle
// and encodes it into pkt, per spec §4.5's transmit formula:
// refPlaneEventTime + k*timestampInterval*1e9/baseFreq for k=0..stampsPerPdu-1.
func (s *Stream) WriteToAvbPacket(pkt *packetpool.Packet, refPlaneEventTime uint64) error {
	baseFreq, _ := BaseFrequencyFromIndex(s.cfg.BaseFreqIndex)
	scaledFreq := float64(baseFreq) * s.cfg.Pull.ratio()

	payload := pkt.Payload()
	need := s.cfg.TimestampsPerPdu * 8
	if len(payload) < need {
		return fmt.Errorf("%w: crf packet payload too small for %d timestamps", avbtypes.ErrInvalidParam, s.cfg.TimestampsPerPdu)
	}
	for k := 0; k < s.cfg.TimestampsPerPdu; k++ {
		ts := refPlaneEventTime + uint64(float64(k)*float64(s.cfg.TimestampInterval)*1e9/scaledFreq)
		binary.BigEndian.PutUint64(payload[k*8:], ts)
	}

	mr := false
	if cd := s.ClockDomain(); cd != nil {
		epoch := cd.Epoch()
		if epoch != s.lastEpoch {
			s.lastEpoch = epoch
			mr = true
		}
	}

	hdr := avbtypes.Header{
		Subtype:          avbtypes.SubtypeCRF,
		StreamValid:      true,
		StreamID:         s.StreamID(),
		Timestamp:        uint32(refPlaneEventTime),
		FormatSpecific0:  uint32(s.cfg.CrfType)<<24 | uint32(s.cfg.Pull)<<16 | uint32(s.cfg.BaseFreqIndex),
		StreamDataLength: uint16(need),
		FormatSpecific1:  uint16(s.cfg.TimestampsPerPdu),
	}
	if mr {
		hdr.FormatSpecific1 |= 0x8000
	}
	if err := hdr.Encode(pkt.Buf); err != nil {
		return err
	}
	pkt.Attime = refPlaneEventTime
	pkt.Len = pkt.PayloadOffset + need
	return nil
}

// ReadFromAvbPacket validates and decodes a received CRF PDU, feeding the
// timestamp vector (or just its first entry, on a media-clock-restart
// toggle change) to the clock domain, per spec §4.5's receive steps.
func (s *Stream) ReadFromAvbPacket(raw []byte) error {
	hdr, err := avbtypes.DecodeHeader(raw)
	if err != nil {
		s.NoteValidationFailure()
		return err
	}
	if hdr.Subtype != avbtypes.SubtypeCRF {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: unexpected crf subtype %d", avbtypes.ErrValidationFailed, hdr.Subtype)
	}
	if int(hdr.StreamDataLength)%8 != 0 {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: crf payload length not a multiple of 8", avbtypes.ErrValidationFailed)
	}

	payload := raw[avbtypes.HeaderLen:]
	if len(payload) < int(hdr.StreamDataLength) {
		s.NoteValidationFailure()
		return fmt.Errorf("%w: crf payload shorter than declared length", avbtypes.ErrValidationFailed)
	}
	n := int(hdr.StreamDataLength) / 8
	vector := make([]uint64, n)
	for i := 0; i < n; i++ {
		vector[i] = binary.BigEndian.Uint64(payload[i*8:])
	}

	mrChanged := hdr.FormatSpecific1&0x8000 != 0

	cd := s.ClockDomain()
	if cd != nil {
		if mrChanged {
			cd.RequestReset()
			if n > 0 {
				cd.Feed(vector[0], 0)
			}
		} else {
			for i, ts := range vector {
				cd.Feed(ts, uint64(i))
			}
		}
	}

	s.NotePduAccepted(time.Now())
	return nil
}
