package nic

import "github.com/avbcore/streamhandler/avbtypes"

// LinkRate is a link speed the credit-based shaper programs against.
type LinkRate uint64

const (
	LinkRate100M LinkRate = 100_000_000
	LinkRate1G   LinkRate = 1_000_000_000
)

// ShaperCredits is one queue's programmed credit-based-shaper parameters,
// standing in for the TQAVHC/TQAVCC/TQAVCTRL registers named in SPEC_FULL
// §4.7 — register I/O itself stays opaque per §1.
type ShaperCredits struct {
	IdleSlopeBps int64 // credits/sec while the queue has packets queued
	HiCreditBits int64
	LoCreditBits int64
}

// ShaperProgrammer is the per-queue credit shaper the transmit sequencer
// drives when SPEC_FULL's cXmitUseShaper is enabled. A no-op implementation
// is the module default; a raw-register implementation can be substituted
// without the sequencer knowing the difference.
type ShaperProgrammer interface {
	Program(queue int, credits ShaperCredits) error
}

// NoopShaper discards every Program call; used when cXmitUseShaper is 0 or
// no hardware-specific programmer has been wired in.
type NoopShaper struct{}

func (NoopShaper) Program(queue int, credits ShaperCredits) error { return nil }

// ComputeShaperCredits derives the idle slope and hi-credit for one SR
// class from its active streams' required bandwidth, following
// original_source's IasAvbTransmitSequencer::updateShaper formula. For
// class B (queue 1), classABandwidthBps and classAMaxFrameSize subtract
// class A's idle slope and add its max frame size to account for class A's
// strict-priority arbitration ahead of class B, per spec §4.7.
func ComputeShaperCredits(rate LinkRate, classBandwidthBps int64, maxInterferingFrameSize uint16, classABandwidthBps int64, classAMaxFrameSize uint16, isClassB bool) ShaperCredits {
	idleSlope := classBandwidthBps
	interferingBytes := int64(maxInterferingFrameSize)
	if isClassB {
		idleSlope -= classABandwidthBps
		if idleSlope < 0 {
			idleSlope = 0
		}
		interferingBytes += int64(classAMaxFrameSize)
	}

	sendSlope := idleSlope - int64(rate)
	hiCredit := interferingBytes * 8 * idleSlope / int64(rate)
	loCredit := interferingBytes * 8 * sendSlope / int64(rate)

	return ShaperCredits{
		IdleSlopeBps: idleSlope,
		HiCreditBits: hiCredit,
		LoCreditBits: loCredit,
	}
}

// SumBandwidth totals the required bandwidth (bits/sec) of a set of
// TSpecs, the numerator ComputeShaperCredits' classBandwidthBps expects.
func SumBandwidth(specs []avbtypes.TSpec) int64 {
	var total int64
	for _, t := range specs {
		total += int64(t.RequiredBandwidth()) * 1000 // RequiredBandwidth is kbit/s
	}
	return total
}
