package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind is the clock domain variant.
type Kind uint8

const (
	// KindPTP tracks gPTP directly via a PtpSource.
	KindPTP Kind = iota
	// KindHwCapture tracks a hardware capture timestamp event stream (e.g.
	// a clock recovered from a capture pin).
	KindHwCapture
	// KindRxRecovered derives its rate from received (timestamp,
	// sampleCount) pairs, driving a software PLL.
	KindRxRecovered
	// KindRaw is a free-running local clock with no external reference.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindPTP:
		return "ptp"
	case KindHwCapture:
		return "hw-capture"
	case KindRxRecovered:
		return "rx-recovered"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// LockState is the synchronization state of a Domain.
type LockState uint8

const (
	LockInit LockState = iota
	LockUnlocked
	LockLocking
	LockLocked
)

func (s LockState) String() string {
	switch s {
	case LockInit:
		return "init"
	case LockUnlocked:
		return "unlocked"
	case LockLocking:
		return "locking"
	case LockLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// PtpSource is the external gPTP time reference this module consumes. It is
// never implemented by this module — the PTP daemon/stack is an external
// collaborator per the system's scope.
type PtpSource interface {
	// Now returns the current PTP time in nanoseconds.
	Now() uint64
	// EpochCounter returns a counter bumped by the PTP implementation
	// whenever its time reference jumps (e.g. a BMCA grandmaster change).
	EpochCounter() uint64
}

// Domain is a ClockDomain: a monotonic event counter with an associated
// rate, lock state and epoch, used by stream state machines to anchor
// sample counts and packet launch times.
type Domain struct {
	kind    PtpSource
	variant Kind

	mu            sync.Mutex
	rate          float64 // events per second
	lockState     LockState
	epoch         uint64
	lastEpochSeen uint64

	// RxRecovered PLL state: the last observed (ptpTime, eventCount) pair
	// anchors subsequent eventCount(t) extrapolation.
	anchorPtpTime uint64
	anchorEvents  uint64
	lockedSamples int
}

// lockThreshold is the number of consecutive consistent Feed calls needed
// to transition RxRecovered from Locking to Locked.
const lockThreshold = 4

// NewPTP returns a Domain directly tracking src at eventRate events/sec.
func NewPTP(src PtpSource, eventRate float64) *Domain {
	return &Domain{kind: src, variant: KindPTP, rate: eventRate, lockState: LockLocked}
}

// NewRaw returns a free-running Domain with no external reference,
// anchored to the provided PtpSource only for wall-clock readout.
func NewRaw(src PtpSource, eventRate float64) *Domain {
	return &Domain{kind: src, variant: KindRaw, rate: eventRate, lockState: LockLocked}
}

// NewHwCapture returns a Domain tracking a hardware capture event stream;
// callers drive it with Feed the same way as RxRecovered.
func NewHwCapture(src PtpSource, eventRate float64) *Domain {
	return &Domain{kind: src, variant: KindHwCapture, rate: eventRate, lockState: LockUnlocked}
}

// NewRxRecovered returns a Domain whose rate is derived entirely from Feed
// calls driven by received presentation-timestamp/sample-count pairs.
func NewRxRecovered(src PtpSource, nominalRate float64) *Domain {
	return &Domain{kind: src, variant: KindRxRecovered, rate: nominalRate, lockState: LockInit}
}

// Variant reports which ClockDomain kind this is.
func (d *Domain) Variant() Kind {
	return d.variant
}

// EventRate returns the current rate in events/second.
func (d *Domain) EventRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// LockState returns the current synchronization state.
func (d *Domain) LockState() LockState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lockState
}

// Epoch returns the counter bumped whenever the underlying time reference
// jumps.
func (d *Domain) Epoch() uint64 {
	return atomic.LoadUint64(&d.epoch)
}

// checkEpochLocked must be called with d.mu held; it observes the
// underlying PtpSource's epoch counter and bumps Domain's own epoch (and
// resets RxRecovered lock state) on a jump.
func (d *Domain) checkEpochLocked() {
	if d.kind == nil {
		return
	}
	cur := d.kind.EpochCounter()
	if cur != d.lastEpochSeen {
		d.lastEpochSeen = cur
		atomic.AddUint64(&d.epoch, 1)
		if d.variant == KindRxRecovered || d.variant == KindHwCapture {
			d.lockState = LockInit
			d.lockedSamples = 0
		}
	}
}

// EventCount returns the monotonic tick count as of ptpTimeNs, extrapolated
// from the domain's anchor (for RxRecovered/HwCapture) or computed directly
// from the PtpSource (for PTP/Raw).
func (d *Domain) EventCount(ptpTimeNs uint64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkEpochLocked()
	switch d.variant {
	case KindPTP, KindRaw:
		return uint64(float64(ptpTimeNs) * d.rate / 1e9)
	default:
		if d.lockState == LockInit {
			return 0
		}
		deltaNs := int64(ptpTimeNs) - int64(d.anchorPtpTime)
		deltaEvents := int64(float64(deltaNs) * d.rate / 1e9)
		return uint64(int64(d.anchorEvents) + deltaEvents)
	}
}

// Now returns the underlying PtpSource's current time, or 0 if this domain
// has no PtpSource (should not happen in practice; Domains are always
// constructed with one).
func (d *Domain) Now() uint64 {
	if d.kind == nil {
		return 0
	}
	return d.kind.Now()
}

// Feed drives an RxRecovered (or HwCapture) domain's PLL with an observed
// (presentationTimestamp, eventCount) pair, per spec §4.3's "feed
// (presentation-timestamp, sample-count) pairs to drive its loop". The
// presentation timestamp is the 32-bit wrapped low bits of PTP time; the
// caller is expected to have already reconstructed the full 64-bit value
// using avbtypes.TimestampDelta against the previous anchor.
func (d *Domain) Feed(ptpTimeNs uint64, eventCount uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkEpochLocked()

	if d.lockState == LockInit {
		d.anchorPtpTime = ptpTimeNs
		d.anchorEvents = eventCount
		d.lockState = LockLocking
		d.lockedSamples = 0
		return
	}

	predicted := d.EventCountLocked(ptpTimeNs)
	const toleranceEvents = 2
	diff := int64(eventCount) - int64(predicted)
	if diff < 0 {
		diff = -diff
	}
	if diff <= toleranceEvents {
		d.lockedSamples++
		if d.lockedSamples >= lockThreshold {
			d.lockState = LockLocked
		}
	} else {
		d.lockedSamples = 0
		d.lockState = LockLocking
	}
	d.anchorPtpTime = ptpTimeNs
	d.anchorEvents = eventCount
}

// EventCountLocked is EventCount's extrapolation step without the epoch
// check or locking, for internal reuse inside Feed (which already holds
// d.mu).
func (d *Domain) EventCountLocked(ptpTimeNs uint64) uint64 {
	if d.lockState == LockInit {
		return 0
	}
	deltaNs := int64(ptpTimeNs) - int64(d.anchorPtpTime)
	deltaEvents := int64(float64(deltaNs) * d.rate / 1e9)
	return uint64(int64(d.anchorEvents) + deltaEvents)
}

// RequestReset forces the domain back to LockInit, used when a stream
// observes the media-clock-restart toggle change (spec §4.3's "On `mr` bit
// change, request a clock-domain reset").
func (d *Domain) RequestReset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lockState = LockInit
	d.lockedSamples = 0
}

// SystemTime converts a PTP-domain time to local monotonic time using the
// clock_nanosleep(ABSTIME)-style contract spec §4.7 relies on for launch
// scheduling: callers sleep until SystemTime(attime) using
// time.Sleep(time.Until(...)), since this module has no direct
// CLOCK_MONOTONIC/CLOCK_TAI cross-reference beyond what PtpSource exposes.
func SystemTime(ptpNow uint64, ptpTimeNs uint64) time.Time {
	deltaNs := int64(ptpTimeNs) - int64(ptpNow)
	return time.Now().Add(time.Duration(deltaNs))
}
