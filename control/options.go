package control

import (
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/nic"
	"github.com/avbcore/streamhandler/txsequencer"
)

// Options constructs an Engine, the same functional-options shape as the
// teacher's toxcore.Options/NewOptions: one struct of knobs, a NewOptions
// constructor supplying defaults, and the collaborators a caller must still
// fill in before New (a Tox needs no external PTP/NIC handles, but an AVB
// engine always does — those fields are left nil by NewOptions and New
// rejects them).
type Options struct {
	Config Config

	// Ptp is the external gPTP time reference every clock domain and
	// sequencer consults, SPEC_FULL §1's "PTP synthesis is out of scope".
	Ptp clock.PtpSource

	// TxA/TxB are the transmit devices for SR class A and class B. TxB may
	// be left nil to run class-A-only (no class B sequencer is started).
	TxA nic.TxDevice
	TxB nic.TxDevice

	// Rx is the single receive device both classes share, per spec §4.6's
	// one-worker receive engine.
	Rx nic.RxDevice

	// Shaper programs the credit-based shaper when Config.TxUseShaper is
	// set; nic.NoopShaper{} is substituted when left nil, same default
	// txsequencer.New applies.
	Shaper nic.ShaperProgrammer

	// Link reports NIC carrier state to the sequencers; nil means the
	// sequencers never treat the link as down.
	Link txsequencer.LinkStatus

	// ClockDomains lets a caller pre-build non-default clock domains (e.g.
	// a KindRxRecovered domain already wired to a CRF receive stream
	// elsewhere). For any Kind a createXStream call names that isn't present
	// here, the engine constructs a domain of that Kind on Ptp the first time
	// it is named.
	ClockDomains map[clock.Kind]*clock.Domain
}

// NewOptions returns Options with Config defaulted via DefaultConfig and
// every collaborator left nil; the caller must set Ptp/TxA/Rx before
// calling New.
func NewOptions() *Options {
	return &Options{
		Config: DefaultConfig(),
	}
}
