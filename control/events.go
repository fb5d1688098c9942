package control

import (
	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/txsequencer"
)

// EventKind distinguishes the three signals the original source's
// IasAvbStreamHandlerEventInterface delivers separately (stream status,
// link status, and a "scheduling issue"/oversleep notice), unified here
// onto one callback per SPEC_FULL §9's supplement.
type EventKind uint8

const (
	// EventStreamStatus reports a stream's lifecycle state change
	// (avtpstream.Base's StatusFunc), spec §7's "stream state change
	// events on the registered callback".
	EventStreamStatus EventKind = iota
	// EventLinkDown/EventLinkUp report NIC carrier transitions observed by
	// a transmit sequencer, spec §4.7's failure subsection.
	EventLinkDown
	EventLinkUp
	// EventOversleep reports a sequencer cycle that ran past its pitch,
	// spec §4.7's "Oversleep ... emit a telemetry event".
	EventOversleep
	// EventPtpEpochJump reports a PTP grandmaster/epoch change that forced
	// a sequencer resync, spec §4.7's failure subsection.
	EventPtpEpochJump
	// EventRingUndersized reports a TX ring ENOSPC submit error, spec §4.7
	// step 2's fatal/ENOSPC handling.
	EventRingUndersized
)

func (k EventKind) String() string {
	switch k {
	case EventStreamStatus:
		return "stream-status"
	case EventLinkDown:
		return "link-down"
	case EventLinkUp:
		return "link-up"
	case EventOversleep:
		return "oversleep"
	case EventPtpEpochJump:
		return "ptp-epoch-jump"
	case EventRingUndersized:
		return "ring-undersized"
	default:
		return "unknown"
	}
}

// Event is delivered to the callback registered via Engine.OnEvent. Only
// the fields relevant to Kind are populated; StreamID is the zero
// Wildcard value for the link/sequencer-level kinds, which aren't
// associated with one stream.
type Event struct {
	Kind     EventKind
	StreamID avbtypes.StreamId
	State    avbtypes.State
	Class    avbtypes.SrClass
}

// EventFunc receives every control.Event the engine emits.
type EventFunc func(Event)

// txEventKind maps a txsequencer.EventKind onto the corresponding unified
// EventKind.
func txEventKind(k txsequencer.EventKind) EventKind {
	switch k {
	case txsequencer.EventLinkDown:
		return EventLinkDown
	case txsequencer.EventLinkUp:
		return EventLinkUp
	case txsequencer.EventPtpEpochJump:
		return EventPtpEpochJump
	case txsequencer.EventRingUndersized:
		return EventRingUndersized
	default:
		return EventOversleep
	}
}
