package avtpstream

import (
	"fmt"
	"sync"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/packetpool"
)

// DefaultIdleTimeout is the Valid → NoData idle window, spec default 25ms.
const DefaultIdleTimeout = 25 * time.Millisecond

// StatusFunc is invoked once per state transition, mirroring the teacher's
// registered-callback pattern in av.Manager.
type StatusFunc func(avbtypes.StreamStatus)

// Base is the AvtpStream base every subtype embeds. It owns everything the
// spec says is common across audio/video/CRF streams and nothing subtype
// specific.
type Base struct {
	mu sync.Mutex

	streamID avbtypes.StreamId
	tspec    avbtypes.TSpec
	dmac     avbtypes.MacAddress
	smac     avbtypes.MacAddress
	vlanID   uint16
	dir      avbtypes.Direction

	state       avbtypes.State
	active      bool
	idleTimeout time.Duration
	lastRxTime  time.Time

	clockDomain *clock.Domain    // non-owning
	pool        *packetpool.Pool // transmit only, nil for receive streams

	onStatus StatusFunc
}

// NewBase constructs an inactive Base in its construction-time state.
func NewBase(id avbtypes.StreamId, tspec avbtypes.TSpec, dir avbtypes.Direction, cd *clock.Domain) *Base {
	return &Base{
		streamID:    id,
		tspec:       tspec,
		dir:         dir,
		state:       avbtypes.StateInactive,
		idleTimeout: DefaultIdleTimeout,
		clockDomain: cd,
	}
}

// StreamID returns the current stream id.
func (b *Base) StreamID() avbtypes.StreamId {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamID
}

// ChangeStreamID replaces the stream id under lock; it is an error to
// change the id of an active stream.
func (b *Base) ChangeStreamID(id avbtypes.StreamId) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return fmt.Errorf("%w: cannot change stream id while active", avbtypes.ErrAlreadyInUse)
	}
	b.streamID = id
	return nil
}

// TSpec returns the traffic specification.
func (b *Base) TSpec() avbtypes.TSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tspec
}

// SetAddressing sets the destination/source MAC and VLAN id.
func (b *Base) SetAddressing(dmac, smac avbtypes.MacAddress, vlanID uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dmac, b.smac, b.vlanID = dmac, smac, vlanID
}

// DMAC returns the configured destination MAC.
func (b *Base) DMAC() avbtypes.MacAddress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dmac
}

// SMAC returns the observed/configured source MAC.
func (b *Base) SMAC() avbtypes.MacAddress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.smac
}

// SetSMAC records an observed source MAC (receive engine calls this on the
// first valid packet from a wildcard-matched talker).
func (b *Base) SetSMAC(smac avbtypes.MacAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.smac = smac
}

// VLANID returns the configured VLAN id (0 for untagged).
func (b *Base) VLANID() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vlanID
}

// Direction returns whether this is a transmit or receive stream.
func (b *Base) Direction() avbtypes.Direction {
	return b.dir
}

// ClockDomain returns the non-owning clock domain reference.
func (b *Base) ClockDomain() *clock.Domain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clockDomain
}

// SetPool attaches a packet pool to a transmit stream.
func (b *Base) SetPool(p *packetpool.Pool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pool = p
}

// Pool returns the attached packet pool, nil for a receive stream.
func (b *Base) Pool() *packetpool.Pool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool
}

// SetIdleTimeout overrides the default Valid → NoData idle window.
func (b *Base) SetIdleTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.idleTimeout = d
}

// OnStatus registers the StreamStatus callback.
func (b *Base) OnStatus(f StatusFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStatus = f
}

// State returns the current lifecycle state.
func (b *Base) State() avbtypes.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsActive reports whether the stream has been activated.
func (b *Base) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Activate sets the activation flag and, if the stream was not active,
// moves it straight to Valid. It clears no counters and does not reset any
// subtype's reference-plane anchor. Activating an already-active
// stream, or deactivating an inactive one, is idempotent and emits no
// transition event — spec §8's "activate after deactivate after activate is
// equivalent to a single activate".
func (b *Base) Activate() {
	b.mu.Lock()
	wasActive := b.active
	b.active = true
	b.mu.Unlock()
	if !wasActive {
		b.transition(avbtypes.StateValid)
	}
}

// Deactivate flips the activation flag off and forces state back to
// Inactive regardless of prior state.
func (b *Base) Deactivate() {
	b.mu.Lock()
	wasActive := b.active
	b.active = false
	b.mu.Unlock()
	if wasActive {
		b.transition(avbtypes.StateInactive)
	}
}

// transition sets the new state and, if it differs from the previous one,
// invokes the registered StreamStatus callback exactly once.
func (b *Base) transition(newState avbtypes.State) {
	b.mu.Lock()
	if b.state == newState {
		b.mu.Unlock()
		return
	}
	b.state = newState
	cb := b.onStatus
	id := b.streamID
	b.mu.Unlock()
	if cb != nil {
		cb(avbtypes.StreamStatus{ID: id, State: newState})
	}
}

// NotePduAccepted records a validated PDU arrival: an active stream in
// Invalid or NoData returns to Valid. Activate already moves a stream to
// Valid, so no Inactive → Valid step waits for a first good PDU. No state
// change when the stream is not active.
func (b *Base) NotePduAccepted(now time.Time) {
	b.mu.Lock()
	active := b.active
	b.lastRxTime = now
	b.mu.Unlock()
	if !active {
		return
	}
	b.transition(avbtypes.StateValid)
}

// NoteValidationFailure moves an active stream to Invalid on a validation
// failure, mode-dependent thresholds are enforced by the calling subtype
// (e.g. audio's N-consecutive-bad-packets rule); this method only performs
// the resulting state transition.
func (b *Base) NoteValidationFailure() {
	b.mu.Lock()
	active := b.active
	b.mu.Unlock()
	if !active {
		return
	}
	b.transition(avbtypes.StateInvalid)
}

// CheckIdle transitions Valid → NoData if now has advanced past the idle
// timeout since the last accepted PDU. Called by the receive engine's
// per-cycle timeout sweep (spec §4.6).
func (b *Base) CheckIdle(now time.Time) {
	b.mu.Lock()
	active := b.active
	state := b.state
	last := b.lastRxTime
	timeout := b.idleTimeout
	b.mu.Unlock()
	if !active || state != avbtypes.StateValid {
		return
	}
	if now.Sub(last) > timeout {
		b.transition(avbtypes.StateNoData)
	}
}
