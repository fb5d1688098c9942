package rxengine

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/nic"
	"github.com/sirupsen/logrus"
)

// Stream is the subset of audio.Stream/video.Stream/crf.Stream the receive
// engine dispatches to. All three packages' ReadAvbPacket dispatch alias
// (video's additionally demultiplexes RTP/MPEG-TS) plus the shared
// avtpstream.Base accessors satisfy this without modification.
type Stream interface {
	StreamID() avbtypes.StreamId
	SMAC() avbtypes.MacAddress
	SetSMAC(avbtypes.MacAddress)
	State() avbtypes.State
	CheckIdle(now time.Time)
	ReadAvbPacket(raw []byte) error
}

// DefaultIdleWait is cRxIdleWait's registry default, spec §6.
const DefaultIdleWait = 25 * time.Millisecond

const (
	etherTypeVLAN = 0x8100
	ethHeaderLen  = 14 // dst(6) + src(6) + ethertype(2), untagged
	vlanHeaderLen = 18 // + tci(2) + inner ethertype(2)
)

// Config carries the registry keys §6 names for the receive engine.
type Config struct {
	IdleWait       time.Duration
	IgnoreStreamID bool          // cRxIgnoreStreamId: a wildcard entry may exist
	DiscardAfter   time.Duration // cRxDiscardAfter: 0 disables PTS-age discard
}

// DefaultConfig returns cRxIdleWait's documented default with PTS discard
// disabled.
func DefaultConfig() Config {
	return Config{IdleWait: DefaultIdleWait}
}

type registration struct {
	stream         Stream
	wildcard       bool
	lastDispatched time.Time
}

// Engine is the single-worker receive engine.
type Engine struct {
	cfg Config
	rx  nic.RxDevice
	ptp clock.PtpSource

	mu       sync.Mutex
	byStream map[avbtypes.StreamId]*registration

	onStatusChange func(avbtypes.StreamId, avbtypes.State)
}

// New constructs a receive Engine.
func New(cfg Config, rx nic.RxDevice, ptp clock.PtpSource) *Engine {
	return &Engine{
		cfg:      cfg,
		rx:       rx,
		ptp:      ptp,
		byStream: make(map[avbtypes.StreamId]*registration),
	}
}

// OnStatusChange registers a callback invoked whenever a dispatched
// stream's observed State differs from its state before the dispatch,
// spec §4.6 step 5 "observes its post-call state; emit state-change
// events".
func (e *Engine) OnStatusChange(f func(avbtypes.StreamId, avbtypes.State)) {
	e.onStatusChange = f
}

// RegisterStream adds a stream to the registry. A stream whose own
// StreamID is the wildcard value matches any StreamId with no exact
// registration, per spec §4.6.
func (e *Engine) RegisterStream(s Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byStream[s.StreamID()] = &registration{stream: s, wildcard: s.StreamID().IsWildcard()}
}

// UnregisterStream removes a stream from the registry, e.g. on
// destroyAvbStream.
func (e *Engine) UnregisterStream(id avbtypes.StreamId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id.IsWildcard() {
		delete(e.byStream, id)
		return
	}
	delete(e.byStream, id)
}

// lookup finds the exact registration for id, or the wildcard
// registration if none exists and one is registered.
func (e *Engine) lookup(id avbtypes.StreamId) (*registration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reg, ok := e.byStream[id]; ok {
		return reg, true
	}
	if reg, ok := e.byStream[avbtypes.Wildcard]; ok {
		return reg, true
	}
	return nil, false
}

// classifiedFrame is the parsed result of stripping a frame's Ethernet
// (and optional VLAN) header down to the AVTP PDU.
type classifiedFrame struct {
	payload []byte
	vlanID  uint16
	tagged  bool
}

// classifyFrame parses EtherType (handling an optional 802.1Q tag) and
// returns the AVTP PDU payload, or ok=false if the frame is not 1722, per
// spec §4.6 step 4.
func classifyFrame(raw []byte) (classifiedFrame, bool) {
	if len(raw) < ethHeaderLen {
		return classifiedFrame{}, false
	}
	etherType := binary.BigEndian.Uint16(raw[12:14])
	if etherType == etherTypeVLAN {
		if len(raw) < vlanHeaderLen {
			return classifiedFrame{}, false
		}
		vlanID := binary.BigEndian.Uint16(raw[14:16]) & 0x0fff
		inner := binary.BigEndian.Uint16(raw[16:18])
		if inner != nic.EtherTypeIEEE1722 {
			return classifiedFrame{}, false
		}
		return classifiedFrame{payload: raw[vlanHeaderLen:], vlanID: vlanID, tagged: true}, true
	}
	if etherType != nic.EtherTypeIEEE1722 {
		return classifiedFrame{}, false
	}
	return classifiedFrame{payload: raw[ethHeaderLen:]}, true
}

// dispatchPacket invokes stream.ReadAvbPacket (or, for a timeout sweep,
// only the idle check) and emits a status-change event if the observed
// state differs from before the call, spec §4.6 step 5.
func (e *Engine) dispatchPacket(reg *registration, pdu []byte, now uint64) {
	before := reg.stream.State()
	if pdu != nil {
		if err := reg.stream.ReadAvbPacket(pdu); err != nil {
			logrus.WithFields(logrus.Fields{"stream_id": reg.stream.StreamID(), "error": err}).Debug("rxengine: dispatch rejected pdu")
		}
	}
	reg.lastDispatched = time.Unix(0, int64(now))
	after := reg.stream.State()
	if after != before && e.onStatusChange != nil {
		e.onStatusChange(reg.stream.StreamID(), after)
	}
}

// noteObservedSMAC records smac as the stream's observed source MAC on its
// first valid packet, spec §4.6 step 6 "update the stream's observed SMAC
// on first valid packet". A zero SMAC means none has been observed yet;
// once set it is treated as fixed for the stream's lifetime.
func noteObservedSMAC(reg *registration, smac avbtypes.MacAddress) {
	if reg.stream.SMAC().IsZero() {
		reg.stream.SetSMAC(smac)
	}
}

// shouldDiscard reports whether a PDU's presentation timestamp is stale
// enough to drop without dispatching, spec §4.6 step 4's cRxDiscardAfter
// rule. pts is the 32-bit wrapped AVTP timestamp; now is the full 64-bit
// current PTP time.
func (e *Engine) shouldDiscard(pts uint32, now uint64) bool {
	if e.cfg.DiscardAfter <= 0 {
		return false
	}
	nowLow := uint32(now)
	delta := avbtypes.TimestampDelta(pts, nowLow) // now - pts, signed-wrapped
	if delta < 0 {
		return false
	}
	return time.Duration(delta)*time.Nanosecond > e.cfg.DiscardAfter
}

// extractSMAC reads the 6-byte source MAC (octets 6-11) of an Ethernet
// frame, ok=false if raw is too short to contain one.
func extractSMAC(raw []byte) (avbtypes.MacAddress, bool) {
	if len(raw) < 12 {
		return avbtypes.MacAddress{}, false
	}
	var mac avbtypes.MacAddress
	copy(mac[:], raw[6:12])
	return mac, true
}

// extractStreamID reads the StreamID field (bytes 4-11) of the AVTP common
// header embedded in an already-classified frame payload.
func extractStreamID(pdu []byte) (avbtypes.StreamId, bool) {
	if len(pdu) < avbtypes.HeaderLen {
		return 0, false
	}
	id, err := avbtypes.StreamIdFromBytes(pdu[4:12])
	return id, err == nil
}

// Run drives the engine's main loop until ctx is cancelled, per spec §4.6.
func (e *Engine) Run(ctx context.Context) error {
	buf := make([]byte, 1600)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !e.rx.LinkUp() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.cfg.IdleWait):
			}
			continue
		}

		idleWait := e.cfg.IdleWait
		if idleWait <= 0 {
			idleWait = DefaultIdleWait
		}
		n, err := e.rx.ReadFrame(buf, idleWait)
		now := e.ptp.Now()
		if err != nil {
			logrus.WithFields(logrus.Fields{"error": err}).Warn("rxengine: read frame failed")
			continue
		}
		if n == 0 {
			e.sweepIdle(now)
			continue
		}

		frame, ok := classifyFrame(buf[:n])
		if !ok {
			continue
		}
		streamID, ok := extractStreamID(frame.payload)
		if !ok {
			continue
		}
		reg, ok := e.lookup(streamID)
		if !ok {
			continue
		}

		if len(frame.payload) >= avbtypes.HeaderLen {
			pts := binary.BigEndian.Uint32(frame.payload[12:16])
			if e.shouldDiscard(pts, now) {
				continue
			}
		}

		if reg.wildcard && e.cfg.IgnoreStreamID {
			e.promote(streamID, reg)
		}

		e.dispatchPacket(reg, frame.payload, now)
		if reg.stream.State() == avbtypes.StateValid {
			if smac, ok := extractSMAC(buf[:n]); ok {
				noteObservedSMAC(reg, smac)
			}
		}
	}
}

// promote registers a concrete entry for a previously-wildcard-matched
// StreamId, so subsequent packets hit it directly, per spec §4.6's "a
// wildcard entry ... optionally promotes to a concrete entry on first
// matching DMAC".
func (e *Engine) promote(id avbtypes.StreamId, wildcard *registration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.byStream[id]; exists {
		return
	}
	e.byStream[id] = &registration{stream: wildcard.stream}
}

// sweepIdle iterates every registered stream on a read timeout so each
// state machine can detect idle, spec §4.6 step 3.
func (e *Engine) sweepIdle(now uint64) {
	e.mu.Lock()
	streams := make([]Stream, 0, len(e.byStream))
	for _, reg := range e.byStream {
		streams = append(streams, reg.stream)
	}
	e.mu.Unlock()

	nowTime := time.Unix(0, int64(now))
	for _, s := range streams {
		s.CheckIdle(nowTime)
	}
}
