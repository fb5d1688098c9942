package txsequencer

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/nic"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/sirupsen/logrus"
)

// Stream is the subset of audio.Stream/video.Stream/crf.Stream the
// sequencer drives. All three satisfy it without modification: the
// lifecycle methods come from the embedded avtpstream.Base, and
// PrepareAvbPacket is each package's thin dispatch alias over its own
// WriteToAvbPacket/PreparePacket method — the closed Audio|Video|Crf
// variant set the design notes call for, matched through one interface
// instead of open polymorphism.
type Stream interface {
	StreamID() avbtypes.StreamId
	IsActive() bool
	Pool() *packetpool.Pool
	TSpec() avbtypes.TSpec
	Activate()
	Deactivate()
	PrepareAvbPacket(pkt *packetpool.Packet, launchTime uint64) error
}

// LinkStatus reports NIC carrier state.
type LinkStatus interface {
	LinkUp() bool
}

// EventKind is a sequencer telemetry event, part of the single
// control.Event callback surface (SPEC_FULL §9 supplement).
type EventKind uint8

const (
	EventOversleep EventKind = iota
	EventLinkDown
	EventLinkUp
	EventPtpEpochJump
	EventRingUndersized
)

// Event is delivered to the registered EventFunc.
type Event struct {
	Kind  EventKind
	Class avbtypes.SrClass
}

// EventFunc receives sequencer telemetry events.
type EventFunc func(Event)

// Config carries the TX window and threshold parameters, registry keys
// cXmitWndWidth/Pitch/CueThresh/ResetThresh/Delay/UseShaper/StrictPktOrder
// per spec §6.
type Config struct {
	Class             avbtypes.SrClass
	Width             time.Duration
	Pitch             time.Duration
	CueThreshold      time.Duration
	ResetThreshold    time.Duration
	PrefetchThreshold time.Duration
	TxDelay           time.Duration
	MaxResetCount     int
	MaxDropCount      int
	MaxBandwidthKbps  uint64
	UseShaper         bool
	StrictPktOrder    bool
	LinkRate          nic.LinkRate
	Queue             int
}

// DefaultConfig returns the registry defaults named in spec §4.7/§6.
func DefaultConfig(class avbtypes.SrClass) Config {
	queue := 0
	if class == avbtypes.SrClassB {
		queue = 1
	}
	return Config{
		Class:             class,
		Width:             3 * time.Millisecond,
		Pitch:             2 * time.Millisecond,
		CueThreshold:      1 * time.Millisecond,
		ResetThreshold:    4 * time.Millisecond,
		PrefetchThreshold: 3 * time.Millisecond,
		MaxResetCount:     3,
		MaxDropCount:      3,
		LinkRate:          nic.LinkRate1G,
		Queue:             queue,
	}
}

// entry is one {stream, packet, launchTime, doneState} tuple from spec
// §4.7's sequence list.
type entry struct {
	stream     Stream
	packet     *packetpool.Packet
	launchTime uint64
	fatal      bool
	resets     int
	drops      int
}

// Sequencer drives one SR class's transmit window.
type Sequencer struct {
	cfg    Config
	tx     nic.TxDevice
	ptp    clock.PtpSource
	shaper nic.ShaperProgrammer
	link   LinkStatus

	mu            sync.Mutex
	activeStreams map[avbtypes.StreamId]Stream

	request  uint64
	response uint64

	sequence []*entry

	windowStart uint64
	lastEpoch   uint64

	watchdogFunc func()
	onEvent      EventFunc

	statsMu sync.Mutex
	stats   Stats
}

// Stats are the sequencer's diagnostic counters, surfaced via
// control.Engine.GetAvbStreamInfo-adjacent APIs.
type Stats struct {
	Dropped              uint64
	Reset                uint64
	LaunchTimeViolations uint64
	Reordered            uint64
}

// New constructs a Sequencer for one SR class. shaper may be
// nic.NoopShaper{} when cXmitUseShaper is 0.
func New(cfg Config, tx nic.TxDevice, ptp clock.PtpSource, shaper nic.ShaperProgrammer, link LinkStatus) *Sequencer {
	if shaper == nil {
		shaper = nic.NoopShaper{}
	}
	return &Sequencer{
		cfg:           cfg,
		tx:            tx,
		ptp:           ptp,
		shaper:        shaper,
		link:          link,
		activeStreams: make(map[avbtypes.StreamId]Stream),
	}
}

// OnEvent registers the telemetry callback.
func (s *Sequencer) OnEvent(f EventFunc) { s.onEvent = f }

// OnWatchdogReset registers a function called every time a non-dummy
// packet is successfully submitted or a dummy packet is accepted, per
// spec §4.7's "each successfully sent non-dummy packet (or accepted
// dummy) resets the watchdog".
func (s *Sequencer) OnWatchdogReset(f func()) { s.watchdogFunc = f }

// Stats returns a snapshot of the diagnostic counters.
func (s *Sequencer) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ActivateStream adds stream to the active set, triggering a sequence-list
// sync on the next cycle via the request/response counter handoff.
func (s *Sequencer) ActivateStream(stream Stream) {
	s.mu.Lock()
	s.activeStreams[stream.StreamID()] = stream
	s.mu.Unlock()
	atomic.AddUint64(&s.request, 1)
}

// DeactivateStream removes id from the active set.
func (s *Sequencer) DeactivateStream(id avbtypes.StreamId) {
	s.mu.Lock()
	delete(s.activeStreams, id)
	s.mu.Unlock()
	atomic.AddUint64(&s.request, 1)
}

// activeBandwidth sums the TSpec.RequiredBandwidth of every active stream,
// for the shaper and for the §8 bandwidth-budget invariant.
func (s *Sequencer) activeBandwidth() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, st := range s.activeStreams {
		total += st.TSpec().RequiredBandwidth()
	}
	return total
}

// syncSequence reconciles s.sequence with s.activeStreams when the
// request/response counters disagree, spec §4.7 step 1: removed streams
// return their held packet to its pool, new streams are inserted with
// launchTime 0.
func (s *Sequencer) syncSequence() {
	req := atomic.LoadUint64(&s.request)
	if req == atomic.LoadUint64(&s.response) {
		return
	}

	s.mu.Lock()
	snapshot := make(map[avbtypes.StreamId]Stream, len(s.activeStreams))
	for id, st := range s.activeStreams {
		snapshot[id] = st
	}
	s.mu.Unlock()

	kept := s.sequence[:0]
	present := make(map[avbtypes.StreamId]bool, len(s.sequence))
	for _, e := range s.sequence {
		id := e.stream.StreamID()
		if _, ok := snapshot[id]; !ok {
			if e.packet != nil {
				_ = e.stream.Pool().ReturnPacket(e.packet)
			}
			continue
		}
		present[id] = true
		kept = append(kept, e)
	}
	s.sequence = kept

	for id, st := range snapshot {
		if !present[id] {
			s.sequence = append(s.sequence, &entry{stream: st})
		}
	}

	atomic.StoreUint64(&s.response, req)
}

// fetchNext prepares the next packet for e's stream at refTime, classifying
// the result's launch time against the cue/reset/prefetch thresholds, spec
// §4.7 step 3.
func (s *Sequencer) fetchNext(e *entry, refTime uint64) {
	pool := e.stream.Pool()
	pkt, err := pool.GetPacket()
	if err != nil {
		return // pool exhausted; try again next cycle
	}
	if err := e.stream.PrepareAvbPacket(pkt, refTime); err != nil {
		_ = pool.ReturnPacket(pkt)
		logrus.WithFields(logrus.Fields{"stream_id": e.stream.StreamID(), "error": err}).Warn("txsequencer: prepare packet failed")
		return
	}

	if pkt.IsDummy() {
		_ = pool.ReturnPacket(pkt)
		s.resetWatchdog()
		e.packet = nil
		e.launchTime = 0
		return
	}

	switch classifyLaunch(s.windowStart, pkt.Attime, s.cfg.PrefetchThreshold, s.cfg.ResetThreshold, s.cfg.CueThreshold) {
	case launchWayBeyond, launchWayBehind:
		_ = pool.ReturnPacket(pkt)
		if e.resets < s.cfg.MaxResetCount {
			e.resets++
			e.stream.Deactivate()
			e.stream.Activate()
			s.bumpStat(&s.stats.Reset)
		}
		e.packet = nil
		e.launchTime = 0
	case launchSlightlyBehind:
		_ = pool.ReturnPacket(pkt)
		if e.drops < s.cfg.MaxDropCount {
			e.drops++
			s.bumpStat(&s.stats.Dropped)
		}
		e.packet = nil
		e.launchTime = 0
	default:
		e.packet = pkt
		e.launchTime = pkt.Attime
		e.resets = 0
		e.drops = 0
	}
}

func (s *Sequencer) bumpStat(counter *uint64) {
	s.statsMu.Lock()
	*counter++
	s.statsMu.Unlock()
}

func (s *Sequencer) resetWatchdog() {
	if s.watchdogFunc != nil {
		s.watchdogFunc()
	}
}

func (s *Sequencer) emit(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(Event{Kind: kind, Class: s.cfg.Class})
	}
}

// runCycle executes one [windowStart, windowStart+pitch) iteration of spec
// §4.7's algorithm, steps 1-4 (sleeping and epoch detection are Run's
// responsibility).
func (s *Sequencer) runCycle() {
	s.syncSequence()

	windowEnd := s.windowStart + uint64(s.cfg.Width.Nanoseconds())
	for _, e := range s.sequence {
		if e.packet == nil {
			s.fetchNext(e, s.windowStart+uint64(s.cfg.Pitch.Nanoseconds()))
		}
		if e.packet == nil || e.launchTime < s.windowStart || e.launchTime >= windowEnd {
			continue
		}

		pkt := e.packet
		pkt.Attime = e.launchTime + uint64(s.cfg.TxDelay.Nanoseconds())
		if err := s.tx.Submit(pkt); err != nil {
			s.handleSubmitError(e, err)
			continue
		}
		s.resetWatchdog()
		e.packet = nil
		s.fetchNext(e, s.windowStart+uint64(s.cfg.Pitch.Nanoseconds()))
	}

	if s.cfg.StrictPktOrder {
		sort.SliceStable(s.sequence, func(i, j int) bool {
			if s.sequence[i].packet == nil {
				return false
			}
			if s.sequence[j].packet == nil {
				return true
			}
			return s.sequence[i].launchTime < s.sequence[j].launchTime
		})
	}

	if s.cfg.UseShaper {
		s.programShaper()
	}

	for _, pkt := range s.tx.Reclaim() {
		if pool := pkt.HomePool(); pool != nil {
			_ = pool.ReturnPacket(pkt)
		}
	}
}

func (s *Sequencer) handleSubmitError(e *entry, err error) {
	se, ok := err.(*nic.SubmitError)
	if !ok {
		return
	}
	switch se.Kind {
	case nic.SubmitErrorFatal:
		if pool := e.packet.HomePool(); pool != nil {
			_ = pool.ReturnPacket(e.packet)
		}
		e.packet = nil
		e.fatal = true
	case nic.SubmitErrorRingFull:
		s.emit(EventRingUndersized)
		s.Restart()
	default:
		// transient: leave e.packet in place, retry next cycle.
	}
}

// programShaper derives idle-slope/hi-credit for this class from the
// active streams' summed bandwidth and programs it via s.shaper, spec
// §4.7's Shaper subsection. It passes zero class A bandwidth and frame size
// to ProgramShaperWithPeer, so the credits runCycle programs for a class B
// queue do not account for class A's idle slope or frame size; a single
// Sequencer only knows its own class's active streams.
func (s *Sequencer) programShaper() {
	s.ProgramShaperWithPeer(0, 0)
}

// ProgramShaperWithPeer computes and programs this class's shaper credits,
// accounting for class A's bandwidth and max frame size when this
// Sequencer is class B, per spec §4.7.
func (s *Sequencer) ProgramShaperWithPeer(classABandwidthBps int64, classAMaxFrameSize uint16) {
	bw := int64(s.activeBandwidth()) * 1000 // kbit/s -> bit/s
	maxFrame := s.maxInterferingFrameSize()
	credits := nic.ComputeShaperCredits(s.cfg.LinkRate, bw, maxFrame, classABandwidthBps, classAMaxFrameSize, s.cfg.Class == avbtypes.SrClassB)
	if err := s.shaper.Program(s.cfg.Queue, credits); err != nil {
		logrus.WithFields(logrus.Fields{"queue": s.cfg.Queue, "error": err}).Warn("txsequencer: shaper program failed")
	}
}

func (s *Sequencer) maxInterferingFrameSize() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max uint16
	for _, st := range s.activeStreams {
		if f := st.TSpec().MaxFrameSize; f > max {
			max = f
		}
	}
	return max
}

// Run drives the sequencer's main loop until ctx is cancelled, per spec
// §4.7 steps 5-6 and §4.7's Failure subsection (link-down wait, PTP epoch
// restart, oversleep telemetry).
func (s *Sequencer) Run(ctx context.Context) error {
	s.windowStart = s.ptp.Now()
	s.lastEpoch = s.ptp.EpochCounter()
	linkWasDown := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.link != nil && !s.link.LinkUp() {
			if !linkWasDown {
				linkWasDown = true
				s.emit(EventLinkDown)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.Pitch):
			}
			continue
		}
		if linkWasDown {
			linkWasDown = false
			s.emit(EventLinkUp)
		}

		s.runCycle()

		target := clock.SystemTime(s.ptp.Now(), s.windowStart+uint64(s.cfg.Pitch.Nanoseconds()))
		sleepFor := time.Until(target)
		if sleepFor > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleepFor):
			}
		} else if -sleepFor > s.cfg.Width-s.cfg.Pitch {
			s.emit(EventOversleep)
		}

		if epoch := s.ptp.EpochCounter(); epoch != s.lastEpoch {
			s.lastEpoch = epoch
			s.handlePtpEpochJump(ctx)
		}

		s.windowStart += uint64(s.cfg.Pitch.Nanoseconds())
	}
}

// handlePtpEpochJump drains the sequence list (returning every held
// packet), deactivates and reactivates every active stream to re-anchor
// their reference planes, and resyncs, per spec §4.7's PTP epoch-change
// failure handling.
func (s *Sequencer) handlePtpEpochJump(ctx context.Context) {
	s.emit(EventPtpEpochJump)

	s.mu.Lock()
	for _, e := range s.sequence {
		if e.packet != nil {
			if pool := e.packet.HomePool(); pool != nil {
				_ = pool.ReturnPacket(e.packet)
			}
			e.packet = nil
		}
	}
	s.sequence = nil
	for _, st := range s.activeStreams {
		st.Deactivate()
		st.Activate()
	}
	s.mu.Unlock()
	atomic.AddUint64(&s.request, 1)

	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
	}

	s.windowStart = s.ptp.Now()
}

// Restart fully resets sequencer state, used after an ENOSPC (ring
// undersized) submit error signals the TX ring is too small for current
// traffic, per spec §4.7 step 2's fatal/ENOSPC handling.
func (s *Sequencer) Restart() {
	s.mu.Lock()
	for _, e := range s.sequence {
		if e.packet != nil {
			if pool := e.packet.HomePool(); pool != nil {
				_ = pool.ReturnPacket(e.packet)
			}
		}
	}
	s.sequence = nil
	s.mu.Unlock()
	atomic.AddUint64(&s.request, 1)
}

// launchAction classifies a just-fetched packet's launch time against the
// window, spec §4.7 step 3.
type launchAction uint8

const (
	launchOnTime launchAction = iota
	// launchWayBeyond: launch time is beyond windowStart+prefetchThreshold
	// — the stream is "way beyond", reset it.
	launchWayBeyond
	// launchWayBehind: launch time is behind windowStart-resetThreshold —
	// also reset it.
	launchWayBehind
	// launchSlightlyBehind: behind by more than cueThreshold but less than
	// resetThreshold — silently drop and retry.
	launchSlightlyBehind
)

func classifyLaunch(windowStart, launchTime uint64, prefetchThreshold, resetThreshold, cueThreshold time.Duration) launchAction {
	delta := int64(launchTime) - int64(windowStart)
	switch {
	case delta > prefetchThreshold.Nanoseconds():
		return launchWayBeyond
	case delta < -resetThreshold.Nanoseconds():
		return launchWayBehind
	case delta < -cueThreshold.Nanoseconds():
		return launchSlightlyBehind
	default:
		return launchOnTime
	}
}
