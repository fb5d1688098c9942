package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/avbcore/streamhandler/audio"
	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/avtpstream"
	"github.com/avbcore/streamhandler/clock"
	"github.com/avbcore/streamhandler/crf"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/avbcore/streamhandler/rxengine"
	"github.com/avbcore/streamhandler/txsequencer"
	"github.com/avbcore/streamhandler/video"
)

// Engine is the control-plane facade spec §6 names: one receive engine
// worker, one-or-two transmit sequencer workers (class A always, class B
// when Options.TxB is supplied), and the create/destroy/connect/activate
// method set a configuration front-end drives.
type Engine struct {
	cfg Config
	ptp clock.PtpSource

	seqA *txsequencer.Sequencer
	seqB *txsequencer.Sequencer // nil when running class-A-only
	rx   *rxengine.Engine

	streamsMu    sync.RWMutex
	streams      map[avbtypes.StreamId]*streamEntry
	nextUniqueID uint32
	stopped      bool

	domainsMu sync.Mutex
	domains   map[clock.Kind]*clock.Domain

	eventMu sync.RWMutex
	onEvent EventFunc
}

// New constructs an Engine from opts. Ptp, TxA and Rx must be set; TxB may
// be left nil to run without a class B sequencer.
func New(opts *Options) (*Engine, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: control.New requires non-nil Options", avbtypes.ErrInvalidParam)
	}
	if opts.Ptp == nil || opts.TxA == nil || opts.Rx == nil {
		return nil, fmt.Errorf("%w: control.Options.Ptp/TxA/Rx are required", avbtypes.ErrInvalidParam)
	}

	e := &Engine{
		cfg:     opts.Config,
		ptp:     opts.Ptp,
		streams: make(map[avbtypes.StreamId]*streamEntry),
		domains: make(map[clock.Kind]*clock.Domain, len(opts.ClockDomains)),
	}
	for k, d := range opts.ClockDomains {
		e.domains[k] = d
	}

	txCfg := func(class avbtypes.SrClass) txsequencer.Config {
		c := txsequencer.DefaultConfig(class)
		if e.cfg.TxWindowWidth > 0 {
			c.Width = e.cfg.TxWindowWidth
		}
		if e.cfg.TxPitch > 0 {
			c.Pitch = e.cfg.TxPitch
		}
		if e.cfg.TxCueThreshold > 0 {
			c.CueThreshold = e.cfg.TxCueThreshold
		}
		if e.cfg.TxResetThreshold > 0 {
			c.ResetThreshold = e.cfg.TxResetThreshold
		}
		c.TxDelay = e.cfg.TxDelay
		c.UseShaper = e.cfg.TxUseShaper
		c.StrictPktOrder = e.cfg.TxStrictPktOrder
		if bw, ok := e.cfg.TxMaxBandwidthKbps[class]; ok {
			c.MaxBandwidthKbps = bw
		}
		return c
	}

	e.seqA = txsequencer.New(txCfg(avbtypes.SrClassA), opts.TxA, opts.Ptp, opts.Shaper, opts.Link)
	e.seqA.OnEvent(e.handleSeqEvent)
	if opts.TxB != nil {
		e.seqB = txsequencer.New(txCfg(avbtypes.SrClassB), opts.TxB, opts.Ptp, opts.Shaper, opts.Link)
		e.seqB.OnEvent(e.handleSeqEvent)
	}

	rxCfg := rxengine.Config{
		IdleWait:       e.cfg.RxIdleWait,
		IgnoreStreamID: e.cfg.RxIgnoreStreamID,
		DiscardAfter:   e.cfg.RxDiscardAfter,
	}
	if rxCfg.IdleWait <= 0 {
		rxCfg.IdleWait = rxengine.DefaultIdleWait
	}
	e.rx = rxengine.New(rxCfg, opts.Rx, opts.Ptp)
	e.rx.OnStatusChange(e.handleStatusChange)

	return e, nil
}

// OnEvent registers the unified event callback (SPEC_FULL §9 supplement).
func (e *Engine) OnEvent(f EventFunc) {
	e.eventMu.Lock()
	e.onEvent = f
	e.eventMu.Unlock()
}

func (e *Engine) emit(ev Event) {
	e.eventMu.RLock()
	f := e.onEvent
	e.eventMu.RUnlock()
	if f != nil {
		f(ev)
	}
}

func (e *Engine) handleSeqEvent(ev txsequencer.Event) {
	e.emit(Event{Kind: txEventKind(ev.Kind), Class: ev.Class})
}

func (e *Engine) handleStatusChange(id avbtypes.StreamId, st avbtypes.State) {
	e.emit(Event{Kind: EventStreamStatus, StreamID: id, State: st})
}

// Run drives the receive engine and every configured transmit sequencer
// until ctx is cancelled, returning the first non-cancellation error any of
// them produced.
func (e *Engine) Run(ctx context.Context) error {
	type outcome struct {
		name string
		err  error
	}
	workers := []func() error{
		e.rx.Run,
		e.seqA.Run,
	}
	names := []string{"rxengine", "txsequencer-class-a"}
	if e.seqB != nil {
		workers = append(workers, e.seqB.Run)
		names = append(names, "txsequencer-class-b")
	}

	results := make(chan outcome, len(workers))
	for i, w := range workers {
		w, name := w, names[i]
		go func() { results <- outcome{name, w(ctx)} }()
	}

	var firstErr error
	for range workers {
		r := <-results
		if r.err != nil && r.err != context.Canceled && firstErr == nil {
			firstErr = fmt.Errorf("control: %s: %w", r.name, r.err)
		}
	}
	return firstErr
}

// Stop marks the engine as no longer accepting new stream operations.
// Workers started via Run are stopped by cancelling the context passed to
// it, the same cooperative-cancellation split the teacher's Tox.ctx/cancel
// pair uses.
func (e *Engine) Stop() {
	e.streamsMu.Lock()
	e.stopped = true
	e.streamsMu.Unlock()
}

func (e *Engine) domainFor(kind clock.Kind) *clock.Domain {
	e.domainsMu.Lock()
	defer e.domainsMu.Unlock()
	if d, ok := e.domains[kind]; ok {
		return d
	}
	var d *clock.Domain
	switch kind {
	case clock.KindRaw:
		d = clock.NewRaw(e.ptp, 1e9)
	case clock.KindHwCapture:
		d = clock.NewHwCapture(e.ptp, 1e9)
	case clock.KindRxRecovered:
		d = clock.NewRxRecovered(e.ptp, 1e9)
	default:
		d = clock.NewPTP(e.ptp, 1e9)
	}
	e.domains[kind] = d
	return d
}

func (e *Engine) seqFor(class avbtypes.SrClass) (*txsequencer.Sequencer, error) {
	if class == avbtypes.SrClassB {
		if e.seqB == nil {
			return nil, fmt.Errorf("%w: class B sequencer not configured", avbtypes.ErrNotInitialized)
		}
		return e.seqB, nil
	}
	return e.seqA, nil
}

func (e *Engine) autoStreamID() avbtypes.StreamId {
	id := atomic.AddUint32(&e.nextUniqueID, 1)
	return avbtypes.NewStreamId(e.cfg.LocalMAC, uint16(id))
}

func (e *Engine) lookupEntry(id avbtypes.StreamId) (*streamEntry, bool) {
	e.streamsMu.RLock()
	defer e.streamsMu.RUnlock()
	entry, ok := e.streams[id]
	return entry, ok
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// audioTSpec derives a TSpec from an audio stream's configured channel
// count and sample frequency, spec §6's control API taking these as
// separate arguments rather than a pre-negotiated TSpec (SRP negotiation
// itself is out of scope per spec §1's non-goals).
func audioTSpec(class avbtypes.SrClass, format audio.Format, channels int, sampleFreq uint32) avbtypes.TSpec {
	pps := class.ClassInterval()
	samplesPerPacket := uint32(1)
	if pps > 0 && sampleFreq > 0 {
		samplesPerPacket = sampleFreq / pps
		if samplesPerPacket == 0 {
			samplesPerPacket = 1
		}
	}
	frameSize := avbtypes.HeaderLen + channels*format.SampleSize()*int(samplesPerPacket)
	return avbtypes.TSpec{
		Class:             class,
		MaxFrameSize:      uint16(minInt(frameSize, packetpool.MaxBufferSize)),
		MaxIntervalFrames: 1,
		PacketsPerSecond:  pps,
	}
}

func videoTSpec(class avbtypes.SrClass, maxRate, maxSize uint32) avbtypes.TSpec {
	return avbtypes.TSpec{
		Class:             class,
		MaxFrameSize:      uint16(minInt(int(maxSize), packetpool.MaxBufferSize)),
		MaxIntervalFrames: 1,
		PacketsPerSecond:  maxRate,
	}
}

func crfTSpec(class avbtypes.SrClass, stampsPerPdu int) avbtypes.TSpec {
	pps := class.ClassInterval()
	return avbtypes.TSpec{
		Class:             class,
		MaxFrameSize:      uint16(minInt(avbtypes.HeaderLen+stampsPerPdu*8, packetpool.MaxBufferSize)),
		MaxIntervalFrames: 1,
		PacketsPerSecond:  pps,
	}
}

func newTxPool(cfg Config, tspec avbtypes.TSpec) (*packetpool.Pool, error) {
	poolSize := cfg.PacketPoolSize
	if poolSize == 0 {
		poolSize = 64
	}
	packetSize := int(tspec.MaxFrameSize) + 4 // + VLAN tag headroom
	if packetSize > packetpool.MaxBufferSize {
		packetSize = packetpool.MaxBufferSize
	}
	return packetpool.Init(packetSize, poolSize)
}

// CreateReceiveAudioStream implements createReceiveAudioStream (spec §6).
func (e *Engine) CreateReceiveAudioStream(p ReceiveAudioParams) (avbtypes.StreamId, error) {
	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	if _, exists := e.streams[p.StreamID]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", p.StreamID, ErrStreamExists)
	}

	tspec := audioTSpec(p.Class, p.Format, p.MaxChannels, p.SampleFrequency)
	if err := tspec.Validate(); err != nil {
		return 0, fmt.Errorf("control: create receive audio stream: %w", err)
	}

	base := avtpstream.NewBase(p.StreamID, tspec, avbtypes.DirectionReceive, nil)
	base.SetAddressing(p.DMAC, avbtypes.MacAddress{}, p.VlanID)

	slot := &audioBufferSlot{}
	stream, err := audio.New(base, audio.Config{
		SampleFrequency: p.SampleFrequency,
		Format:          p.Format,
		Compatibility:   p.Compatibility,
		NumChannels:     p.MaxChannels,
		ValidationMode:  audio.ValidateAlways,
		Saturate:        e.cfg.AudioSaturate,
	}, slot)
	if err != nil {
		return 0, fmt.Errorf("control: create receive audio stream: %w", err)
	}

	entry := &streamEntry{kind: kindAudio, dir: avbtypes.DirectionReceive, class: p.Class, audioSlot: slot}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[p.StreamID] = entry
	e.rx.RegisterStream(entry.tracked)
	if p.Preconfigured {
		entry.tracked.Activate()
	}
	return p.StreamID, nil
}

// CreateReceiveVideoStream implements createReceiveVideoStream.
func (e *Engine) CreateReceiveVideoStream(p ReceiveVideoParams) (avbtypes.StreamId, error) {
	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	if _, exists := e.streams[p.StreamID]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", p.StreamID, ErrStreamExists)
	}

	tspec := videoTSpec(p.Class, p.MaxRate, p.MaxSize)
	if err := tspec.Validate(); err != nil {
		return 0, fmt.Errorf("control: create receive video stream: %w", err)
	}

	base := avtpstream.NewBase(p.StreamID, tspec, avbtypes.DirectionReceive, nil)
	base.SetAddressing(p.DMAC, avbtypes.MacAddress{}, p.VlanID)

	slot := &videoBufferSlot{}
	stream := video.New(base, video.Config{
		Format:        p.Format,
		Compatibility: p.Compatibility,
		MaxPacketRate: p.MaxRate,
		MaxPacketSize: p.MaxSize,
	}, slot)

	entry := &streamEntry{kind: kindVideo, dir: avbtypes.DirectionReceive, class: p.Class, videoSlot: slot}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[p.StreamID] = entry
	e.rx.RegisterStream(entry.tracked)
	if p.Preconfigured {
		entry.tracked.Activate()
	}
	return p.StreamID, nil
}

// CreateReceiveClockReferenceStream implements
// createReceiveClockReferenceStream.
func (e *Engine) CreateReceiveClockReferenceStream(p ReceiveCRFParams) (avbtypes.StreamId, error) {
	domain := e.domainFor(p.ClockDomainKind)

	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	if _, exists := e.streams[p.StreamID]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", p.StreamID, ErrStreamExists)
	}

	tspec := crfTSpec(p.Class, p.StampsPerPdu)
	base := avtpstream.NewBase(p.StreamID, tspec, avbtypes.DirectionReceive, domain)
	base.SetAddressing(p.DMAC, avbtypes.MacAddress{}, 0)

	// BaseFreqIndex/Pull/TimestampInterval only matter to the transmit
	// path (WriteToAvbPacket); a receive CRF stream's actual rate comes
	// from the wire data it feeds into domain via Feed, so a placeholder
	// valid index satisfies crf.New's validation without implying 48kHz.
	stream, err := crf.New(base, crf.Config{
		CrfType:          p.CrfType,
		BaseFreqIndex:    7,
		Pull:             crf.PullFlat,
		TimestampsPerPdu: p.StampsPerPdu,
	})
	if err != nil {
		return 0, fmt.Errorf("control: create receive crf stream: %w", err)
	}

	entry := &streamEntry{kind: kindCRF, dir: avbtypes.DirectionReceive, class: p.Class}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[p.StreamID] = entry
	e.rx.RegisterStream(entry.tracked)
	return p.StreamID, nil
}

// CreateTransmitAudioStream implements createTransmitAudioStream.
func (e *Engine) CreateTransmitAudioStream(p TransmitAudioParams) (avbtypes.StreamId, error) {
	domain := e.domainFor(p.ClockDomainKind)
	seq, err := e.seqFor(p.Class)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit audio stream: %w", err)
	}

	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	id := p.StreamID
	if id.IsWildcard() {
		id = e.autoStreamID()
	}
	if _, exists := e.streams[id]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", id, ErrStreamExists)
	}

	tspec := audioTSpec(p.Class, p.Format, p.NumChannels, p.SampleFrequency)
	if err := tspec.Validate(); err != nil {
		return 0, fmt.Errorf("control: create transmit audio stream: %w", err)
	}
	pool, err := newTxPool(e.cfg, tspec)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit audio stream: %w", err)
	}

	base := avtpstream.NewBase(id, tspec, avbtypes.DirectionTransmit, domain)
	base.SetAddressing(p.DMAC, e.cfg.LocalMAC, p.VlanID)
	base.SetPool(pool)

	bendFraction := e.cfg.AudioMaxBendPpm / 1e6
	slot := &audioBufferSlot{}
	stream, err := audio.New(base, audio.Config{
		SampleFrequency:        p.SampleFrequency,
		Format:                 p.Format,
		Compatibility:          p.Compatibility,
		NumChannels:            p.NumChannels,
		PresentationTimeOffset: uint64(p.PresentationTimeOffset.Nanoseconds()),
		Saturate:               e.cfg.AudioSaturate,
		RatioBendRate:          bendFraction,
		RatioBendLimit:         e.cfg.AudioMaxBendPpm,
	}, slot)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit audio stream: %w", err)
	}

	entry := &streamEntry{kind: kindAudio, dir: avbtypes.DirectionTransmit, class: p.Class, audioSlot: slot}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[id] = entry
	if p.Preconfigured {
		seq.ActivateStream(entry.tracked)
		entry.tracked.Activate()
	}
	return id, nil
}

// CreateTransmitVideoStream implements createTransmitVideoStream.
func (e *Engine) CreateTransmitVideoStream(p TransmitVideoParams) (avbtypes.StreamId, error) {
	domain := e.domainFor(p.ClockDomainKind)
	seq, err := e.seqFor(p.Class)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit video stream: %w", err)
	}

	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	id := p.StreamID
	if id.IsWildcard() {
		id = e.autoStreamID()
	}
	if _, exists := e.streams[id]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", id, ErrStreamExists)
	}

	tspec := videoTSpec(p.Class, p.MaxRate, p.MaxSize)
	if err := tspec.Validate(); err != nil {
		return 0, fmt.Errorf("control: create transmit video stream: %w", err)
	}
	pool, err := newTxPool(e.cfg, tspec)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit video stream: %w", err)
	}

	base := avtpstream.NewBase(id, tspec, avbtypes.DirectionTransmit, domain)
	base.SetAddressing(p.DMAC, e.cfg.LocalMAC, p.VlanID)
	base.SetPool(pool)

	slot := &videoBufferSlot{}
	stream := video.New(base, video.Config{
		Format:        p.Format,
		Compatibility: p.Compatibility,
		MaxPacketRate: p.MaxRate,
		MaxPacketSize: p.MaxSize,
		LaunchDelta:   uint64(p.LaunchDelta.Nanoseconds()),
	}, slot)

	entry := &streamEntry{kind: kindVideo, dir: avbtypes.DirectionTransmit, class: p.Class, videoSlot: slot}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[id] = entry
	if p.Preconfigured {
		seq.ActivateStream(entry.tracked)
		entry.tracked.Activate()
	}
	return id, nil
}

// CreateTransmitClockReferenceStream implements
// createTransmitClockReferenceStream.
func (e *Engine) CreateTransmitClockReferenceStream(p TransmitCRFParams) (avbtypes.StreamId, error) {
	domain := e.domainFor(p.ClockDomainKind)
	seq, err := e.seqFor(p.Class)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit crf stream: %w", err)
	}

	e.streamsMu.Lock()
	defer e.streamsMu.Unlock()
	if e.stopped {
		return 0, ErrEngineStopped
	}
	id := p.StreamID
	if id.IsWildcard() {
		id = e.autoStreamID()
	}
	if _, exists := e.streams[id]; exists {
		return 0, fmt.Errorf("control: stream %d: %w", id, ErrStreamExists)
	}

	tspec := crfTSpec(p.Class, p.TimestampsPerPdu)
	pool, err := newTxPool(e.cfg, tspec)
	if err != nil {
		return 0, fmt.Errorf("control: create transmit crf stream: %w", err)
	}

	base := avtpstream.NewBase(id, tspec, avbtypes.DirectionTransmit, domain)
	base.SetAddressing(p.DMAC, e.cfg.LocalMAC, p.VlanID)
	base.SetPool(pool)

	stream, err := crf.New(base, crf.Config{
		CrfType:           p.CrfType,
		BaseFreqIndex:     p.BaseFreqIndex,
		Pull:              p.Pull,
		TimestampsPerPdu:  p.TimestampsPerPdu,
		TimestampInterval: p.TimestampInterval,
	})
	if err != nil {
		return 0, fmt.Errorf("control: create transmit crf stream: %w", err)
	}

	entry := &streamEntry{kind: kindCRF, dir: avbtypes.DirectionTransmit, class: p.Class}
	entry.tracked = &countingStream{avbStream: stream, entry: entry}
	e.streams[id] = entry
	if p.Preconfigured {
		seq.ActivateStream(entry.tracked)
		entry.tracked.Activate()
	}
	return id, nil
}

// DestroyAvbStream implements destroyAvbStream.
func (e *Engine) DestroyAvbStream(id avbtypes.StreamId) error {
	e.streamsMu.Lock()
	entry, ok := e.streams[id]
	if !ok {
		e.streamsMu.Unlock()
		return fmt.Errorf("control: destroy %d: %w", id, ErrStreamNotFound)
	}
	delete(e.streams, id)
	e.streamsMu.Unlock()

	if entry.dir == avbtypes.DirectionTransmit {
		if seq, err := e.seqFor(entry.class); err == nil {
			seq.DeactivateStream(id)
		}
	} else {
		e.rx.UnregisterStream(id)
	}
	entry.tracked.Deactivate()
	return nil
}

// ConnectAudioStreams implements connectAudioStreams: wires buf as the
// stream's local buffer, independent of when the stream was created.
func (e *Engine) ConnectAudioStreams(id avbtypes.StreamId, buf audio.LocalBuffer) error {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return fmt.Errorf("control: connect %d: %w", id, ErrStreamNotFound)
	}
	if entry.kind != kindAudio {
		return fmt.Errorf("control: connect %d: %w", id, ErrWrongKind)
	}
	entry.audioSlot.set(buf)
	return nil
}

// ConnectVideoStreams implements connectVideoStreams.
func (e *Engine) ConnectVideoStreams(id avbtypes.StreamId, buf video.LocalBuffer) error {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return fmt.Errorf("control: connect %d: %w", id, ErrStreamNotFound)
	}
	if entry.kind != kindVideo {
		return fmt.Errorf("control: connect %d: %w", id, ErrWrongKind)
	}
	entry.videoSlot.set(buf)
	return nil
}

// DisconnectStreams implements disconnectStreams: detaches whichever local
// buffer slot the stream has (a no-op for CRF streams, which have none).
func (e *Engine) DisconnectStreams(id avbtypes.StreamId) error {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return fmt.Errorf("control: disconnect %d: %w", id, ErrStreamNotFound)
	}
	switch entry.kind {
	case kindAudio:
		entry.audioSlot.set(nil)
	case kindVideo:
		entry.videoSlot.set(nil)
	}
	return nil
}

// ActivateStream implements activateStream: for a transmit stream this adds
// it to its SR class's sequencer active set (so it is scheduled at all);
// for both directions it flips the stream's avtpstream.Base active flag,
// moving it from Inactive to Valid at once, without waiting for a PDU.
func (e *Engine) ActivateStream(id avbtypes.StreamId) error {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return fmt.Errorf("control: activate %d: %w", id, ErrStreamNotFound)
	}
	if entry.dir == avbtypes.DirectionTransmit {
		seq, err := e.seqFor(entry.class)
		if err != nil {
			return fmt.Errorf("control: activate %d: %w", id, err)
		}
		seq.ActivateStream(entry.tracked)
	}
	entry.tracked.Activate()
	return nil
}

// DeactivateStream implements deactivateStream, the inverse of
// ActivateStream.
func (e *Engine) DeactivateStream(id avbtypes.StreamId) error {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return fmt.Errorf("control: deactivate %d: %w", id, ErrStreamNotFound)
	}
	if entry.dir == avbtypes.DirectionTransmit {
		if seq, err := e.seqFor(entry.class); err == nil {
			seq.DeactivateStream(id)
		}
	}
	entry.tracked.Deactivate()
	return nil
}

// GetAvbStreamInfo implements getAvbStreamInfo, returning the stream's
// lifecycle fields and diagnostic counters, or found=false if id is
// unknown.
func (e *Engine) GetAvbStreamInfo(id avbtypes.StreamId) (StreamInfo, bool) {
	entry, ok := e.lookupEntry(id)
	if !ok {
		return StreamInfo{}, false
	}
	var seq *txsequencer.Sequencer
	if entry.dir == avbtypes.DirectionTransmit {
		if s, err := e.seqFor(entry.class); err == nil {
			seq = s
		}
	}
	return StreamInfo{
		StreamID: id,
		Kind:     entry.kind.String(),
		Dir:      entry.dir,
		Class:    entry.class,
		State:    entry.tracked.State(),
		Counters: entry.snapshot(seq),
	}, true
}
