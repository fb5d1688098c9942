package txsequencer

import (
	"context"
	"testing"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/nic"
	"github.com/avbcore/streamhandler/packetpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLaunch(t *testing.T) {
	const ms = time.Millisecond
	cases := []struct {
		name   string
		delta  int64
		expect launchAction
	}{
		{"on time", 0, launchOnTime},
		{"way beyond", int64(4 * ms), launchWayBeyond},
		{"way behind", int64(-5 * ms), launchWayBehind},
		{"slightly behind", int64(-2 * ms), launchSlightlyBehind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyLaunch(1000, uint64(int64(1000)+tc.delta), 3*ms, 4*ms, 1*ms)
			assert.Equal(t, tc.expect, got)
		})
	}
}

type fakePtp struct {
	now   uint64
	epoch uint64
}

func (f *fakePtp) Now() uint64          { return f.now }
func (f *fakePtp) EpochCounter() uint64 { return f.epoch }

type fakeStream struct {
	id       avbtypes.StreamId
	active   bool
	pool     *packetpool.Pool
	tspec    avbtypes.TSpec
	attime   uint64
	dummy    bool
	prepared int
}

func (f *fakeStream) StreamID() avbtypes.StreamId      { return f.id }
func (f *fakeStream) IsActive() bool                   { return f.active }
func (f *fakeStream) Pool() *packetpool.Pool            { return f.pool }
func (f *fakeStream) TSpec() avbtypes.TSpec             { return f.tspec }
func (f *fakeStream) Activate()                         { f.active = true }
func (f *fakeStream) Deactivate()                       { f.active = false }
func (f *fakeStream) PrepareAvbPacket(pkt *packetpool.Packet, launchTime uint64) error {
	f.prepared++
	if f.dummy {
		pkt.MakeDummy()
		return nil
	}
	pkt.Attime = f.attime
	pkt.Len = pkt.PayloadOffset + 4
	return nil
}

type fakeTx struct {
	submitted []*packetpool.Packet
	inFlight  []*packetpool.Packet
}

func (f *fakeTx) Submit(pkt *packetpool.Packet) error {
	f.submitted = append(f.submitted, pkt)
	f.inFlight = append(f.inFlight, pkt)
	return nil
}
func (f *fakeTx) Reclaim() []*packetpool.Packet {
	done := f.inFlight
	f.inFlight = nil
	return done
}
func (f *fakeTx) Close() error { return nil }

func newTestSequencer(t *testing.T) (*Sequencer, *fakeTx, *fakePtp) {
	t.Helper()
	tx := &fakeTx{}
	ptp := &fakePtp{now: 1_000_000}
	cfg := DefaultConfig(avbtypes.SrClassA)
	return New(cfg, tx, ptp, nic.NoopShaper{}, nil), tx, ptp
}

func TestSequencer_SubmitsInWindowPacket(t *testing.T) {
	seq, tx, ptp := newTestSequencer(t)

	pool, err := packetpool.Init(64, 4)
	require.NoError(t, err)

	stream := &fakeStream{id: 1, active: true, pool: pool, attime: ptp.now}
	seq.ActivateStream(stream)
	seq.windowStart = ptp.now

	seq.runCycle()

	assert.Len(t, tx.submitted, 1)
	// one prepare for the submitted packet, one for the next packet the
	// cycle fetches right after a successful submit.
	assert.Equal(t, 2, stream.prepared)
}

func TestSequencer_DummyPacketResetsWatchdogWithoutSubmit(t *testing.T) {
	seq, tx, ptp := newTestSequencer(t)
	pool, err := packetpool.Init(64, 4)
	require.NoError(t, err)

	stream := &fakeStream{id: 2, active: true, pool: pool, dummy: true}
	seq.windowStart = ptp.now

	watchdogHits := 0
	seq.OnWatchdogReset(func() { watchdogHits++ })
	seq.ActivateStream(stream)

	seq.runCycle()

	assert.Empty(t, tx.submitted)
	assert.Equal(t, 1, watchdogHits)
	assert.Equal(t, pool.FreeCount(), 4) // dummy packet returned, nothing leaked
}

func TestSequencer_DeactivateReturnsHeldPacket(t *testing.T) {
	seq, _, ptp := newTestSequencer(t)
	pool, err := packetpool.Init(64, 4)
	require.NoError(t, err)

	// launch time past this cycle's window but within the prefetch
	// threshold, so runCycle fetches and holds the packet without
	// submitting it or triggering a reset.
	seq.cfg.PrefetchThreshold = 10 * time.Millisecond
	stream := &fakeStream{id: 3, active: true, pool: pool, attime: ptp.now + uint64(5*time.Millisecond)}
	seq.windowStart = ptp.now
	seq.ActivateStream(stream)
	seq.runCycle()

	require.Len(t, seq.sequence, 1)
	require.NotNil(t, seq.sequence[0].packet)

	seq.DeactivateStream(stream.id)
	seq.syncSequence()

	assert.Empty(t, seq.sequence)
	assert.Equal(t, 4, pool.FreeCount())
}

func TestSequencer_RunStopsOnContextCancel(t *testing.T) {
	seq, _, _ := newTestSequencer(t)
	seq.cfg.Pitch = time.Millisecond
	seq.cfg.Width = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- seq.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
