package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePtp struct {
	now   uint64
	epoch uint64
}

func (f *fakePtp) Now() uint64          { return f.now }
func (f *fakePtp) EpochCounter() uint64 { return f.epoch }

func TestPTPEventCountScalesWithRate(t *testing.T) {
	src := &fakePtp{}
	d := NewPTP(src, 48000)
	assert.Equal(t, uint64(48000), d.EventCount(1_000_000_000))
	assert.Equal(t, uint64(24000), d.EventCount(500_000_000))
}

func TestRxRecoveredLocksAfterConsistentFeeds(t *testing.T) {
	src := &fakePtp{}
	d := NewRxRecovered(src, 48000)
	assert.Equal(t, LockInit, d.LockState())

	base := uint64(1_000_000_000)
	for i := 0; i < lockThreshold+1; i++ {
		t := base + uint64(i)*125_000 // 125us AVTP Class A interval
		events := uint64(i) * 6       // 48kHz / 8000pps = 6 samples/packet
		d.Feed(t, events)
	}
	assert.Equal(t, LockLocked, d.LockState())
}

func TestEpochJumpBumpsDomainEpoch(t *testing.T) {
	src := &fakePtp{}
	d := NewRxRecovered(src, 48000)
	d.Feed(1000, 0)
	d.Feed(2000, 1)

	src.epoch++
	d.Feed(3000, 2)
	assert.Equal(t, uint64(1), d.Epoch())
}

func TestRequestResetForcesInit(t *testing.T) {
	src := &fakePtp{}
	d := NewRxRecovered(src, 48000)
	d.Feed(1000, 0)
	d.RequestReset()
	assert.Equal(t, LockInit, d.LockState())
	assert.Equal(t, uint64(0), d.EventCount(5000))
}
