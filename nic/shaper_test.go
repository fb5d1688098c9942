package nic

import (
	"testing"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/stretchr/testify/assert"
)

func TestComputeShaperCredits_ClassA(t *testing.T) {
	credits := ComputeShaperCredits(LinkRate1G, 10_000_000, 1518, 0, 0, false)
	assert.Equal(t, int64(10_000_000), credits.IdleSlopeBps)
	assert.Positive(t, credits.HiCreditBits)
	assert.Negative(t, credits.LoCreditBits)
}

func TestComputeShaperCredits_ClassBSubtractsClassA(t *testing.T) {
	classA := ComputeShaperCredits(LinkRate1G, 10_000_000, 1518, 0, 0, false)
	classB := ComputeShaperCredits(LinkRate1G, 20_000_000, 1518, classA.IdleSlopeBps, 1518, true)
	assert.Equal(t, int64(20_000_000-10_000_000), classB.IdleSlopeBps)

	// When class A alone would exceed class B's own bandwidth, the
	// subtraction clamps at zero rather than going negative.
	starved := ComputeShaperCredits(LinkRate1G, 2_000_000, 1518, classA.IdleSlopeBps, 1518, true)
	assert.Equal(t, int64(0), starved.IdleSlopeBps)
}

func TestSumBandwidth(t *testing.T) {
	specs := []avbtypes.TSpec{
		{PacketsPerSecond: 8000, MaxFrameSize: 200},
		{PacketsPerSecond: 4000, MaxFrameSize: 100},
	}
	total := SumBandwidth(specs)
	assert.Equal(t, int64(specs[0].RequiredBandwidth()+specs[1].RequiredBandwidth())*1000, total)
}
