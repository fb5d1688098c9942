package avtpstream

import (
	"testing"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase() *Base {
	tspec := avbtypes.TSpec{Class: avbtypes.SrClassA, MaxFrameSize: 200, MaxIntervalFrames: 1, PacketsPerSecond: 8000}
	return NewBase(avbtypes.NewStreamId(avbtypes.MacAddress{1, 2, 3, 4, 5, 6}, 1), tspec, avbtypes.DirectionReceive, nil)
}

func TestActivateTransitionsToValid(t *testing.T) {
	b := newTestBase()
	assert.Equal(t, avbtypes.StateInactive, b.State())

	var events []avbtypes.StreamStatus
	b.OnStatus(func(s avbtypes.StreamStatus) { events = append(events, s) })

	b.Activate()
	require.Len(t, events, 1)
	assert.Equal(t, avbtypes.StateValid, events[0].State)
}

func TestDeactivateForcesInactive(t *testing.T) {
	b := newTestBase()
	b.Activate()
	b.Deactivate()
	assert.Equal(t, avbtypes.StateInactive, b.State())
	assert.False(t, b.IsActive())
}

func TestActivateDeactivateActivateIdempotent(t *testing.T) {
	b := newTestBase()
	b.Activate()
	b.Deactivate()
	b.Activate()
	assert.Equal(t, avbtypes.StateValid, b.State())
	assert.True(t, b.IsActive())
}

func TestValidationFailureMovesToInvalid(t *testing.T) {
	b := newTestBase()
	b.Activate()
	b.NoteValidationFailure()
	assert.Equal(t, avbtypes.StateInvalid, b.State())
}

func TestCheckIdleTransitionsToNoData(t *testing.T) {
	b := newTestBase()
	b.SetIdleTimeout(1 * time.Millisecond)
	b.Activate()
	b.NotePduAccepted(time.Now())
	time.Sleep(3 * time.Millisecond)
	b.CheckIdle(time.Now())
	assert.Equal(t, avbtypes.StateNoData, b.State())
}

func TestChangeStreamIDRejectedWhileActive(t *testing.T) {
	b := newTestBase()
	b.Activate()
	err := b.ChangeStreamID(avbtypes.StreamId(42))
	assert.ErrorIs(t, err, avbtypes.ErrAlreadyInUse)
}
