package shmconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAttachDetachDestroy(t *testing.T) {
	dir := t.TempDir()

	creator, err := Create(dir, "video0", 8, 4)
	require.NoError(t, err)
	require.NotNil(t, creator.Ring())

	client, err := Attach(dir, "video0", 8, 4)
	require.NoError(t, err)
	require.NotNil(t, client.Ring())

	idx, err := client.Ring().AddReader(42)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)

	require.NoError(t, client.Detach())
	require.NoError(t, creator.Destroy())
}

func TestCreate_AlreadyInUse(t *testing.T) {
	dir := t.TempDir()

	creator, err := Create(dir, "video1", 8, 4)
	require.NoError(t, err)
	defer creator.Destroy()

	_, err = Create(dir, "video1", 8, 4)
	assert.ErrorIs(t, err, ErrAlreadyInUse)
}

func TestDestroy_RejectsClientConnection(t *testing.T) {
	dir := t.TempDir()

	creator, err := Create(dir, "video2", 8, 4)
	require.NoError(t, err)
	defer creator.Destroy()

	client, err := Attach(dir, "video2", 8, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, client.Destroy(), ErrNotInitialized)
	assert.NoError(t, client.Detach())
}

func TestCreate_InvalidName(t *testing.T) {
	_, err := Create(t.TempDir(), "", 8, 4)
	assert.ErrorIs(t, err, ErrInvalidParam)
}
