package shmconn

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/avbcore/streamhandler/ringbuffer"
)

// DefaultBaseDir mirrors where POSIX shm_open objects live; spec §6 names
// the segment itself `avb_<connectionName>`, this package supplies the
// directory it lives under.
const DefaultBaseDir = "/dev/shm"

// Connection is one named shared-memory video ring buffer connection, spec
// §9 supplement (IasAvbVideoShmConnection): a creator brings the segment
// up, a bounded number of clients attach to and detach from it
// independently, and only the creator's Destroy unlinks it.
type Connection struct {
	name    string
	path    string
	ring    *ringbuffer.Ring
	creator bool
}

// Name returns the connection's bare name (without the `avb_` prefix or
// base directory).
func (c *Connection) Name() string { return c.name }

// Ring returns the attached or created ring buffer.
func (c *Connection) Ring() *ringbuffer.Ring { return c.ring }

func segmentPath(baseDir, name string) (string, error) {
	if name == "" {
		return "", ErrInvalidParam
	}
	return filepath.Join(baseDir, "avb_"+name), nil
}

// Create brings up a new named connection, sized for bufferSize bytes per
// buffer and numBuffers buffers, per spec §4.8's layout. Create fails with
// ErrAlreadyInUse if the segment already exists on disk — a stale segment
// from a prior crashed daemon must be explicitly removed by the caller
// (e.g. on supervised restart) before re-creating, since shmconn itself
// can't distinguish "still in use by live readers" from "leaked".
func Create(baseDir, name string, bufferSize, numBuffers uint32) (*Connection, error) {
	path, err := segmentPath(baseDir, name)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return nil, fmt.Errorf("shmconn: %s: %w", path, ErrAlreadyInUse)
	}
	r, err := ringbuffer.NewNamed(path, bufferSize, numBuffers)
	if err != nil {
		return nil, fmt.Errorf("shmconn: create %s: %w", name, err)
	}
	return &Connection{name: name, path: path, ring: r, creator: true}, nil
}

// Attach opens an existing named connection as a client, without
// re-initializing the ring buffer's header.
func Attach(baseDir, name string, bufferSize, numBuffers uint32) (*Connection, error) {
	path, err := segmentPath(baseDir, name)
	if err != nil {
		return nil, err
	}
	r, err := ringbuffer.AttachNamed(path, bufferSize, numBuffers)
	if err != nil {
		return nil, fmt.Errorf("shmconn: attach %s: %w", name, err)
	}
	return &Connection{name: name, path: path, ring: r, creator: false}, nil
}

// Detach unmaps the segment without removing it. Both creator and client
// connections call Detach on normal shutdown; only the creator additionally
// calls Destroy.
func (c *Connection) Detach() error {
	if c.ring == nil {
		return ErrNotInitialized
	}
	err := c.ring.Close()
	c.ring = nil
	return err
}

// Destroy unlinks the backing segment from the filesystem. Only the
// creator may call this — spec §9 supplement's "creator owns destruction,
// clients only detach". Calling Destroy on a client connection is a
// programming error and returns ErrNotInitialized without touching the
// filesystem.
func (c *Connection) Destroy() error {
	if !c.creator {
		return ErrNotInitialized
	}
	if c.ring != nil {
		if err := c.Detach(); err != nil {
			return err
		}
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shmconn: destroy %s: %w", c.name, err)
	}
	return nil
}
