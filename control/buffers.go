package control

import (
	"sync"

	"github.com/avbcore/streamhandler/audio"
	"github.com/avbcore/streamhandler/video"
)

// audioBufferSlot is a swappable audio.LocalBuffer: createTransmit/
// ReceiveAudioStream constructs the audio.Stream once, wired to a slot
// instead of a concrete buffer, so connectAudioStreams/disconnectStreams
// (spec §6, issued independently of stream creation) can attach or detach
// the real local buffer later without recreating the stream.
type audioBufferSlot struct {
	mu  sync.RWMutex
	buf audio.LocalBuffer
}

func (s *audioBufferSlot) set(buf audio.LocalBuffer) {
	s.mu.Lock()
	s.buf = buf
	s.mu.Unlock()
}

func (s *audioBufferSlot) connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf != nil
}

func (s *audioBufferSlot) PullSamples(n, channels int) ([]int32, int) {
	s.mu.RLock()
	buf := s.buf
	s.mu.RUnlock()
	if buf == nil {
		return nil, 0
	}
	return buf.PullSamples(n, channels)
}

func (s *audioBufferSlot) PushSamples(samples []int32, channels int) {
	s.mu.RLock()
	buf := s.buf
	s.mu.RUnlock()
	if buf != nil {
		buf.PushSamples(samples, channels)
	}
}

// videoBufferSlot is video.LocalBuffer's equivalent of audioBufferSlot.
type videoBufferSlot struct {
	mu  sync.RWMutex
	buf video.LocalBuffer
}

func (s *videoBufferSlot) set(buf video.LocalBuffer) {
	s.mu.Lock()
	s.buf = buf
	s.mu.Unlock()
}

func (s *videoBufferSlot) connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf != nil
}

func (s *videoBufferSlot) PopDescriptor() (video.Descriptor, bool) {
	s.mu.RLock()
	buf := s.buf
	s.mu.RUnlock()
	if buf == nil {
		return video.Descriptor{}, false
	}
	return buf.PopDescriptor()
}

func (s *videoBufferSlot) PushDescriptor(d video.Descriptor) {
	s.mu.RLock()
	buf := s.buf
	s.mu.RUnlock()
	if buf != nil {
		buf.PushDescriptor(d)
	}
}
