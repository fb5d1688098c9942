package packetpool

import (
	"fmt"
	"sync"

	"github.com/avbcore/streamhandler/avbtypes"
)

// MaxPoolSize is the largest pool capacity this module supports, derived
// from half the maximum TX ring size, same bound as the original's
// cMaxPoolSize.
const MaxPoolSize = 2048

// MaxBufferSize is the largest single packet buffer: an untagged Ethernet
// frame plus room for one VLAN tag, matching the original's
// ETH_FRAME_LEN + 4.
const MaxBufferSize = 1514 + 4

// Pool is a fixed-capacity, mutex-serialized LIFO stack of Packets. Every
// live Packet's HomePool points at exactly one Pool; a Pool going away with
// outstanding packets is a programming error the caller must avoid (this
// module does not attempt to detect it, matching the original's contract).
type Pool struct {
	mu sync.Mutex

	packetSize int
	poolSize   uint32

	all  []*Packet // the full backing set, index-stable for reset()
	free []*Packet // LIFO free stack
}

// Init allocates poolSize packets of packetSize bytes each and pushes them
// onto the free stack. poolSize must be within (0, MaxPoolSize] and
// packetSize within (0, MaxBufferSize].
func Init(packetSize int, poolSize uint32) (*Pool, error) {
	if packetSize <= 0 || packetSize > MaxBufferSize {
		return nil, fmt.Errorf("%w: packetpool packetSize %d out of range", avbtypes.ErrInvalidParam, packetSize)
	}
	if poolSize == 0 || poolSize > MaxPoolSize {
		return nil, fmt.Errorf("%w: packetpool poolSize %d out of range", avbtypes.ErrInvalidParam, poolSize)
	}

	p := &Pool{
		packetSize: packetSize,
		poolSize:   poolSize,
		all:        make([]*Packet, poolSize),
		free:       make([]*Packet, 0, poolSize),
	}
	for i := range p.all {
		pkt := &Packet{home: p, magic: magic, Buf: make([]byte, packetSize)}
		p.all[i] = pkt
		p.free = append(p.free, pkt)
	}
	return p, nil
}

// PacketSize returns the fixed per-packet buffer size.
func (p *Pool) PacketSize() int {
	return p.packetSize
}

// PoolSize returns the fixed pool capacity.
func (p *Pool) PoolSize() uint32 {
	return p.poolSize
}

// GetPacket pops a packet off the free stack. It returns nil, ErrNotEnoughMemory
// when the pool is exhausted.
func (p *Pool) GetPacket() (*Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return nil, avbtypes.ErrNotEnoughMemory
	}
	pkt := p.free[n-1]
	p.free = p.free[:n-1]
	pkt.Dummy = false
	pkt.Len = 0
	pkt.Attime = 0
	return pkt, nil
}

// GetDummyPacket is GetPacket followed by MakeDummy, matching the
// original's getDummyPacket convenience wrapper.
func (p *Pool) GetDummyPacket() (*Packet, error) {
	pkt, err := p.GetPacket()
	if err != nil {
		return nil, err
	}
	pkt.MakeDummy()
	return pkt, nil
}

// ReturnPacket validates packet's magic and home pool, then pushes it back
// onto the free stack. Safe to call concurrently from a TX-completion path
// and the sequencer; each call only takes the short critical section
// needed to push one entry.
func (p *Pool) ReturnPacket(pkt *Packet) error {
	if pkt == nil || !pkt.IsValid() {
		return fmt.Errorf("%w: returnPacket on invalid packet", avbtypes.ErrInvalidParam)
	}
	if pkt.home != p {
		return fmt.Errorf("%w: returnPacket to foreign pool", avbtypes.ErrInvalidParam)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, pkt)
	return nil
}

// InitAllPacketsFromTemplate overwrites every packet currently owned by the
// pool — free or outstanding — with tmpl's buffer contents and payload
// offset. tmpl must itself belong to this pool. Used once header fields
// (DMAC, StreamID, VLAN, AVTP subtype) are fixed for the owning stream.
func (p *Pool) InitAllPacketsFromTemplate(tmpl *Packet) error {
	if tmpl == nil || tmpl.home != p {
		return fmt.Errorf("%w: template does not belong to this pool", avbtypes.ErrInvalidParam)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pkt := range p.all {
		if pkt == tmpl {
			continue
		}
		copy(pkt.Buf, tmpl.Buf)
		pkt.PayloadOffset = tmpl.PayloadOffset
	}
	return nil
}

// Reset applies tmpl's contents to packets currently on the free stack
// only; outstanding (leased) packets are left untouched, same
// as the original's reset().
func (p *Pool) Reset(tmpl *Packet) error {
	if tmpl == nil || tmpl.home != p {
		return fmt.Errorf("%w: template does not belong to this pool", avbtypes.ErrInvalidParam)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pkt := range p.free {
		if pkt == tmpl {
			continue
		}
		copy(pkt.Buf, tmpl.Buf)
		pkt.PayloadOffset = tmpl.PayloadOffset
	}
	return nil
}

// FreeCount returns the number of packets currently on the free stack, for
// tests and diagnostics.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
