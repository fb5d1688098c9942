package nic

import (
	"fmt"
	"sync"
	"time"

	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/avbcore/streamhandler/packetpool"
	"golang.org/x/sys/unix"
)

// RawSocket is an AF_PACKET/ETH_P_IEEE1722 RxDevice/TxDevice pair, grounded
// on the AF_XDP/PACKET_MMAP raw-socket setup in
// other_examples/56812261_cezamee-Yoda__internal-core-af_xdp.go.go and
// other_examples/2e62cd17_Talismancer-gvisor-ligolo__pkg-tcpip-link-fdbased-mmap.go.go
// — same family of unix.Socket/unix.Bind/unix.SetsockoptPacketMreq calls,
// reused here for a 1722 EtherType instead of IPv4.
//
// This stands in for direct-DMA igb_avb access: a real AVB deployment would
// typically use the driver's queue-0 flex filter and launch-time ring
// instead, but the raw socket is the portable fallback spec §4.6 names
// ("open a raw socket on ETH_P_IEEE1722, bind to the interface index").
// Launch-time ("attime") scheduling on a raw socket has no hardware
// equivalent: Submit writes each frame as soon as it is called and does not
// wait for pkt.Attime — launch-time scheduling requires the opaque
// TxDevice this type is one implementation of, not a stdlib-achievable
// substitute.
type RawSocket struct {
	ifIndex int

	mu     sync.Mutex
	rxFd   int
	txFd   int
	groups map[avbtypes.MacAddress]struct{}

	reclaimed []*packetpool.Packet
}

// OpenRawSocket opens two AF_PACKET/ETH_P_IEEE1722 sockets (rx, tx) bound to
// ifIndex, matching spec §4.6's socket setup step.
func OpenRawSocket(ifIndex int) (*RawSocket, error) {
	proto := int(htons(EtherTypeIEEE1722))

	rxFd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, proto)
	if err != nil {
		return nil, fmt.Errorf("%w: open rx raw socket: %v", avbtypes.ErrInitializationFailed, err)
	}
	txFd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, proto)
	if err != nil {
		unix.Close(rxFd)
		return nil, fmt.Errorf("%w: open tx raw socket: %v", avbtypes.ErrInitializationFailed, err)
	}

	addr := &unix.SockaddrLinklayer{Protocol: uint16(proto), Ifindex: ifIndex}
	if err := unix.Bind(rxFd, addr); err != nil {
		unix.Close(rxFd)
		unix.Close(txFd)
		return nil, fmt.Errorf("%w: bind rx socket to ifindex %d: %v", avbtypes.ErrInitializationFailed, ifIndex, err)
	}
	if err := unix.Bind(txFd, addr); err != nil {
		unix.Close(rxFd)
		unix.Close(txFd)
		return nil, fmt.Errorf("%w: bind tx socket to ifindex %d: %v", avbtypes.ErrInitializationFailed, ifIndex, err)
	}

	return &RawSocket{
		ifIndex: ifIndex,
		rxFd:    rxFd,
		txFd:    txFd,
		groups:  make(map[avbtypes.MacAddress]struct{}),
	}, nil
}

func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// ReadFrame waits up to timeout for one frame via SO_RCVTIMEO, spec §4.6
// "wait up to idleWait for a packet".
func (r *RawSocket) ReadFrame(buf []byte, timeout time.Duration) (int, error) {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(r.rxFd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return 0, fmt.Errorf("nic: set rx timeout: %w", err)
	}
	n, _, err := unix.Recvfrom(r.rxFd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// JoinMulticast joins the per-stream multicast group mac via
// PACKET_ADD_MEMBERSHIP, spec §4.6.
func (r *RawSocket) JoinMulticast(mac avbtypes.MacAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[mac]; ok {
		return nil
	}
	mreq := unix.PacketMreq{
		Ifindex: int32(r.ifIndex),
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    6,
	}
	copy(mreq.Address[:6], mac[:])
	if err := unix.SetsockoptPacketMreq(r.rxFd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		return fmt.Errorf("nic: join multicast %s: %w", mac, err)
	}
	r.groups[mac] = struct{}{}
	return nil
}

// LeaveMulticast drops the membership added by JoinMulticast.
func (r *RawSocket) LeaveMulticast(mac avbtypes.MacAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[mac]; !ok {
		return nil
	}
	mreq := unix.PacketMreq{
		Ifindex: int32(r.ifIndex),
		Type:    unix.PACKET_MR_MULTICAST,
		Alen:    6,
	}
	copy(mreq.Address[:6], mac[:])
	if err := unix.SetsockoptPacketMreq(r.rxFd, unix.SOL_PACKET, unix.PACKET_DROP_MEMBERSHIP, &mreq); err != nil {
		return fmt.Errorf("nic: leave multicast %s: %w", mac, err)
	}
	delete(r.groups, mac)
	return nil
}

// LinkUp always reports true: a raw socket has no direct carrier signal and
// this type does not read the interface's operstate; a
// deployment wired to a real NIC driver substitutes a RxDevice that checks
// IFF_RUNNING.
func (r *RawSocket) LinkUp() bool { return true }

// Submit writes pkt's frame to the wire immediately; pkt.Attime is not
// honoured (see type doc for why a raw socket cannot honor attime via
// hardware scheduling).
func (r *RawSocket) Submit(pkt *packetpool.Packet) error {
	if pkt.IsDummy() {
		return nil
	}
	n, err := unix.Write(r.txFd, pkt.Buf[:pkt.Len])
	if err != nil {
		return classifySubmitError(err)
	}
	if n < pkt.Len {
		return &SubmitError{Kind: SubmitErrorRingFull, Err: fmt.Errorf("nic: short write %d/%d", n, pkt.Len)}
	}
	r.mu.Lock()
	r.reclaimed = append(r.reclaimed, pkt)
	r.mu.Unlock()
	return nil
}

// Reclaim returns packets Submit has completed writing since the last call.
// A raw socket's write() is synchronous, so every successfully submitted
// packet is immediately reclaimable.
func (r *RawSocket) Reclaim() []*packetpool.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := r.reclaimed
	r.reclaimed = nil
	return done
}

func classifySubmitError(err error) error {
	switch err {
	case unix.EINVAL, unix.ENXIO:
		return &SubmitError{Kind: SubmitErrorFatal, Err: err}
	case unix.ENOSPC:
		return &SubmitError{Kind: SubmitErrorRingFull, Err: err}
	default:
		return &SubmitError{Kind: SubmitErrorTransient, Err: err}
	}
}

// Close releases both sockets.
func (r *RawSocket) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err1 := unix.Close(r.rxFd)
	err2 := unix.Close(r.txFd)
	if err1 != nil {
		return err1
	}
	return err2
}
