// Package packetpool implements the fixed-capacity packet pool shared by
// every transmit stream: a LIFO free stack of pre-allocated packet buffers,
// validated by a magic constant and a home-pool back-reference on return.
//
// Grounded on original_source/private/inc/avb_streamhandler/IasAvbPacketPool.hpp
// and IasAvbPacket.hpp; the NIC-owned DMA page allocation those headers
// describe is replaced with plain Go byte slices, per the module's
// redesign around an opaque transmit
// device rather than libigb page allocation.
package packetpool
