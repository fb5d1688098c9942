// Package avtpstream implements the base AVTP stream shared by every
// subtype: traffic spec, stream id (lockable), MAC/VLAN addressing,
// direction, lifecycle state machine, activation flag, a non-owning clock
// domain reference, and — for transmit streams — a packet pool.
//
// Grounded on spec.md §3's AvtpStream definition and the teacher's
// callback-field pattern in av/manager.go for the StreamStatus surface.
package avtpstream
