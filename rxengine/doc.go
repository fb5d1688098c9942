// Package rxengine implements the single-worker receive engine (spec
// §4.6): raw-socket polling, EtherType/VLAN parsing, StreamID classification
// with exact-then-wildcard lookup, per-stream idle detection and
// presentation-time discard.
package rxengine
