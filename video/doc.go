// Package video implements the H.264/RTP and MPEG-TS/IEC61883 video AVTP
// stream: dummy-packet emission, RTP sequence-error tracking, AVTP
// sequence-to-RTP high-byte reconstruction, and 61883-6/CIP framing for
// MPEG-TS payloads.
//
// Grounded on the pion/rtp header codec for RTP marshal/unmarshal, and on
// the teacher's wraparound-distance comparison idiom (used for its own
// RTP sequence-number math) for the rolling sequence reconstruction.
package video
