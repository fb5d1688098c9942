// Package txsequencer implements one transmit sequencer worker per SR
// class (spec §4.7): TX window advancement, per-stream packet fetching,
// launch-time ordering, hardware shaper credit programming and reclaim.
//
// Grounded on spec.md §4.7 and original_source's
// IasAvbTransmitSequencer.cpp for the cue/reset/drop threshold rules and
// the updateShaper formula (the latter lives in package nic).
package txsequencer
