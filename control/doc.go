// Package control implements the module's control API (spec §6): the
// exported method set of Engine wires together the packet pool, clock
// domains, AVTP stream subtypes, the transmit sequencer and receive
// engine into the createXStream/destroyAvbStream/connectXStreams/
// activateStream/getAvbStreamInfo surface that a configuration front-end
// (the daemon binary, a registry client) drives.
//
// Engine is built from Options via NewOptions, the same functional-options
// shape the teacher uses for toxcore.Options/NewOptions: a single struct of
// knobs with documented defaults, passed once to New.
package control
