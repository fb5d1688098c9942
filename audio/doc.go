// Package audio implements the AAF/IEC61883-6 audio AVTP stream: transmit
// anchoring and sample-format conversion, media-clock drift bending, and
// receive-side sequence/format validation.
//
// Grounded on the teacher's saturating-arithmetic style used for gain and
// level adjustment in its own audio effects processing, adapted here for
// the saturating sample conversion helpers.
package audio
