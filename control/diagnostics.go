package control

import (
	"github.com/avbcore/streamhandler/avbtypes"
	"github.com/pion/rtcp"
)

// ssrcForStream derives a stable RTCP SSRC from a StreamId so the same
// stream reports under the same identifier across cycles.
func ssrcForStream(id avbtypes.StreamId) uint32 {
	return uint32(id) ^ uint32(id>>32)
}

// buildReceiverReport packages one video stream's diagnostic Counters
// into an RTCP receiver-report shape. This is never sent as RTCP
// wire traffic — AVB carries none — it's reused here purely as an
// already-understood, compact summary format: FractionLost/TotalLost from
// validation errors and drops, Jitter standing in for the reordered-packet
// count.
func buildReceiverReport(id avbtypes.StreamId, c Counters) rtcp.ReceiverReport {
	var fractionLost uint8
	total := c.FramesRX + c.ValidationErrors
	if total > 0 {
		fractionLost = uint8((c.ValidationErrors * 256) / total)
	}
	return rtcp.ReceiverReport{
		SSRC: ssrcForStream(id),
		Reports: []rtcp.ReceptionReport{
			{
				SSRC:               ssrcForStream(id),
				FractionLost:       fractionLost,
				TotalLost:          uint32(c.ValidationErrors + c.Dropped),
				LastSequenceNumber: uint32(c.FramesRX),
				Jitter:             uint32(c.Reordered),
			},
		},
	}
}

// DiagnosticsReports returns one marshaled RTCP receiver report per
// receive-direction video stream currently registered, keyed by StreamID.
// A front-end can log or export these instead of reading Counters fields
// one at a time.
func (e *Engine) DiagnosticsReports() (map[avbtypes.StreamId][]byte, error) {
	e.streamsMu.RLock()
	type reportSrc struct {
		id avbtypes.StreamId
		c  Counters
	}
	var sources []reportSrc
	for id, entry := range e.streams {
		if entry.kind != kindVideo || entry.dir != avbtypes.DirectionReceive {
			continue
		}
		sources = append(sources, reportSrc{id: id, c: entry.snapshot(nil)})
	}
	e.streamsMu.RUnlock()

	out := make(map[avbtypes.StreamId][]byte, len(sources))
	for _, src := range sources {
		rr := buildReceiverReport(src.id, src.c)
		b, err := rr.Marshal()
		if err != nil {
			return nil, err
		}
		out[src.id] = b
	}
	return out, nil
}
