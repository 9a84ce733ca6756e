// Package telemetry implements the engine's log buffer: a fixed-size ring
// of Records that flushes in one batch when it wraps to its final slot, per
// spec.md §5/§6/§9. It is not behaviorally important to the control loop —
// the engine never reads telemetry back — but its flush format (a header
// row, then one whitespace-aligned row per iteration) is exactly the
// tabwriter-based table the teacher prints in cmd/consumption/main.go's
// printTableHeader/printTableRow.
package telemetry

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// FlushFunc receives one full (or, at Close, partially-filled) batch of
// records in recording order. Sink never interprets the batch itself —
// callers decide whether it goes to a file, a Badger journal, both, or
// nowhere.
type FlushFunc func(batch []Record)

// Sink is the ring buffer described in spec.md §3/§5: writes are O(1); a
// flush is O(depth) and happens only when the buffer wraps to its final
// slot (or, for whichever of the two choices spec.md §9 leaves open, at
// Close — see Sink.Close's doc comment).
type Sink struct {
	depth int
	buf   []Record
	pos   int
	flush FlushFunc
}

// NewSink creates a ring buffer of the given depth. depth == 0 yields a
// null sink — Record becomes a no-op and nothing is ever flushed, matching
// spec.md §3's "null-sink when buffer_depth == 0".
func NewSink(depth int, flush FlushFunc) *Sink {
	if depth < 0 {
		depth = 0
	}
	return &Sink{
		depth: depth,
		buf:   make([]Record, 0, depth),
		flush: flush,
	}
}

// Record appends one record to the buffer, flushing the full batch to
// flush and resetting the buffer when it wraps to its final slot.
func (s *Sink) Record(r Record) {
	if s.depth == 0 {
		return
	}
	s.buf = append(s.buf, r)
	if len(s.buf) >= s.depth {
		s.flushLocked()
	}
}

func (s *Sink) flushLocked() {
	if len(s.buf) == 0 {
		return
	}
	if s.flush != nil {
		s.flush(s.buf)
	}
	s.buf = s.buf[:0]
}

// Close flushes any partially-filled buffer. spec.md §9 notes the source
// discards a partial final batch at destruction and leaves the choice to
// flush instead open to implementers; this port flushes, so no telemetry a
// host has already recorded is silently lost when an engine is closed.
func (s *Sink) Close() {
	s.flushLocked()
}

// Pending returns the number of records buffered but not yet flushed —
// exposed for tests asserting the "flush only on wrap" contract.
func (s *Sink) Pending() int { return len(s.buf) }

// WriteTable renders a batch as the whitespace-aligned text format spec.md
// §6 requires: a header row, then one row per record, tab-aligned via
// text/tabwriter exactly as cmd/consumption/main.go's newTable/printTableRow
// does for process power rows.
func WriteTable(w io.Writer, header bool, batch []Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if header {
		fmt.Fprintln(tw, "TAG\tCONSTRAINT\tPERF\tP_XHAT\tP_XHAT-\tP_P\tP_P-\tP_H\tP_K\tSPEEDUP\tSPEEDUP_ERR\tPOWER\tC_XHAT\tC_XHAT-\tC_P\tC_P-\tC_H\tC_K\tPOWERUP\tPOWERUP_ERR\tTIME_WL\tENERGY_WL\tLOWER\tUPPER\tLOW_ITERS\tIDLE_NS")
	}
	for _, r := range batch {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%d\t%d\t%d\t%d\n",
			r.Tag, r.Constraint, r.MeasuredPerf,
			r.PerfXHat, r.PerfXHatMinus, r.PerfP, r.PerfPMinus, r.PerfH, r.PerfK,
			r.Speedup, r.SpeedupError,
			r.MeasuredPower,
			r.CostXHat, r.CostXHatMinus, r.CostP, r.CostPMinus, r.CostH, r.CostK,
			r.Powerup, r.PowerupError,
			r.TimeWorkload, r.EnergyWorkload,
			r.LowerID, r.UpperID, r.LowStateIters, r.IdleNs,
		)
	}
	return tw.Flush()
}
