// Package trace provides sinks for the per-cycle records emitted by the
// pipeline.
package trace

import (
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// Recorder keeps every cycle record in memory.
type Recorder struct {
	Records []pipeline.CycleRecord
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// TraceCycle appends the record.
func (r *Recorder) TraceCycle(rec pipeline.CycleRecord) {
	r.Records = append(r.Records, rec)
}

// Len returns the number of recorded cycles.
func (r *Recorder) Len() int {
	return len(r.Records)
}

// Reset drops all records.
func (r *Recorder) Reset() {
	r.Records = r.Records[:0]
}

// Retired returns the PCs of retired instructions in retirement order.
func (r *Recorder) Retired() []uint64 {
	var pcs []uint64
	for _, rec := range r.Records {
		if wb := rec.Stages[pipeline.StageWriteback]; wb.Retired {
			pcs = append(pcs, wb.PC)
		}
	}
	return pcs
}

// Occupancy returns, for one stage, the rendering of its record in every
// cycle. Bubbles render as "-".
func (r *Recorder) Occupancy(stage pipeline.Stage) []string {
	out := make([]string, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Stages[stage].String()
	}
	return out
}

// Multi fans a record out to several tracers in order.
type Multi []pipeline.Tracer

// TraceCycle forwards the record to every tracer.
func (m Multi) TraceCycle(rec pipeline.CycleRecord) {
	for _, t := range m {
		t.TraceCycle(rec)
	}
}
