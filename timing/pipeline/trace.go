package pipeline

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
)

// StageRecord describes what one stage did in one cycle.
type StageRecord struct {
	Stage Stage
	Kind  SlotKind
	PC    uint64
	Inst  insts.Instruction

	// Stalled is set when the stage held its content. Reason is filled in
	// for decode stalls.
	Stalled bool
	Reason  StallReason

	// Busy is set while a multi-cycle operation occupies execute.
	Busy bool

	// Flushed is set when the memory stage redirected fetch. Squashed is the
	// number of discarded instructions.
	Flushed  bool
	Squashed int

	// Retired is set when writeback completed an instruction.
	Retired bool
}

func recordOf(stage Stage, l *Latch) StageRecord {
	return StageRecord{
		Stage: stage,
		Kind:  l.Kind,
		PC:    l.PC,
		Inst:  l.Inst,
	}
}

// String renders the record as "<pc> <inst>" with status suffixes, or "-"
// for a bubble.
func (r StageRecord) String() string {
	if r.Kind == SlotBubble {
		return "-"
	}

	s := fmt.Sprintf("%d %s", r.PC, r.Inst)
	switch {
	case r.Busy:
		s += " [busy]"
	case r.Stalled && r.Reason != StallNone:
		s += " [stall:" + r.Reason.String() + "]"
	case r.Stalled:
		s += " [stall]"
	case r.Flushed:
		s += fmt.Sprintf(" [flush:%d]", r.Squashed)
	}
	return s
}

// CycleRecord describes one simulated cycle.
type CycleRecord struct {
	// Cycle is the 1-based number of the cycle.
	Cycle uint64

	// PC is the fetch address at the end of the cycle.
	PC uint64

	Stages [NumStages]StageRecord

	// Terminated is set on the cycle in which the machine stopped.
	Terminated bool
}

// Tracer receives a record after every simulated cycle. Tracers observe
// only; they must not change the pipeline.
type Tracer interface {
	TraceCycle(rec CycleRecord)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(rec CycleRecord)

// TraceCycle calls f(rec).
func (f TracerFunc) TraceCycle(rec CycleRecord) {
	f(rec)
}
