// Package pipeline provides the five-stage in-order pipeline for
// cycle-accurate timing simulation.
//
// Stages: Fetch (IF) -> Decode/Register-Read (ID) -> Execute (EX) ->
// Memory (MEM) -> Writeback (WB). Each stage owns the latch holding its
// input for the current cycle.
package pipeline

import "github.com/sarchlab/pipesim/insts"

// Stage identifies a pipeline stage.
type Stage int

// Pipeline stages, in program order.
const (
	StageFetch Stage = iota
	StageDecode
	StageExecute
	StageMemory
	StageWriteback

	// NumStages is the number of pipeline stages.
	NumStages = 5
)

var stageNames = [NumStages]string{"IF", "ID", "EX", "MEM", "WB"}

// String returns the short name of the stage.
func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return "?"
	}
	return stageNames[s]
}

// SlotKind tells whether a latch carries an instruction or a bubble.
type SlotKind uint8

const (
	// SlotBubble is an empty slot. It has no hazard obligations and never
	// changes machine state.
	SlotBubble SlotKind = iota
	// SlotInst carries a real instruction.
	SlotInst
)

// BranchKind marks a control transfer that has been resolved as taken in
// the execute stage and awaits its redirect in the memory stage.
type BranchKind uint8

// Pending control transfer markers.
const (
	BranchNone BranchKind = iota
	BranchZero
	BranchNonZero
	BranchJump
)

var branchNames = [...]string{"", "BZ", "BNZ", "JUMP"}

// String returns the opcode that produced the marker.
func (b BranchKind) String() string {
	if int(b) >= len(branchNames) {
		return "?"
	}
	return branchNames[b]
}

func branchKindOf(op insts.Op) BranchKind {
	switch op {
	case insts.OpBZ:
		return BranchZero
	case insts.OpBNZ:
		return BranchNonZero
	case insts.OpJUMP:
		return BranchJump
	default:
		return BranchNone
	}
}

// Latch holds the state a stage works on in a cycle.
type Latch struct {
	// Kind tells whether the latch carries an instruction.
	Kind SlotKind

	// PC is the address of the instruction.
	PC uint64

	// Inst is the instruction.
	Inst insts.Instruction

	// Source operand values captured at decode.
	Rs1Value int64
	Rs2Value int64

	// Result is the value to be written back (ALU output, constant or
	// loaded word).
	Result int64

	// Address is the data memory address of LOAD and STORE.
	Address int64

	// Busy is set while the execute unit is occupied by a multi-cycle
	// operation.
	Busy bool

	// Stalled is set when the stage could not advance its content.
	Stalled bool

	// Reserved is set once the destination register has been claimed in
	// the scoreboard.
	Reserved bool

	// Branch and Target describe a taken control transfer.
	Branch BranchKind
	Target uint64
}

// IsBubble returns true if the latch carries no instruction.
func (l *Latch) IsBubble() bool {
	return l.Kind == SlotBubble
}

// Clear turns the latch into a bubble. Stage status flags are reset too.
func (l *Latch) Clear() {
	*l = Latch{}
}

// bubble returns an empty latch.
func bubble() Latch {
	return Latch{}
}

// advance copies the instruction content of l into a fresh latch for the
// next stage. Per-stage status flags do not travel.
func (l *Latch) advance() Latch {
	next := *l
	next.Busy = false
	next.Stalled = false
	return next
}
