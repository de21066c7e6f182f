package pipeline

import (
	"fmt"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/latency"
)

// FetchStage reads the instruction at the PC into the decode latch.
type FetchStage struct{}

// NewFetchStage creates a new fetch stage.
func NewFetchStage() *FetchStage {
	return &FetchStage{}
}

// Tick runs the fetch stage for one cycle. A halted fetch, or a PC outside
// the program, sends a bubble. When decode is stalled neither the PC nor the
// decode latch changes.
func (s *FetchStage) Tick(st *State) StageRecord {
	in := st.Latch(StageFetch)
	decode := st.Latch(StageDecode)
	rec := StageRecord{Stage: StageFetch, PC: st.PC}

	if in.Stalled {
		rec.Stalled = true
		if !decode.Stalled {
			*decode = bubble()
		}
		return rec
	}

	inst, ok := st.Program.At(st.PC)
	if !ok {
		in.Kind = SlotBubble
		if !decode.Stalled {
			*decode = bubble()
		}
		return rec
	}

	in.Kind = SlotInst
	in.PC = st.PC
	in.Inst = inst
	rec.Kind = SlotInst
	rec.Inst = inst

	if decode.Stalled {
		rec.Stalled = true
		return rec
	}

	*decode = in.advance()
	st.PC += loader.SlotSize

	return rec
}

// DecodeStage checks hazards, reads source registers and issues into the
// execute latch.
type DecodeStage struct {
	hazardUnit *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(hazardUnit *HazardUnit) *DecodeStage {
	return &DecodeStage{hazardUnit: hazardUnit}
}

// Tick runs the decode stage for one cycle. On a data hazard a bubble goes
// to execute; on a structural hazard the busy execute latch is left alone.
func (s *DecodeStage) Tick(st *State) StageRecord {
	in := st.Latch(StageDecode)
	execute := st.Latch(StageExecute)
	rec := recordOf(StageDecode, in)

	reason := s.hazardUnit.Check(in, execute)
	switch reason {
	case StallStructural:
		in.Stalled = true
		st.Stats.StructuralStalls++
	case StallData:
		in.Stalled = true
		st.Stats.DataStalls++
		*execute = bubble()
	default:
		in.Stalled = false
		if in.IsBubble() {
			if !s.hazardUnit.DetectStructuralHazard(execute) {
				*execute = bubble()
			}
			break
		}
		s.issue(st, in)
		*execute = in.advance()
		in.Clear()
	}

	rec.Stalled = reason != StallNone
	rec.Reason = reason
	return rec
}

func (s *DecodeStage) issue(st *State, l *Latch) {
	op := l.Inst.Op

	if op.ReadsRs1() {
		l.Rs1Value = st.Regs.ReadReg(l.Inst.Rs1)
	}
	if op.ReadsRs2() {
		l.Rs2Value = st.Regs.ReadReg(l.Inst.Rs2)
	}

	if op.WritesRd() {
		st.Board.Reserve(l.Inst.Rd)
		l.Reserved = true
	}

	if op == insts.OpHALT {
		st.HaltRequested = true
	}
}

// ExecuteStage computes results, addresses and branch outcomes.
type ExecuteStage struct {
	alu          *emu.ALU
	lsu          *emu.LoadStoreUnit
	branchUnit   *emu.BranchUnit
	latencyTable *latency.Table
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(
	regFile *emu.RegFile,
	memory *emu.Memory,
	latencyTable *latency.Table,
) *ExecuteStage {
	return &ExecuteStage{
		alu:          emu.NewALU(regFile),
		lsu:          emu.NewLoadStoreUnit(memory),
		branchUnit:   emu.NewBranchUnit(regFile),
		latencyTable: latencyTable,
	}
}

// Tick runs the execute stage for one cycle. A multi-cycle operation keeps
// the unit busy and sends bubbles to memory until its last cycle.
func (s *ExecuteStage) Tick(st *State) StageRecord {
	in := st.Latch(StageExecute)
	memory := st.Latch(StageMemory)
	rec := recordOf(StageExecute, in)

	if in.IsBubble() {
		*memory = bubble()
		return rec
	}

	if cycles := s.latencyTable.GetLatency(in.Inst.Op); cycles > 1 {
		if !in.Busy {
			in.Busy = true
			st.ExecCyclesLeft = cycles
		}
		st.ExecCyclesLeft--
		if st.ExecCyclesLeft > 0 {
			st.Stats.ExecBusyCycles++
			rec.Busy = true
			*memory = bubble()
			return rec
		}
		in.Busy = false
	}

	s.execute(st, in)
	*memory = in.advance()
	in.Clear()

	return rec
}

func (s *ExecuteStage) execute(st *State, l *Latch) {
	op := l.Inst.Op

	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpAND, insts.OpOR, insts.OpXOR:
		l.Result = s.alu.Execute(op, l.Rs1Value, l.Rs2Value)
	case insts.OpMOVC:
		l.Result = s.alu.Execute(op, 0, l.Inst.Imm)
	case insts.OpLOAD, insts.OpSTORE:
		l.Address = s.lsu.EffectiveAddress(l.Inst, l.Rs1Value, l.Rs2Value)
	case insts.OpBZ, insts.OpBNZ, insts.OpJUMP:
		taken, target := s.branchUnit.Evaluate(l.Inst, l.PC, l.Rs1Value, loader.SlotSize)
		if taken {
			l.Branch = branchKindOf(op)
			l.Target = target
			st.Stats.BranchesTaken++
		} else {
			st.Stats.BranchesNotTaken++
		}
	case insts.OpHALT:
		if st.HaltRequested {
			st.Latch(StageDecode).Clear()
			st.Latch(StageFetch).Stalled = true
		}
	}
}

// MemoryStage performs data memory accesses and redirects fetch for taken
// control transfers.
type MemoryStage struct {
	lsu *emu.LoadStoreUnit
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{lsu: emu.NewLoadStoreUnit(memory)}
}

// Tick runs the memory stage for one cycle. A taken transfer to an address
// outside the program faults unless the transfer is the last instruction,
// which terminates the program when it retires.
func (s *MemoryStage) Tick(st *State) (StageRecord, error) {
	in := st.Latch(StageMemory)
	writeback := st.Latch(StageWriteback)
	rec := recordOf(StageMemory, in)

	if in.IsBubble() {
		*writeback = bubble()
		return rec, nil
	}

	switch in.Inst.Op {
	case insts.OpLOAD:
		value, err := s.lsu.Load(in.Address)
		if err != nil {
			return rec, fmt.Errorf("%s at pc %d: %w", in.Inst, in.PC, err)
		}
		in.Result = value
	case insts.OpSTORE:
		if err := s.lsu.Store(in.Address, in.Rs1Value); err != nil {
			return rec, fmt.Errorf("%s at pc %d: %w", in.Inst, in.PC, err)
		}
	}

	if in.Branch != BranchNone {
		if _, ok := st.Program.Index(in.Target); !ok && in.PC != st.Program.LastPC() {
			return rec, fmt.Errorf("%s at pc %d: %w: %d", in.Inst, in.PC, emu.ErrPCOutOfRange, int64(in.Target))
		}
		rec.Flushed = true
		rec.Squashed = flush(st, in.Target)
	}

	*writeback = in.advance()
	in.Clear()

	return rec, nil
}

// WritebackStage commits results and retires instructions.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// Tick runs the writeback stage for one cycle. Retiring HALT, or the
// instruction at the last program address, terminates the machine.
func (s *WritebackStage) Tick(st *State) StageRecord {
	in := st.Latch(StageWriteback)
	rec := recordOf(StageWriteback, in)

	if in.IsBubble() {
		return rec
	}

	if in.Inst.Op.WritesRd() {
		st.Regs.WriteReg(in.Inst.Rd, in.Result)
		if in.Reserved {
			st.Board.Release(in.Inst.Rd)
		}
	}

	st.Completed++
	st.Stats.Instructions++
	rec.Retired = true

	if in.Inst.Op == insts.OpHALT || in.PC == st.Program.LastPC() {
		st.Terminated = true
	}

	in.Clear()
	return rec
}
