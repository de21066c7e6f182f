package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Errors returned by the pipeline.
var (
	// ErrInitialization is returned when the pipeline cannot be built for
	// the given program.
	ErrInitialization = errors.New("pipeline initialization failed")

	// ErrCycleLimit is returned when a run exceeds its cycle budget.
	ErrCycleLimit = errors.New("cycle limit reached")
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// DataStalls is the number of cycles decode waited on a RAW hazard.
	DataStalls uint64
	// StructuralStalls is the number of cycles decode waited on a busy
	// execute unit.
	StructuralStalls uint64
	// ExecBusyCycles is the number of cycles a multi-cycle operation held
	// execute without producing a result.
	ExecBusyCycles uint64
	// Flushes is the number of redirects caused by taken branches and jumps.
	Flushes uint64
	// Squashed is the number of wrong-path instructions discarded.
	Squashed uint64
	// BranchesTaken and BranchesNotTaken count resolved control transfers.
	BranchesTaken    uint64
	BranchesNotTaken uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Stalls returns the total number of decode stall cycles.
func (s Statistics) Stalls() uint64 {
	return s.DataStalls + s.StructuralStalls
}

// State is the complete machine state. Every stage executor reads and
// updates it; nothing else is shared between stages.
type State struct {
	// PC is the address of the next instruction to fetch.
	PC uint64

	// Clock is the number of cycles completed.
	Clock uint64

	// Completed is the number of retired instructions.
	Completed uint64

	// HaltRequested is set when HALT issues from decode.
	HaltRequested bool

	// Terminated is set when the machine stops.
	Terminated bool

	// ExecCyclesLeft counts down the cycles of a multi-cycle operation.
	ExecCyclesLeft uint64

	// Latches holds the input latch of each stage.
	Latches [NumStages]Latch

	Program *loader.Program
	Regs    *emu.RegFile
	Mem     *emu.Memory
	Board   *Scoreboard

	Stats Statistics
}

// Latch returns the input latch of a stage.
func (st *State) Latch(s Stage) *Latch {
	return &st.Latches[s]
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithTracer installs a per-cycle trace sink.
func WithTracer(tracer Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithLogger sets the logger used for pipeline events.
func WithLogger(logger logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithCycleLimit bounds the number of cycles the pipeline may run. A value
// of 0 means no limit.
func WithCycleLimit(cycles uint64) PipelineOption {
	return func(p *Pipeline) {
		p.cycleLimit = cycles
	}
}

// Pipeline implements the five-stage in-order pipeline.
type Pipeline struct {
	state State

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit   *HazardUnit
	latencyTable *latency.Table

	tracer     Tracer
	logger     logr.Logger
	cycleLimit uint64

	// err is the fault that stopped the machine, if any.
	err error
}

// NewPipeline creates a pipeline ready to run prog from its first
// instruction. A nil regFile or memory is replaced by a fresh one.
func NewPipeline(
	prog *loader.Program,
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if prog == nil {
		return nil, fmt.Errorf("%w: no program", ErrInitialization)
	}
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	if regFile == nil {
		regFile = &emu.RegFile{}
	}
	if memory == nil {
		memory = emu.NewMemory()
	}

	p := &Pipeline{
		latencyTable: latency.NewTable(),
		logger:       logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	board := NewScoreboard()
	p.hazardUnit = NewHazardUnit(board)
	p.fetchStage = NewFetchStage()
	p.decodeStage = NewDecodeStage(p.hazardUnit)
	p.executeStage = NewExecuteStage(regFile, memory, p.latencyTable)
	p.memoryStage = NewMemoryStage(memory)
	p.writebackStage = NewWritebackStage()

	p.state = State{
		PC:      prog.Base,
		Program: prog,
		Regs:    regFile,
		Mem:     memory,
		Board:   board,
	}
	regFile.PC = prog.Base

	return p, nil
}

// PC returns the current fetch address.
func (p *Pipeline) PC() uint64 {
	return p.state.PC
}

// Clock returns the number of cycles completed.
func (p *Pipeline) Clock() uint64 {
	return p.state.Clock
}

// Completed returns the number of retired instructions.
func (p *Pipeline) Completed() uint64 {
	return p.state.Completed
}

// Halted returns true if the machine has terminated.
func (p *Pipeline) Halted() bool {
	return p.state.Terminated
}

// HaltRequested returns true while an issued HALT is in flight.
func (p *Pipeline) HaltRequested() bool {
	return p.state.HaltRequested
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.state.Stats
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.state.Regs
}

// Memory returns the data memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.state.Mem
}

// Scoreboard returns the register availability table.
func (p *Pipeline) Scoreboard() *Scoreboard {
	return p.state.Board
}

// Program returns the program being run.
func (p *Pipeline) Program() *loader.Program {
	return p.state.Program
}

// Latch returns a copy of the input latch of a stage.
func (p *Pipeline) Latch(s Stage) Latch {
	return p.state.Latches[s]
}

// LatencyTable returns the latency table in use.
func (p *Pipeline) LatencyTable() *latency.Table {
	return p.latencyTable
}

// Tick executes one pipeline cycle and reports whether the machine has
// terminated.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) so that each stage
// consumes its input latch before the stage behind it overwrites it. The
// cycle in which termination is signalled still runs all five stages.
func (p *Pipeline) Tick() (bool, error) {
	st := &p.state

	if p.err != nil {
		return false, p.err
	}
	if st.Terminated {
		return true, nil
	}
	if p.cycleLimit > 0 && st.Clock >= p.cycleLimit {
		return false, fmt.Errorf("%w: %d cycles", ErrCycleLimit, p.cycleLimit)
	}

	rec := CycleRecord{Cycle: st.Clock + 1}

	rec.Stages[StageWriteback] = p.writebackStage.Tick(st)

	memRec, err := p.memoryStage.Tick(st)
	if err != nil {
		p.err = fmt.Errorf("cycle %d: %w", rec.Cycle, err)
		p.logger.Error(err, "pipeline fault", "cycle", rec.Cycle)
		return false, p.err
	}
	rec.Stages[StageMemory] = memRec
	if memRec.Flushed {
		p.logger.V(1).Info("branch redirect",
			"cycle", rec.Cycle, "pc", memRec.PC, "target", st.PC, "squashed", memRec.Squashed)
	}

	rec.Stages[StageExecute] = p.executeStage.Tick(st)
	rec.Stages[StageDecode] = p.decodeStage.Tick(st)
	rec.Stages[StageFetch] = p.fetchStage.Tick(st)

	st.Clock++
	st.Stats.Cycles = st.Clock
	st.Regs.PC = st.PC

	rec.PC = st.PC
	rec.Terminated = st.Terminated
	if p.tracer != nil {
		p.tracer.TraceCycle(rec)
	}

	if st.Terminated {
		p.logger.V(1).Info("pipeline terminated",
			"cycles", st.Clock, "instructions", st.Completed, "cpi", st.Stats.CPI())
	}

	return st.Terminated, nil
}

// Run executes the pipeline until it terminates or faults.
func (p *Pipeline) Run() error {
	for {
		done, err := p.Tick()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// RunCycles executes the pipeline for at most the given number of cycles.
// It returns true if the machine is still running.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles; i++ {
		done, err := p.Tick()
		if err != nil {
			return false, err
		}
		if done {
			return false, nil
		}
	}
	return !p.state.Terminated, nil
}

// Reset returns the machine to its initial state: registers, flags, data
// memory and scoreboard cleared, every latch empty and the PC at the first
// instruction.
func (p *Pipeline) Reset() {
	st := &p.state

	st.Regs.Reset()
	st.Mem.Reset()
	st.Board.Reset()

	*st = State{
		PC:      st.Program.Base,
		Program: st.Program,
		Regs:    st.Regs,
		Mem:     st.Mem,
		Board:   st.Board,
	}
	st.Regs.PC = st.PC
	p.err = nil
}
