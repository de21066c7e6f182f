package emu

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
)

// Errors returned by the emulator.
var (
	// ErrNoProgram is returned when stepping before a program is loaded.
	ErrNoProgram = errors.New("no program loaded")

	// ErrPCOutOfRange is returned when control leaves the program.
	ErrPCOutOfRange = errors.New("pc outside program")

	// ErrInstructionLimit is returned when the instruction budget runs out.
	ErrInstructionLimit = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the program terminated, either by retiring HALT or by
	// executing the last instruction in program order.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes instructions functionally, one at a time and without any
// pipeline timing. Its architectural results are the reference the pipeline
// is checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	program *loader.Program

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	logger logr.Logger

	// Execution state
	halted           bool
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithLogger sets the logger used for execution events.
func WithLogger(logger logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// NewEmulator creates a new emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		logger:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.memory)
	e.branchUnit = NewBranchUnit(e.regFile)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted returns true once the program has terminated.
func (e *Emulator) Halted() bool {
	return e.halted
}

// LoadProgram installs a program and sets the PC to its first instruction.
func (e *Emulator) LoadProgram(prog *loader.Program) {
	e.program = prog
	e.regFile.PC = prog.Base
	e.halted = false
}

// Reset restores registers, memory and counters to their initial state and
// rewinds the PC of the loaded program.
func (e *Emulator) Reset() {
	e.regFile.Reset()
	e.memory.Reset()
	e.instructionCount = 0
	e.halted = false
	if e.program != nil {
		e.regFile.PC = e.program.Base
	}
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.program == nil {
		return StepResult{Err: ErrNoProgram}
	}
	if e.halted {
		return StepResult{Halted: true}
	}
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrInstructionLimit}
	}

	pc := e.regFile.PC
	inst, ok := e.program.At(pc)
	if !ok {
		return StepResult{Err: fmt.Errorf("%w: %d", ErrPCOutOfRange, pc)}
	}

	if err := e.execute(inst, pc); err != nil {
		return StepResult{Err: fmt.Errorf("pc %d (%s): %w", pc, inst, err)}
	}
	e.instructionCount++

	if inst.Op == insts.OpHALT || pc == e.program.LastPC() {
		e.halted = true
		e.logger.V(1).Info("emulator halted", "pc", pc, "instructions", e.instructionCount)
	}

	return StepResult{Halted: e.halted}
}

// Run executes instructions until the program terminates or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

// execute dispatches a single instruction and advances the PC.
func (e *Emulator) execute(inst insts.Instruction, pc uint64) error {
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)
	next := pc + loader.SlotSize

	switch inst.Op {
	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpAND, insts.OpOR, insts.OpXOR:
		e.regFile.WriteReg(inst.Rd, e.alu.Execute(inst.Op, rs1, rs2))
	case insts.OpMOVC:
		e.regFile.WriteReg(inst.Rd, e.alu.Execute(inst.Op, 0, inst.Imm))
	case insts.OpLOAD:
		value, err := e.lsu.Load(e.lsu.EffectiveAddress(inst, rs1, rs2))
		if err != nil {
			return err
		}
		e.regFile.WriteReg(inst.Rd, value)
	case insts.OpSTORE:
		if err := e.lsu.Store(e.lsu.EffectiveAddress(inst, rs1, rs2), rs1); err != nil {
			return err
		}
	case insts.OpBZ, insts.OpBNZ, insts.OpJUMP:
		_, next = e.branchUnit.Evaluate(inst, pc, rs1, loader.SlotSize)
	case insts.OpHALT:
	default:
		return fmt.Errorf("unknown opcode %d", inst.Op)
	}

	e.regFile.PC = next
	return nil
}
