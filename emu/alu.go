package emu

import "github.com/sarchlab/pipesim/insts"

// ALU implements the arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file, whose flags
// it updates.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Execute computes op on the two operands. ADD, SUB and MUL also update the
// zero flag; every other opcode leaves the flags untouched. Results wrap on
// overflow.
func (a *ALU) Execute(op insts.Op, op1, op2 int64) int64 {
	result := Compute(op, op1, op2)

	if op.SetsZeroFlag() {
		a.regFile.Flags.Zero = result == 0
	}

	return result
}

// Compute returns the result of op without touching any state. MOVC returns
// op2 (the literal). Non-ALU opcodes return 0.
func Compute(op insts.Op, op1, op2 int64) int64 {
	switch op {
	case insts.OpADD:
		return op1 + op2
	case insts.OpSUB:
		return op1 - op2
	case insts.OpMUL:
		return op1 * op2
	case insts.OpAND:
		return op1 & op2
	case insts.OpOR:
		return op1 | op2
	case insts.OpXOR:
		return op1 ^ op2
	case insts.OpMOVC:
		return op2
	default:
		return 0
	}
}
