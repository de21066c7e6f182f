// Package emu provides the architectural state of the simulated machine and a
// functional (one instruction at a time) emulator for it.
package emu

import "github.com/sarchlab/pipesim/insts"

// RegFile represents the register file.
// It contains 16 general-purpose integer registers, the program counter and
// the sticky condition flags.
type RegFile struct {
	// R holds general-purpose registers R0-R15.
	R [insts.NumRegs]int64

	// PC is the program counter.
	PC uint64

	// Flags holds the condition flags.
	Flags Flags
}

// Flags represents the condition flags.
type Flags struct {
	// Zero is set when the most recent ADD, SUB or MUL produced zero.
	Zero bool
}

// ReadReg reads a register value. Out-of-range registers read as 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg >= insts.NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range registers are
// ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg >= insts.NumRegs {
		return
	}
	r.R[reg] = value
}

// Reset clears all registers, the PC and the flags.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
