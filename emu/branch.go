package emu

import "github.com/sarchlab/pipesim/insts"

// BranchUnit evaluates control-transfer instructions.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// Evaluate decides whether the branch at pc is taken and returns the address
// control continues at. BZ is taken when the zero flag is set, BNZ when it is
// clear; both target pc + imm. JUMP is always taken to rs1 + imm. A branch
// that is not taken continues at pc + slot.
func (b *BranchUnit) Evaluate(inst insts.Instruction, pc uint64, rs1Value int64, slot uint64) (bool, uint64) {
	taken := false
	var target uint64

	switch inst.Op {
	case insts.OpBZ:
		taken = b.regFile.Flags.Zero
		target = uint64(int64(pc) + inst.Imm)
	case insts.OpBNZ:
		taken = !b.regFile.Flags.Zero
		target = uint64(int64(pc) + inst.Imm)
	case insts.OpJUMP:
		taken = true
		target = uint64(rs1Value + inst.Imm)
	}

	if !taken {
		return false, pc + slot
	}
	return true, target
}
