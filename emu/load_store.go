package emu

import "github.com/sarchlab/pipesim/insts"

// LoadStoreUnit implements address generation and data memory access.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// EffectiveAddress returns base + imm. LOAD uses rs1 as the base, STORE uses
// rs2 (rs1 holds the value to store).
func (lsu *LoadStoreUnit) EffectiveAddress(inst insts.Instruction, rs1Value, rs2Value int64) int64 {
	switch inst.Op {
	case insts.OpLOAD:
		return rs1Value + inst.Imm
	case insts.OpSTORE:
		return rs2Value + inst.Imm
	default:
		return 0
	}
}

// Load reads the data word at addr.
func (lsu *LoadStoreUnit) Load(addr int64) (int64, error) {
	return lsu.memory.Load(addr)
}

// Store writes value to the data word at addr.
func (lsu *LoadStoreUnit) Store(addr, value int64) error {
	return lsu.memory.Store(addr, value)
}
