// Package insts provides the instruction set definitions for the simulated
// register machine.
//
// The instruction set is a closed enumeration of thirteen opcodes:
//   - Arithmetic/logic (register): ADD, SUB, MUL, AND, OR, XOR
//   - Constant load: MOVC
//   - Memory: LOAD, STORE
//   - Control: BZ, BNZ, JUMP, HALT
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("ADD R3,R1,R2")
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts

import (
	"fmt"
	"strings"
)

// NumRegs is the number of general-purpose registers.
const NumRegs = 16

// Op represents an opcode.
type Op uint8

// Opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpMUL
	OpAND
	OpOR
	OpXOR
	OpMOVC
	OpLOAD
	OpSTORE
	OpBZ
	OpBNZ
	OpJUMP
	OpHALT

	numOps
)

// Format represents the operand layout of an instruction in assembly text.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatRRR            // rd, rs1, rs2
	FormatRImm           // rd, #imm
	FormatRRImm          // rd, rs1, #imm
	FormatStore          // rs1, rs2, #imm (rs1 is the value, rs2 the base)
	FormatImm            // #imm
	FormatJump           // rs1, #imm
	FormatNone           // no operands
)

type opInfo struct {
	name     string
	format   Format
	readsRs1 bool
	readsRs2 bool
	writesRd bool
	setsZero bool
}

var opTable = [numOps]opInfo{
	OpUnknown: {name: "UNKNOWN"},
	OpADD:     {name: "ADD", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true, setsZero: true},
	OpSUB:     {name: "SUB", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true, setsZero: true},
	OpMUL:     {name: "MUL", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true, setsZero: true},
	OpAND:     {name: "AND", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true},
	OpOR:      {name: "OR", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true},
	OpXOR:     {name: "XOR", format: FormatRRR, readsRs1: true, readsRs2: true, writesRd: true},
	OpMOVC:    {name: "MOVC", format: FormatRImm, writesRd: true},
	OpLOAD:    {name: "LOAD", format: FormatRRImm, readsRs1: true, writesRd: true},
	OpSTORE:   {name: "STORE", format: FormatStore, readsRs1: true, readsRs2: true},
	OpBZ:      {name: "BZ", format: FormatImm},
	OpBNZ:     {name: "BNZ", format: FormatImm},
	OpJUMP:    {name: "JUMP", format: FormatJump, readsRs1: true},
	OpHALT:    {name: "HALT", format: FormatNone},
}

func (op Op) info() opInfo {
	if op >= numOps {
		return opTable[OpUnknown]
	}
	return opTable[op]
}

// String returns the mnemonic of the opcode.
func (op Op) String() string {
	return op.info().name
}

// Format returns the operand layout of the opcode.
func (op Op) Format() Format {
	return op.info().format
}

// ReadsRs1 returns true if the opcode reads its first source register.
func (op Op) ReadsRs1() bool { return op.info().readsRs1 }

// ReadsRs2 returns true if the opcode reads its second source register.
func (op Op) ReadsRs2() bool { return op.info().readsRs2 }

// WritesRd returns true if the opcode commits a result to a destination
// register at writeback.
func (op Op) WritesRd() bool { return op.info().writesRd }

// SetsZeroFlag returns true if the opcode updates the sticky zero flag.
// Only ADD, SUB and MUL do; MOVC and the logic operations leave it alone.
func (op Op) SetsZeroFlag() bool { return op.info().setsZero }

// IsBranch returns true for the control-transfer opcodes resolved in the
// memory stage.
func (op Op) IsBranch() bool {
	return op == OpBZ || op == OpBNZ || op == OpJUMP
}

// IsConditionalBranch returns true for BZ and BNZ.
func (op Op) IsConditionalBranch() bool {
	return op == OpBZ || op == OpBNZ
}

// LookupOp returns the opcode for a mnemonic. The lookup is case-insensitive.
func LookupOp(mnemonic string) (Op, bool) {
	name := strings.ToUpper(mnemonic)
	for op := OpADD; op < numOps; op++ {
		if opTable[op].name == name {
			return op, true
		}
	}
	return OpUnknown, false
}

// Instruction represents a decoded instruction.
type Instruction struct {
	Op  Op    // Operation code
	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register
	Imm int64 // Literal value
}

// String returns the assembly form of the instruction.
func (i Instruction) String() string {
	switch i.Op.Format() {
	case FormatRRR:
		return fmt.Sprintf("%s R%d,R%d,R%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FormatRImm:
		return fmt.Sprintf("%s R%d,#%d", i.Op, i.Rd, i.Imm)
	case FormatRRImm:
		return fmt.Sprintf("%s R%d,R%d,#%d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatStore:
		return fmt.Sprintf("%s R%d,R%d,#%d", i.Op, i.Rs1, i.Rs2, i.Imm)
	case FormatImm:
		return fmt.Sprintf("%s #%d", i.Op, i.Imm)
	case FormatJump:
		return fmt.Sprintf("%s R%d,#%d", i.Op, i.Rs1, i.Imm)
	case FormatNone:
		return i.Op.String()
	default:
		return "UNKNOWN"
	}
}
