// Package loader provides program loading for the simulated register machine.
//
// A program is plain text with one instruction per line (or several
// separated by ';'). Text after "//" is a comment. Instructions are placed in
// code memory starting at BaseAddress, one every SlotSize bytes.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarchlab/pipesim/insts"
)

// BaseAddress is the address of the first instruction of every program.
const BaseAddress = 4000

// SlotSize is the distance in bytes between consecutive instructions.
const SlotSize = 4

// Load-time validation errors.
var (
	// ErrEmptyProgram is returned when the source contains no instructions.
	ErrEmptyProgram = errors.New("program has no instructions")

	// ErrBranchTarget is returned for BZ/BNZ offsets that are not a whole
	// number of slots or that leave the program.
	ErrBranchTarget = errors.New("invalid branch target")
)

// ParseError reports a source line that could not be turned into an
// instruction.
type ParseError struct {
	// Path is the source file, empty when parsing from a reader.
	Path string
	// Line is the 1-based source line.
	Line int
	// Text is the offending instruction text.
	Text string
	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %q: %v", e.Path, e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Program is an ordered, index-addressable sequence of instructions.
type Program struct {
	// Base is the address of Insts[0].
	Base uint64
	// Insts holds the instructions in program order.
	Insts []insts.Instruction

	// lines maps instruction index to source line, when parsed from text.
	lines []int
}

// NewProgram builds a program at BaseAddress from already-decoded
// instructions and validates it.
func NewProgram(list []insts.Instruction) (*Program, error) {
	prog := &Program{
		Base:  BaseAddress,
		Insts: append([]insts.Instruction(nil), list...),
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return prog, nil
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Insts)
}

// PCOf returns the address of the instruction at index i.
func (p *Program) PCOf(i int) uint64 {
	return p.Base + uint64(i)*SlotSize
}

// LastPC returns the address of the last instruction in program order.
func (p *Program) LastPC() uint64 {
	return p.PCOf(len(p.Insts) - 1)
}

// Index converts an address into an instruction index.
func (p *Program) Index(pc uint64) (int, bool) {
	if pc < p.Base || (pc-p.Base)%SlotSize != 0 {
		return 0, false
	}
	i := (pc - p.Base) / SlotSize
	if i >= uint64(len(p.Insts)) {
		return 0, false
	}
	return int(i), true
}

// At returns the instruction at the given address.
func (p *Program) At(pc uint64) (insts.Instruction, bool) {
	i, ok := p.Index(pc)
	if !ok {
		return insts.Instruction{}, false
	}
	return p.Insts[i], true
}

// SourceLine returns the source line of instruction i, or 0 if unknown.
func (p *Program) SourceLine(i int) int {
	if i < 0 || i >= len(p.lines) {
		return 0
	}
	return p.lines[i]
}

// Validate checks the load-time constraints: the program is non-empty,
// every register index is in range and every conditional branch lands on an
// instruction slot inside the program. JUMP targets depend on a register
// value, so they are checked when the jump resolves, not here.
func (p *Program) Validate() error {
	if len(p.Insts) == 0 {
		return ErrEmptyProgram
	}

	for i, inst := range p.Insts {
		if err := p.validateInst(i, inst); err != nil {
			return &ParseError{Line: p.SourceLine(i), Text: inst.String(), Err: err}
		}
	}

	return nil
}

func (p *Program) validateInst(i int, inst insts.Instruction) error {
	if inst.Op == insts.OpUnknown || inst.Op > insts.OpHALT {
		return insts.ErrUnknownOpcode
	}
	if inst.Rd >= insts.NumRegs || inst.Rs1 >= insts.NumRegs || inst.Rs2 >= insts.NumRegs {
		return insts.ErrInvalidRegister
	}

	if inst.Op.IsConditionalBranch() {
		if inst.Imm%SlotSize != 0 {
			return fmt.Errorf("%w: offset %d is not a multiple of %d", ErrBranchTarget, inst.Imm, SlotSize)
		}
		target := int64(p.PCOf(i)) + inst.Imm
		if _, ok := p.Index(uint64(target)); target < 0 || !ok {
			return fmt.Errorf("%w: %d is outside the program", ErrBranchTarget, target)
		}
	}

	return nil
}

// Parse reads program text from r.
func Parse(r io.Reader) (*Program, error) {
	return parse(r, "")
}

// ParseString parses program text held in a string.
func ParseString(src string) (*Program, error) {
	return parse(strings.NewReader(src), "")
}

// Load reads and parses the program file at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := parse(f, path)
	if err != nil {
		return nil, err
	}

	return prog, nil
}

func parse(r io.Reader, path string) (*Program, error) {
	decoder := insts.NewDecoder()
	prog := &Program{Base: BaseAddress}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}

		for _, stmt := range strings.Split(text, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			inst, err := decoder.Decode(stmt)
			if err != nil {
				return nil, &ParseError{Path: path, Line: line, Text: stmt, Err: err}
			}

			prog.Insts = append(prog.Insts, *inst)
			prog.lines = append(prog.lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	if err := prog.Validate(); err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}

	return prog, nil
}
