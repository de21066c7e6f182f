package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by the decoder.
var (
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrOperandCount    = errors.New("wrong number of operands")
	ErrInvalidRegister = errors.New("invalid register")
	ErrInvalidLiteral  = errors.New("invalid literal")
)

// Decoder decodes assembly text into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a single instruction. Operands may be separated by commas,
// whitespace or both, so "MOVC R1,#5", "MOVC R1, #5" and "MOVC,R1,#5" are
// equivalent.
func (d *Decoder) Decode(text string) (*Instruction, error) {
	fields := splitOperands(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty instruction", ErrUnknownOpcode)
	}

	op, ok := LookupOp(fields[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, fields[0])
	}

	inst := &Instruction{Op: op}
	operands := fields[1:]

	var err error
	switch op.Format() {
	case FormatRRR:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Rs1, &inst.Rs2)
	case FormatRImm:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Imm)
	case FormatRRImm:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Rs1, &inst.Imm)
	case FormatStore:
		err = d.decodeOperands(operands, &inst.Rs1, &inst.Rs2, &inst.Imm)
	case FormatImm:
		err = d.decodeOperands(operands, &inst.Imm)
	case FormatJump:
		err = d.decodeOperands(operands, &inst.Rs1, &inst.Imm)
	case FormatNone:
		err = d.decodeOperands(operands)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return inst, nil
}

// decodeOperands fills each destination in order. A *uint8 destination takes
// a register operand, an *int64 destination a literal.
func (d *Decoder) decodeOperands(operands []string, dsts ...interface{}) error {
	if len(operands) != len(dsts) {
		return fmt.Errorf("%w: want %d, got %d", ErrOperandCount, len(dsts), len(operands))
	}

	for i, dst := range dsts {
		switch p := dst.(type) {
		case *uint8:
			reg, err := ParseRegister(operands[i])
			if err != nil {
				return err
			}
			*p = reg
		case *int64:
			imm, err := ParseLiteral(operands[i])
			if err != nil {
				return err
			}
			*p = imm
		}
	}

	return nil
}

// ParseRegister parses a register operand such as "R7" (case-insensitive).
func ParseRegister(s string) (uint8, error) {
	if len(s) < 2 || (s[0] != 'R' && s[0] != 'r') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRegister, s)
	}

	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n >= NumRegs {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRegister, s)
	}

	return uint8(n), nil
}

// ParseLiteral parses a literal operand such as "#-12".
func ParseLiteral(s string) (int64, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}

	v, err := strconv.ParseInt(s[1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}

	return v, nil
}

func splitOperands(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
