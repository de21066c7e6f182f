package pipeline

import "github.com/sarchlab/pipesim/insts"

// MaxPendingWrites bounds each scoreboard counter. Reserving a register whose
// counter is already at the bound leaves it there.
const MaxPendingWrites = 255

// Scoreboard is the register availability table. Each register has a count
// of issued instructions that will still write it. A register may be read
// only while its count is zero.
type Scoreboard struct {
	pending [insts.NumRegs]uint8
}

// NewScoreboard creates a scoreboard with every register available.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{}
}

// Reserve records one more in-flight writer of reg.
func (s *Scoreboard) Reserve(reg uint8) {
	if reg >= insts.NumRegs {
		return
	}
	if s.pending[reg] < MaxPendingWrites {
		s.pending[reg]++
	}
}

// Release records that one writer of reg has committed or been squashed.
func (s *Scoreboard) Release(reg uint8) {
	if reg >= insts.NumRegs {
		return
	}
	if s.pending[reg] > 0 {
		s.pending[reg]--
	}
}

// Pending returns the number of in-flight writers of reg.
func (s *Scoreboard) Pending(reg uint8) uint8 {
	if reg >= insts.NumRegs {
		return 0
	}
	return s.pending[reg]
}

// Available returns true if reg has no in-flight writer.
func (s *Scoreboard) Available(reg uint8) bool {
	return s.Pending(reg) == 0
}

// Idle returns true if no register has an in-flight writer.
func (s *Scoreboard) Idle() bool {
	for _, n := range s.pending {
		if n != 0 {
			return false
		}
	}
	return true
}

// Reset makes every register available.
func (s *Scoreboard) Reset() {
	s.pending = [insts.NumRegs]uint8{}
}
