package emu

import (
	"errors"
	"fmt"
)

// DataMemoryWords is the number of addressable data memory entries.
const DataMemoryWords = 4096

// ErrAddressOutOfRange is returned for data accesses outside the memory.
var ErrAddressOutOfRange = errors.New("data address out of range")

// Memory is the flat, word-addressed data memory.
type Memory struct {
	words [DataMemoryWords]int64
}

// NewMemory creates a zero-filled data memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Load reads the word at addr.
func (m *Memory) Load(addr int64) (int64, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return m.words[addr], nil
}

// Store writes value to the word at addr.
func (m *Memory) Store(addr, value int64) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	m.words[addr] = value
	return nil
}

// Snapshot returns a copy of the whole memory.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, DataMemoryWords)
	copy(out, m.words[:])
	return out
}

// Reset zero-fills the memory.
func (m *Memory) Reset() {
	m.words = [DataMemoryWords]int64{}
}

func checkAddr(addr int64) error {
	if addr < 0 || addr >= DataMemoryWords {
		return fmt.Errorf("%w: %d", ErrAddressOutOfRange, addr)
	}
	return nil
}
