// Package latency provides the instruction timing model of the pipeline.
//
// Every opcode spends one cycle in the execute stage except MUL, which holds
// the execute unit for TimingConfig.MultiplyLatency cycles.
package latency

import (
	"github.com/sarchlab/pipesim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the number of cycles op occupies the execute stage.
func (t *Table) GetLatency(op insts.Op) uint64 {
	switch op {
	case insts.OpMUL:
		if t.config.MultiplyLatency == 0 {
			return 1
		}
		return t.config.MultiplyLatency
	default:
		return 1
	}
}

// IsMultiCycle returns true if op keeps the execute unit busy for more than
// one cycle.
func (t *Table) IsMultiCycle(op insts.Op) bool {
	return t.GetLatency(op) > 1
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
