// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface:
// initialize a machine for a program, advance it one cycle at a time or run
// it to completion, and read back its final state.
package core

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of decode stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
}

// Result is the final state of a run.
type Result struct {
	// Registers holds R0-R15.
	Registers [insts.NumRegs]int64
	// Zero is the final value of the zero flag.
	Zero bool
	// Memory is a copy of the data memory.
	Memory []int64
	// Instructions is the number of retired instructions.
	Instructions uint64
	// Cycles is the number of cycles until termination.
	Cycles uint64
	// Pipeline holds the detailed pipeline statistics.
	Pipeline pipeline.Statistics
}

// Option configures a Core.
type Option func(*Core)

// WithTimingConfig sets the timing configuration. The configuration is
// copied.
func WithTimingConfig(config *latency.TimingConfig) Option {
	return func(c *Core) {
		c.config = config.Clone()
	}
}

// WithTracer installs a per-cycle trace sink.
func WithTracer(tracer pipeline.Tracer) Option {
	return func(c *Core) {
		c.tracer = tracer
	}
}

// WithLogger sets the logger used by the core and its pipeline.
func WithLogger(logger logr.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// Core represents a cycle-accurate CPU core model.
// It wraps a 5-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	config *latency.TimingConfig
	tracer pipeline.Tracer
	logger logr.Logger
}

// Initialize builds a core in its initial state for prog: registers,
// flags and data memory zeroed, every latch empty, the PC at the first
// instruction. Nothing is returned on failure.
func Initialize(prog *loader.Program, opts ...Option) (*Core, error) {
	c := &Core{
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(),
		config:  latency.DefaultTimingConfig(),
		logger:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithLatencyTable(latency.NewTableWithConfig(c.config)),
		pipeline.WithCycleLimit(c.config.MaxCycles),
		pipeline.WithLogger(c.logger.WithName("pipeline")),
	}
	if c.tracer != nil {
		pipeOpts = append(pipeOpts, pipeline.WithTracer(c.tracer))
	}

	pipe, err := pipeline.NewPipeline(prog, c.regFile, c.memory, pipeOpts...)
	if err != nil {
		return nil, err
	}
	c.Pipeline = pipe

	c.logger.V(1).Info("core initialized",
		"instructions", prog.Len(), "multiplyLatency", c.config.MultiplyLatency)

	return c, nil
}

// Config returns the timing configuration in use.
func (c *Core) Config() *latency.TimingConfig {
	return c.config
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the data memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Step advances the machine by one cycle and reports whether it has
// terminated.
func (c *Core) Step() (bool, error) {
	return c.Pipeline.Tick()
}

// Halted returns true if the core has terminated.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls(),
		Flushes:      pipeStats.Flushes,
	}
}

// Run executes the core until it terminates and returns the final state.
func (c *Core) Run() (Result, error) {
	if err := c.Pipeline.Run(); err != nil {
		return c.Result(), err
	}
	return c.Result(), nil
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	return c.Pipeline.RunCycles(cycles)
}

// Result returns a snapshot of the current machine state.
func (c *Core) Result() Result {
	return Result{
		Registers:    c.regFile.R,
		Zero:         c.regFile.Flags.Zero,
		Memory:       c.memory.Snapshot(),
		Instructions: c.Pipeline.Completed(),
		Cycles:       c.Pipeline.Clock(),
		Pipeline:     c.Pipeline.Stats(),
	}
}

// Reset returns the core to the state Initialize produced.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
