package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/olekukonko/tablewriter"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// BenchmarkResult is the outcome of one kernel run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`

	// Decode cycles lost to RAW hazards and to a busy multiplier.
	DataStalls       uint64 `json:"data_stalls"`
	StructuralStalls uint64 `json:"structural_stalls"`

	PipelineFlushes uint64 `json:"pipeline_flushes"`
	Squashed        uint64 `json:"squashed"`

	// Result is the final value of the kernel's result register. Passed
	// requires it to match and, when verification is on, the emulator to
	// agree on the whole architectural state.
	Result int64  `json:"result"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark is a named kernel with a known answer.
type Benchmark struct {
	Name        string
	Description string

	// Source is the assembly text of the kernel.
	Source string

	// ResultReg must hold Expected when the kernel terminates.
	ResultReg uint8
	Expected  int64
}

// Program parses the kernel source.
func (b Benchmark) Program() (*loader.Program, error) {
	prog, err := loader.ParseString(b.Source)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}
	return prog, nil
}

// HarnessConfig configures a Harness. A nil Timing means the default
// timing; a nil Output means os.Stdout.
type HarnessConfig struct {
	Timing  *latency.TimingConfig
	Verify  bool // cross-check every run against the emulator
	Output  io.Writer
	Verbose bool // print a line per kernel as it finishes
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing:  latency.DefaultTimingConfig(),
		Verify:  true,
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs every added kernel in order. Failures are recorded in the
// results rather than returned.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %d cycles, %d instructions\n",
				result.Name, result.SimulatedCycles, result.InstructionsRetired)
		}
		results = append(results, result)
	}

	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	prog, err := bench.Program()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	c, err := core.Initialize(prog, core.WithTimingConfig(h.config.Timing))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	final, err := c.Run()
	result.WallTime = time.Since(start)

	stats := final.Pipeline
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.DataStalls = stats.DataStalls
	result.StructuralStalls = stats.StructuralStalls
	result.PipelineFlushes = stats.Flushes
	result.Squashed = stats.Squashed
	result.Result = final.Registers[bench.ResultReg]

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Passed = result.Result == bench.Expected
	if !result.Passed {
		result.Error = fmt.Sprintf("R%d = %d, want %d", bench.ResultReg, result.Result, bench.Expected)
		return result
	}

	if h.config.Verify {
		if diff := verify(prog, final); diff != "" {
			result.Passed = false
			result.Error = "emulator mismatch: " + diff
		}
	}

	return result
}

// verify runs prog on the functional emulator and returns a diff against the
// pipeline's final state, or "" when they agree.
func verify(prog *loader.Program, final core.Result) string {
	e := emu.NewEmulator()
	e.LoadProgram(prog)
	if err := e.Run(); err != nil {
		return err.Error()
	}

	type arch struct {
		Registers    [16]int64
		Zero         bool
		Memory       []int64
		Instructions uint64
	}

	want := arch{
		Registers:    e.RegFile().R,
		Zero:         e.RegFile().Flags.Zero,
		Memory:       e.Memory().Snapshot(),
		Instructions: e.InstructionCount(),
	}
	got := arch{
		Registers:    final.Registers,
		Zero:         final.Zero,
		Memory:       final.Memory,
		Instructions: final.Instructions,
	}

	return cmp.Diff(want, got)
}

// PrintResults outputs benchmark results as a table.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	table := tablewriter.NewWriter(h.config.Output)
	table.SetHeader([]string{
		"Benchmark", "Cycles", "Insts", "CPI", "RAW", "Busy", "Flushes", "Result", "Status",
	})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		table.Append([]string{
			r.Name,
			fmt.Sprint(r.SimulatedCycles),
			fmt.Sprint(r.InstructionsRetired),
			fmt.Sprintf("%.3f", r.CPI),
			fmt.Sprint(r.DataStalls),
			fmt.Sprint(r.StructuralStalls),
			fmt.Sprint(r.PipelineFlushes),
			fmt.Sprint(r.Result),
			status,
		})
	}

	table.Render()

	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %s\n", r.Name, r.Error)
		}
	}
}

// BenchmarkReport is the JSON document written by PrintJSON.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata records when and how the kernels were run.
type ReportMetadata struct {
	Timestamp string               `json:"timestamp"`
	Version   string               `json:"version"`
	Config    latency.TimingConfig `json:"config"`
}

// ReportSummary aggregates a set of results. AverageCPI is total cycles over
// total instructions.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	Failed            int           `json:"failed"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if !r.Passed {
			summary.Failed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// PrintJSON writes a BenchmarkReport for results.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    *h.config.Timing,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
