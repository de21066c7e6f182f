package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"gopkg.in/urfave/cli.v1"

	"github.com/sarchlab/pipesim/benchmarks"
)

var errBenchmarkFailed = errors.New("benchmark failed")

var (
	benchCommand = cli.Command{
		Action:    runBenchmarks,
		Name:      "bench",
		Usage:     "Run the built-in timing kernels",
		ArgsUsage: "[kernel...]",
		Flags: append([]cli.Flag{
			jsonFlag,
			coreSetFlag,
			noVerifyFlag,
			cpuProfileFlag,
			memProfileFlag,
		}, timingFlags...),
		Category: "SIMULATION COMMANDS",
		Description: `The bench command runs the built-in kernels, checks each result against
the functional emulator and prints cycles, CPI and stall counts. Kernels may
be selected by name.`,
	}

	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Print a JSON report",
	}
	coreSetFlag = cli.BoolFlag{
		Name:  "core",
		Usage: "Run only the quick core kernel set",
	}
	noVerifyFlag = cli.BoolFlag{
		Name:  "no-verify",
		Usage: "Skip the functional emulator cross-check",
	}
	cpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "Write a CPU profile to this file",
	}
	memProfileFlag = cli.StringFlag{
		Name:  "memprofile",
		Usage: "Write a heap profile to this file",
	}
)

func selectBenchmarks(ctx *cli.Context) ([]benchmarks.Benchmark, error) {
	if ctx.NArg() == 0 {
		if ctx.Bool(coreSetFlag.Name) {
			return benchmarks.GetCoreBenchmarks(), nil
		}
		return benchmarks.GetMicrobenchmarks(), nil
	}

	selected := make([]benchmarks.Benchmark, 0, ctx.NArg())
	for _, name := range ctx.Args() {
		b, ok := benchmarks.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown kernel %q", name)
		}
		selected = append(selected, b)
	}
	return selected, nil
}

func runBenchmarks(ctx *cli.Context) error {
	cfg, err := makeTimingConfig(ctx)
	if err != nil {
		return err
	}

	selected, err := selectBenchmarks(ctx)
	if err != nil {
		return err
	}

	if path := ctx.String(cpuProfileFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	config := benchmarks.DefaultConfig()
	config.Timing = cfg
	config.Verify = !ctx.Bool(noVerifyFlag.Name)
	config.Output = stdout(ctx)

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(selected)
	results := harness.RunAll()

	if ctx.Bool(jsonFlag.Name) {
		if err := harness.PrintJSON(results); err != nil {
			return err
		}
	} else {
		harness.PrintResults(results)
	}

	if path := ctx.String(memProfileFlag.Name); path != "" {
		if err := writeHeapProfile(path); err != nil {
			return err
		}
	}

	if failed := benchmarks.Summarize(results).Failed; failed > 0 {
		return fmt.Errorf("%w: %d of %d", errBenchmarkFailed, failed, len(results))
	}
	return nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	return nil
}
