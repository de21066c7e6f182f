package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"gopkg.in/urfave/cli.v1"

	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/trace"
)

var errUsage = errors.New("expected exactly one program file")

var (
	runCommand = cli.Command{
		Action:    runProgram,
		Name:      "run",
		Usage:     "Simulate a program cycle by cycle",
		ArgsUsage: "<program.asm>",
		Flags: append([]cli.Flag{
			traceFlag,
			noColorFlag,
			engineFlag,
			dumpStateFlag,
			verbosityFlag,
		}, timingFlags...),
		Category: "SIMULATION COMMANDS",
		Description: `The run command loads a program, simulates it until it terminates and
prints the final registers, non-zero memory words and pipeline statistics.`,
	}

	traceFlag = cli.StringFlag{
		Name:  "trace",
		Usage: "Per-cycle trace: none, text or log",
		Value: "none",
	}
	noColorFlag = cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured text traces",
	}
	engineFlag = cli.BoolFlag{
		Name:  "engine",
		Usage: "Drive the core from an event engine at the configured clock",
	}
	dumpStateFlag = cli.BoolFlag{
		Name:  "dump-state",
		Usage: "Dump the final machine state",
	}
)

func loadProgram(ctx *cli.Context) (*loader.Program, error) {
	if ctx.NArg() != 1 {
		return nil, errUsage
	}
	return loader.Load(ctx.Args().First())
}

func makeTracer(ctx *cli.Context, out io.Writer, logger logr.Logger) (pipeline.Tracer, error) {
	switch mode := ctx.String(traceFlag.Name); mode {
	case "", "none":
		return nil, nil
	case "text":
		return trace.NewTextTracer(out, !ctx.Bool(noColorFlag.Name)), nil
	case "log":
		return trace.NewLogTracer(logger.WithName("trace"), 0), nil
	default:
		return nil, fmt.Errorf("unknown trace mode %q", mode)
	}
}

func runProgram(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}

	cfg, err := makeTimingConfig(ctx)
	if err != nil {
		return err
	}

	out := stdout(ctx)
	logger := newLogger(stderr(ctx), ctx.Int(verbosityFlag.Name))

	tracer, err := makeTracer(ctx, out, logger)
	if err != nil {
		return err
	}

	opts := []core.Option{core.WithTimingConfig(cfg), core.WithLogger(logger)}
	if tracer != nil {
		opts = append(opts, core.WithTracer(tracer))
	}

	c, err := core.Initialize(prog, opts...)
	if err != nil {
		return err
	}

	var result core.Result
	if ctx.Bool(engineFlag.Name) {
		result, err = c.RunOnEngine()
	} else {
		result, err = c.Run()
	}

	printReport(out, result)
	if ctx.Bool(dumpStateFlag.Name) {
		dumpState(out, result)
	}

	if err != nil {
		return fmt.Errorf("simulation stopped at cycle %d: %w", result.Cycles, err)
	}
	return nil
}

// machineState is the part of a result printed by --dump-state.
type machineState struct {
	Registers [16]int64
	Zero      bool
	Memory    map[int]int64
	Stats     pipeline.Statistics
}

func dumpState(w io.Writer, result core.Result) {
	state := machineState{
		Registers: result.Registers,
		Zero:      result.Zero,
		Memory:    nonZeroWords(result.Memory),
		Stats:     result.Pipeline,
	}

	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cfg.Fdump(w, state)
}

func nonZeroWords(mem []int64) map[int]int64 {
	words := make(map[int]int64)
	for addr, v := range mem {
		if v != 0 {
			words[addr] = v
		}
	}
	return words
}
