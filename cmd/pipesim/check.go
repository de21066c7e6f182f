package main

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/urfave/cli.v1"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/core"
)

var errMismatch = errors.New("pipeline and emulator disagree")

var checkCommand = cli.Command{
	Action:    checkProgram,
	Name:      "check",
	Usage:     "Cross-check the pipeline against the functional emulator",
	ArgsUsage: "<program.asm>",
	Flags:     append([]cli.Flag{verbosityFlag}, timingFlags...),
	Category:  "SIMULATION COMMANDS",
	Description: `The check command runs a program on the pipeline and on the functional
emulator and compares registers, the zero flag, data memory and the number of
completed instructions.`,
}

// archState is the architectural state both models must agree on.
type archState struct {
	Registers    [16]int64
	Zero         bool
	Memory       []int64
	Instructions uint64
}

func runEmulator(prog *loader.Program, maxInstructions uint64) (archState, error) {
	e := emu.NewEmulator(emu.WithMaxInstructions(maxInstructions))
	e.LoadProgram(prog)
	err := e.Run()

	return archState{
		Registers:    e.RegFile().R,
		Zero:         e.RegFile().Flags.Zero,
		Memory:       e.Memory().Snapshot(),
		Instructions: e.InstructionCount(),
	}, err
}

func checkProgram(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}

	cfg, err := makeTimingConfig(ctx)
	if err != nil {
		return err
	}

	logger := newLogger(stderr(ctx), ctx.Int(verbosityFlag.Name))

	c, err := core.Initialize(prog, core.WithTimingConfig(cfg), core.WithLogger(logger))
	if err != nil {
		return err
	}
	result, err := c.Run()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	want, err := runEmulator(prog, cfg.MaxCycles)
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}

	got := archState{
		Registers:    result.Registers,
		Zero:         result.Zero,
		Memory:       result.Memory,
		Instructions: result.Instructions,
	}

	out := stdout(ctx)
	table := newTable(out, "Model", "Instructions", "Cycles")
	table.Append([]string{"pipeline", fmt.Sprint(got.Instructions), fmt.Sprint(result.Cycles)})
	table.Append([]string{"emulator", fmt.Sprint(want.Instructions), "-"})
	table.Render()

	if diff := cmp.Diff(want, got); diff != "" {
		_, _ = fmt.Fprintf(out, "mismatch (-emulator +pipeline):\n%s", diff)
		return errMismatch
	}

	_, _ = fmt.Fprintln(out, "OK: architectural state matches")
	return nil
}
