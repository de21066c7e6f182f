package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"gopkg.in/urfave/cli.v1"

	"github.com/sarchlab/pipesim/timing/latency"
)

var (
	dumpConfigCommand = cli.Command{
		Action:    dumpConfig,
		Name:      "dumpconfig",
		Usage:     "Show configuration values",
		ArgsUsage: "[file]",
		Flags:     timingFlags,
		Category:  "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command prints the effective timing configuration as TOML.
If a file is given the configuration is written there instead.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Timing configuration file (.toml or .json)",
	}
	multiplyLatencyFlag = cli.Uint64Flag{
		Name:  "mul-latency",
		Usage: "Cycles a MUL occupies the execute stage",
	}
	maxCyclesFlag = cli.Uint64Flag{
		Name:  "max-cycles",
		Usage: "Stop with an error after this many cycles (0 = no limit)",
	}
	clockFlag = cli.Float64Flag{
		Name:  "clock",
		Usage: "Core clock in GHz when driven by the event engine",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log verbosity (0 = quiet, 1 = pipeline events, 2 = per-cycle detail)",
	}

	timingFlags = []cli.Flag{
		configFileFlag,
		multiplyLatencyFlag,
		maxCyclesFlag,
		clockFlag,
	}
)

// makeTimingConfig builds the timing configuration from the defaults, the
// optional config file and any flags given on the command line, in that
// order.
func makeTimingConfig(ctx *cli.Context) (*latency.TimingConfig, error) {
	cfg := latency.DefaultTimingConfig()

	if file := ctx.String(configFileFlag.Name); file != "" {
		loaded, err := latency.LoadConfig(file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if ctx.IsSet(multiplyLatencyFlag.Name) {
		cfg.MultiplyLatency = ctx.Uint64(multiplyLatencyFlag.Name)
	}
	if ctx.IsSet(maxCyclesFlag.Name) {
		cfg.MaxCycles = ctx.Uint64(maxCyclesFlag.Name)
	}
	if ctx.IsSet(clockFlag.Name) {
		cfg.ClockGHz = ctx.Float64(clockFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger returns a logger writing key/value lines to w.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeTimingConfig(ctx)
	if err != nil {
		return err
	}

	out, err := cfg.MarshalTOML()
	if err != nil {
		return err
	}

	dump := stdout(ctx)
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		dump = f
	}

	_, err = dump.Write(out)
	return err
}
