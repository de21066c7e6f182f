// Package main provides the pipesim command line tool.
// pipesim is a cycle-accurate simulator of an in-order five-stage pipeline.
package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/urfave/cli.v1"
)

const version = "0.1.0"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pipesim"
	app.Usage = "cycle-accurate five-stage pipeline simulator"
	app.Version = version
	app.Commands = []cli.Command{
		runCommand,
		checkCommand,
		disasmCommand,
		benchCommand,
		dumpConfigCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// stdout returns the writer commands print their reports to.
func stdout(ctx *cli.Context) io.Writer {
	if ctx.App.Writer != nil {
		return ctx.App.Writer
	}
	return os.Stdout
}

// stderr returns the writer used for logs.
func stderr(ctx *cli.Context) io.Writer {
	if ctx.App.ErrWriter != nil {
		return ctx.App.ErrWriter
	}
	return os.Stderr
}
