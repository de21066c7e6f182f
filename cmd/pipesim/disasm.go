package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var disasmCommand = cli.Command{
	Action:      disassemble,
	Name:        "disasm",
	Usage:       "List the decoded instructions of a program",
	ArgsUsage:   "<program.asm>",
	Category:    "MISCELLANEOUS COMMANDS",
	Description: `The disasm command prints each instruction with its address and source line.`,
}

func disassemble(ctx *cli.Context) error {
	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}

	table := newTable(stdout(ctx), "PC", "Line", "Instruction")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for i, inst := range prog.Insts {
		table.Append([]string{
			fmt.Sprint(prog.PCOf(i)),
			fmt.Sprint(prog.SourceLine(i)),
			inst.String(),
		})
	}
	table.Render()

	return nil
}
