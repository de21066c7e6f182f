package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func printReport(w io.Writer, result core.Result) {
	_, _ = fmt.Fprintln(w, "Registers")
	printRegisters(w, result)

	words := nonZeroWords(result.Memory)
	if len(words) > 0 {
		_, _ = fmt.Fprintln(w, "Memory")
		printMemory(w, words)
	}

	_, _ = fmt.Fprintln(w, "Statistics")
	printStats(w, result.Pipeline)
}

func printRegisters(w io.Writer, result core.Result) {
	table := newTable(w, "Reg", "Value", "Reg", "Value")
	half := len(result.Registers) / 2
	for i := 0; i < half; i++ {
		table.Append([]string{
			fmt.Sprintf("R%d", i), fmt.Sprint(result.Registers[i]),
			fmt.Sprintf("R%d", i+half), fmt.Sprint(result.Registers[i+half]),
		})
	}
	table.SetFooter([]string{"", "", "Z", fmt.Sprint(result.Zero)})
	table.Render()
}

func printMemory(w io.Writer, words map[int]int64) {
	addrs := make([]int, 0, len(words))
	for addr := range words {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)

	table := newTable(w, "Address", "Value")
	for _, addr := range addrs {
		table.Append([]string{fmt.Sprint(addr), fmt.Sprint(words[addr])})
	}
	table.Render()
}

func printStats(w io.Writer, stats pipeline.Statistics) {
	table := newTable(w, "Metric", "Value")
	table.AppendBulk([][]string{
		{"Cycles", fmt.Sprint(stats.Cycles)},
		{"Instructions", fmt.Sprint(stats.Instructions)},
		{"CPI", fmt.Sprintf("%.3f", stats.CPI())},
		{"Data stalls", fmt.Sprint(stats.DataStalls)},
		{"Structural stalls", fmt.Sprint(stats.StructuralStalls)},
		{"Execute busy cycles", fmt.Sprint(stats.ExecBusyCycles)},
		{"Flushes", fmt.Sprint(stats.Flushes)},
		{"Squashed", fmt.Sprint(stats.Squashed)},
		{"Branches taken", fmt.Sprint(stats.BranchesTaken)},
		{"Branches not taken", fmt.Sprint(stats.BranchesNotTaken)},
	})
	table.Render()
}
