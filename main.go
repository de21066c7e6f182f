// Package main provides the entry point for pipesim.
// pipesim is a cycle-accurate simulator of an in-order five-stage pipeline
// built on Akita.
//
// For the full CLI, use: go run ./cmd/pipesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("pipesim - five-stage pipeline simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: pipesim <command> [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run         Simulate a program cycle by cycle")
	fmt.Println("  check       Cross-check the pipeline against the functional emulator")
	fmt.Println("  disasm      List the decoded instructions of a program")
	fmt.Println("  bench       Run the built-in timing kernels")
	fmt.Println("  dumpconfig  Show configuration values")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipesim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipesim' instead.")
	}
}
