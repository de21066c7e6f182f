// Package benchmarks provides built-in kernels and a timing harness that
// runs them through the pipeline.
package benchmarks

import (
	"fmt"
	"strings"
)

// GetMicrobenchmarks returns the standard set of kernels. Each kernel
// targets a single pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		multiplyChain(),
		memorySequential(),
		countdownLoop(),
		jumpChain(),
		mixedOperations(),
	}
}

// GetCoreBenchmarks returns a minimal set of kernels for quick validation:
// a loop, a multiply-heavy chain and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countdownLoop(),
		multiplyChain(),
		jumpChain(),
	}
}

// Lookup returns the kernel with the given name.
func Lookup(name string) (Benchmark, bool) {
	for _, b := range GetMicrobenchmarks() {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

func program(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func repeat(n int, format string, args ...interface{}) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf(format, args...)
	}
	return out
}

// Independent adds into rotating destinations. After the two constants are
// available the pipeline retires one instruction per cycle.
func arithmeticSequential() Benchmark {
	lines := []string{"MOVC R1,#1", "MOVC R2,#2"}
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("ADD R%d,R1,R2", 3+i%5))
	}
	lines = append(lines, "HALT")

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDs - measures issue throughput",
		Source:      program(lines...),
		ResultReg:   7,
		Expected:    3,
	}
}

// Every add reads the previous result, so each one waits for writeback.
func dependencyChain() Benchmark {
	lines := append([]string{"MOVC R1,#1"}, repeat(10, "ADD R1,R1,R1")...)
	lines = append(lines, "HALT")

	return Benchmark{
		Name:        "dependency_chain",
		Description: "10 dependent ADDs - measures RAW stall cost",
		Source:      program(lines...),
		ResultReg:   1,
		Expected:    1024,
	}
}

func multiplyChain() Benchmark {
	lines := []string{"MOVC R1,#1", "MOVC R2,#2"}
	lines = append(lines, repeat(10, "MUL R1,R1,R2")...)
	lines = append(lines, "HALT")

	return Benchmark{
		Name:        "multiply_chain",
		Description: "10 dependent MULs - measures multiplier occupancy",
		Source:      program(lines...),
		ResultReg:   1,
		Expected:    1024,
	}
}

func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 stores then 4 loads summed - measures load-use stalls",
		Source: program(
			"MOVC R1,#5",
			"STORE R1,R0,#0",
			"STORE R1,R0,#1",
			"STORE R1,R0,#2",
			"STORE R1,R0,#3",
			"LOAD R2,R0,#0",
			"LOAD R3,R0,#1",
			"LOAD R4,R0,#2",
			"LOAD R5,R0,#3",
			"ADD R6,R2,R3",
			"ADD R7,R4,R5",
			"ADD R8,R6,R7",
			"HALT",
		),
		ResultReg: 8,
		Expected:  20,
	}
}

// Sums 10..1 with a BNZ back edge; every taken branch squashes two slots.
func countdownLoop() Benchmark {
	return Benchmark{
		Name:        "countdown_loop",
		Description: "10-iteration BNZ loop - measures taken-branch penalty",
		Source: program(
			"MOVC R1,#10",
			"MOVC R2,#1",
			"MOVC R3,#0",
			"ADD R3,R3,R1",
			"SUB R1,R1,R2",
			"BNZ #-8",
			"HALT",
		),
		ResultReg: 3,
		Expected:  55,
	}
}

// Each JUMP skips one instruction that must never retire.
func jumpChain() Benchmark {
	lines := []string{"MOVC R1,#0"}
	pc := 4004
	for i := 0; i < 5; i++ {
		lines = append(lines,
			fmt.Sprintf("JUMP R0,#%d", pc+8),
			"MOVC R1,#99",
		)
		pc += 8
	}
	lines = append(lines, "MOVC R2,#1", "ADD R1,R1,R2", "HALT")

	return Benchmark{
		Name:        "jump_chain",
		Description: "5 unconditional jumps over dead code - measures flush cost",
		Source:      program(lines...),
		ResultReg:   1,
		Expected:    1,
	}
}

// Computes 5! with a loop mixing MUL, SUB, BZ and memory traffic.
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "factorial loop with MUL, STORE and LOAD",
		Source: program(
			"MOVC R1,#5",
			"MOVC R2,#1",
			"MOVC R3,#1",
			"MUL R2,R2,R1",
			"STORE R2,R0,#10",
			"SUB R1,R1,R3",
			"BZ #8",
			"JUMP R0,#4012",
			"LOAD R4,R0,#10",
			"HALT",
		),
		ResultReg: 4,
		Expected:  120,
	}
}
