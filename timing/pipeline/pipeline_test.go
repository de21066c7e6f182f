package pipeline_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

func newPipeline(src string, opts ...pipeline.PipelineOption) *pipeline.Pipeline {
	opts = append([]pipeline.PipelineOption{pipeline.WithLogger(GinkgoLogr)}, opts...)
	pipe, err := pipeline.NewPipeline(mustParse(src), nil, nil, opts...)
	Expect(err).NotTo(HaveOccurred())
	return pipe
}

func runPipeline(src string, opts ...pipeline.PipelineOption) *pipeline.Pipeline {
	pipe := newPipeline(src, opts...)
	Expect(pipe.Run()).To(Succeed())
	return pipe
}

var _ = Describe("Pipeline", func() {
	Describe("NewPipeline", func() {
		It("should start at the program base", func() {
			pipe := newPipeline("HALT")
			Expect(pipe.PC()).To(Equal(uint64(loader.BaseAddress)))
			Expect(pipe.RegFile().PC).To(Equal(uint64(loader.BaseAddress)))
			Expect(pipe.Clock()).To(BeZero())
			Expect(pipe.Halted()).To(BeFalse())
			for s := pipeline.StageFetch; s <= pipeline.StageWriteback; s++ {
				latch := pipe.Latch(s)
				Expect(latch.IsBubble()).To(BeTrue(), s.String())
			}
		})

		It("should reject a missing program", func() {
			_, err := pipeline.NewPipeline(nil, nil, nil)
			Expect(err).To(MatchError(pipeline.ErrInitialization))
		})

		It("should reject an empty program", func() {
			_, err := pipeline.NewPipeline(&loader.Program{Base: loader.BaseAddress}, nil, nil)
			Expect(err).To(MatchError(pipeline.ErrInitialization))
			Expect(err).To(MatchError(loader.ErrEmptyProgram))
		})

		It("should use the register file and memory it is given", func() {
			regFile := &emu.RegFile{}
			memory := emu.NewMemory()
			pipe, err := pipeline.NewPipeline(mustParse("MOVC R1,#3; STORE R1,R0,#2"), regFile, memory)
			Expect(err).NotTo(HaveOccurred())

			Expect(pipe.Run()).To(Succeed())
			Expect(regFile.ReadReg(1)).To(Equal(int64(3)))
			Expect(memory.Load(2)).To(Equal(int64(3)))
		})
	})

	Describe("Scenario A: sum two constants into memory", func() {
		var pipe *pipeline.Pipeline

		BeforeEach(func() {
			pipe = runPipeline("MOVC R1,#5; MOVC R2,#10; ADD R3,R1,R2; STORE R3,R0,#0; HALT")
		})

		It("should produce the architectural result", func() {
			Expect(pipe.RegFile().ReadReg(1)).To(Equal(int64(5)))
			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(10)))
			Expect(pipe.RegFile().ReadReg(3)).To(Equal(int64(15)))
			Expect(pipe.Memory().Load(0)).To(Equal(int64(15)))
		})

		It("should retire every instruction", func() {
			Expect(pipe.Completed()).To(Equal(uint64(5)))
			Expect(pipe.Halted()).To(BeTrue())
		})

		It("should stall for the RAW dependences", func() {
			Expect(pipe.Clock()).To(Equal(uint64(13)))
			Expect(pipe.Stats().DataStalls).To(Equal(uint64(4)))
			Expect(pipe.Scoreboard().Idle()).To(BeTrue())
		})
	})

	Describe("Scenario B: MOVC does not drive BZ", func() {
		It("should fall through because the flag is still clear", func() {
			pipe := runPipeline("MOVC R1,#0; BZ,#8; MOVC R2,#99; MOVC R2,#1; HALT")

			Expect(pipe.RegFile().Flags.Zero).To(BeFalse())
			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(1)))
			Expect(pipe.Completed()).To(Equal(uint64(5)))
			Expect(pipe.Stats().Flushes).To(BeZero())
			Expect(pipe.Stats().BranchesNotTaken).To(Equal(uint64(1)))
		})

		It("should branch once a SUB produces zero", func() {
			pipe := runPipeline("MOVC R1,#0; SUB R1,R1,R1; BZ,#8; MOVC R2,#99; MOVC R2,#1; HALT")

			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(1)))
			Expect(pipe.Completed()).To(Equal(uint64(5)))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(1)))
		})
	})

	Describe("Scenario C: back-to-back multiplies", func() {
		It("should compute 7^4 with a structural stall per multiply", func() {
			pipe := runPipeline("MOVC R1,#7; MUL R2,R1,R1; MUL R3,R2,R2; HALT")

			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(49)))
			Expect(pipe.RegFile().ReadReg(3)).To(Equal(int64(2401)))
			Expect(pipe.Completed()).To(Equal(uint64(4)))
			Expect(pipe.Clock()).To(Equal(uint64(14)))
			Expect(pipe.Stats().ExecBusyCycles).To(Equal(uint64(2)))
			Expect(pipe.Stats().StructuralStalls).To(Equal(uint64(2)))
		})
	})

	Describe("Latency", func() {
		It("should retire N independent instructions in N+4 cycles", func() {
			for n := 1; n <= 8; n++ {
				var b strings.Builder
				for i := 0; i < n; i++ {
					fmt.Fprintf(&b, "MOVC R%d,#%d\n", i+1, i)
				}
				pipe := runPipeline(b.String())

				Expect(pipe.Clock()).To(Equal(uint64(n+4)), "n=%d", n)
				Expect(pipe.Completed()).To(Equal(uint64(n)))
				Expect(pipe.Stats().Stalls()).To(BeZero())
			}
		})

		It("should count HALT as an instruction", func() {
			pipe := runPipeline("MOVC R1,#1; MOVC R2,#2; MOVC R3,#3; MOVC R4,#4; HALT")
			Expect(pipe.Clock()).To(Equal(uint64(9)))
			Expect(pipe.Completed()).To(Equal(uint64(5)))
		})

		It("should cost one extra cycle for an independent MUL", func() {
			add := runPipeline("ADD R3,R1,R2; MOVC R4,#1; HALT")
			mul := runPipeline("MUL R3,R1,R2; MOVC R4,#1; HALT")

			Expect(add.Clock()).To(Equal(uint64(7)))
			Expect(mul.Clock()).To(Equal(add.Clock() + 1))
		})

		It("should scale with the multiply latency", func() {
			config := latency.DefaultTimingConfig()
			config.MultiplyLatency = 5
			pipe := runPipeline("MUL R3,R1,R2; MOVC R4,#1; HALT",
				pipeline.WithLatencyTable(latency.NewTableWithConfig(config)))

			Expect(pipe.Clock()).To(Equal(uint64(7 + 4)))
		})
	})

	Describe("RAW correctness", func() {
		It("should read the committed value of a dependence chain", func() {
			pipe := runPipeline(`
				MOVC R1,#2
				ADD R2,R1,R1
				ADD R3,R2,R1
				SUB R4,R3,R2
				MUL R5,R4,R3
				STORE R5,R0,#7
				LOAD R6,R0,#7
				XOR R7,R6,R1`)

			Expect(pipe.RegFile().ReadReg(5)).To(Equal(int64(12)))
			Expect(pipe.RegFile().ReadReg(6)).To(Equal(int64(12)))
			Expect(pipe.RegFile().ReadReg(7)).To(Equal(int64(14)))
			Expect(pipe.Scoreboard().Idle()).To(BeTrue())
		})

		It("should commit stacked writes in order", func() {
			pipe := runPipeline("MOVC R1,#1; MOVC R1,#2; MOVC R1,#3; ADD R2,R1,R0")

			Expect(pipe.RegFile().ReadReg(1)).To(Equal(int64(3)))
			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(3)))
		})

		It("should commit logic results", func() {
			pipe := runPipeline("MOVC R1,#12; MOVC R2,#10; AND R3,R1,R2; OR R4,R1,R2; XOR R5,R1,R2")

			Expect(pipe.RegFile().ReadReg(3)).To(Equal(int64(8)))
			Expect(pipe.RegFile().ReadReg(4)).To(Equal(int64(14)))
			Expect(pipe.RegFile().ReadReg(5)).To(Equal(int64(6)))
		})
	})

	Describe("Control flow", func() {
		It("should squash exactly the two instructions behind a taken BZ", func() {
			pipe := runPipeline(`
				MOVC R1,#1
				MOVC R2,#2
				SUB R3,R1,R1
				BZ #12
				MOVC R4,#99
				MOVC R5,#99
				MOVC R6,#7
				HALT`)

			Expect(pipe.RegFile().ReadReg(4)).To(BeZero())
			Expect(pipe.RegFile().ReadReg(5)).To(BeZero())
			Expect(pipe.RegFile().ReadReg(6)).To(Equal(int64(7)))
			Expect(pipe.Completed()).To(Equal(uint64(6)))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(1)))
			Expect(pipe.Stats().Squashed).To(Equal(uint64(2)))
			Expect(pipe.Scoreboard().Idle()).To(BeTrue())
		})

		It("should release reservations of squashed instructions on JUMP", func() {
			pipe := runPipeline(`
				MOVC R1,#4016
				JUMP R1,#4
				MOVC R2,#99
				MOVC R3,#99
				MOVC R4,#99
				MOVC R5,#5
				HALT`)

			Expect(pipe.RegFile().ReadReg(2)).To(BeZero())
			Expect(pipe.RegFile().ReadReg(3)).To(BeZero())
			Expect(pipe.RegFile().ReadReg(4)).To(BeZero())
			Expect(pipe.RegFile().ReadReg(5)).To(Equal(int64(5)))
			Expect(pipe.Completed()).To(Equal(uint64(4)))
			Expect(pipe.Scoreboard().Idle()).To(BeTrue())
		})

		It("should withdraw the halt request of a squashed HALT", func() {
			pipe := runPipeline(`
				MOVC R1,#3
				SUB R1,R1,R1
				BZ #8
				HALT
				MOVC R2,#1
				HALT`)

			Expect(pipe.RegFile().ReadReg(2)).To(Equal(int64(1)))
			Expect(pipe.Completed()).To(Equal(uint64(5)))
			Expect(pipe.HaltRequested()).To(BeTrue())
		})

		It("should run a BNZ loop", func() {
			pipe := runPipeline(`
				MOVC R1,#3
				MOVC R2,#1
				MOVC R3,#0
				ADD R3,R3,R1
				SUB R1,R1,R2
				BNZ #-8
				STORE R3,R0,#4
				HALT`)

			Expect(pipe.Memory().Load(4)).To(Equal(int64(6)))
			Expect(pipe.Completed()).To(Equal(uint64(3 + 3*3 + 2)))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(2)))
			Expect(pipe.Stats().BranchesNotTaken).To(Equal(uint64(1)))
		})
	})

	Describe("Tick", func() {
		It("should stay terminated", func() {
			pipe := runPipeline("HALT")
			clock := pipe.Clock()

			done, err := pipe.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(pipe.Clock()).To(Equal(clock))
		})

		It("should stop on a data memory fault", func() {
			pipe := newPipeline("MOVC R1,#-1; LOAD R2,R1,#0; HALT")

			err := pipe.Run()
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))

			_, err = pipe.Tick()
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))
		})

		It("should stop when a jump leaves the program", func() {
			pipe := newPipeline("MOVC R1,#0; JUMP R1,#0; HALT")

			err := pipe.Run()
			Expect(err).To(MatchError(emu.ErrPCOutOfRange))

			_, err = pipe.Tick()
			Expect(err).To(MatchError(emu.ErrPCOutOfRange))
		})

		It("should honour the cycle limit", func() {
			pipe := newPipeline("MOVC R1,#1; BNZ #0; HALT", pipeline.WithCycleLimit(50))

			Expect(pipe.Run()).To(MatchError(pipeline.ErrCycleLimit))
			Expect(pipe.Clock()).To(Equal(uint64(50)))
		})
	})

	Describe("RunCycles", func() {
		It("should report whether the machine is still running", func() {
			pipe := newPipeline("MOVC R1,#1; MOVC R2,#2; HALT")

			running, err := pipe.RunCycles(3)
			Expect(err).NotTo(HaveOccurred())
			Expect(running).To(BeTrue())
			Expect(pipe.Clock()).To(Equal(uint64(3)))

			running, err = pipe.RunCycles(100)
			Expect(err).NotTo(HaveOccurred())
			Expect(running).To(BeFalse())
			Expect(pipe.Clock()).To(Equal(uint64(7)))
		})
	})

	Describe("Tracer", func() {
		It("should see every cycle with the termination flag last", func() {
			var recs []pipeline.CycleRecord
			pipe := runPipeline("MOVC R1,#5; ADD R2,R1,R1; HALT",
				pipeline.WithTracer(pipeline.TracerFunc(func(rec pipeline.CycleRecord) {
					recs = append(recs, rec)
				})))

			Expect(recs).To(HaveLen(int(pipe.Clock())))
			for i, rec := range recs {
				Expect(rec.Cycle).To(Equal(uint64(i + 1)))
				Expect(rec.Terminated).To(Equal(i == len(recs)-1))
			}

			first := recs[0].Stages[pipeline.StageFetch]
			Expect(first.Kind).To(Equal(pipeline.SlotInst))
			Expect(first.Inst.Op).To(Equal(insts.OpMOVC))

			last := recs[len(recs)-1].Stages[pipeline.StageWriteback]
			Expect(last.Retired).To(BeTrue())
			Expect(last.Inst.Op).To(Equal(insts.OpHALT))
		})

		It("should report decode stalls with their reason", func() {
			var reasons []pipeline.StallReason
			runPipeline("MOVC R1,#5; ADD R2,R1,R1",
				pipeline.WithTracer(pipeline.TracerFunc(func(rec pipeline.CycleRecord) {
					if r := rec.Stages[pipeline.StageDecode]; r.Stalled {
						reasons = append(reasons, r.Reason)
					}
				})))

			Expect(reasons).To(Equal([]pipeline.StallReason{pipeline.StallData, pipeline.StallData}))
		})
	})

	Describe("Reset", func() {
		It("should replay to an identical final state", func() {
			pipe := runPipeline(`
				MOVC R1,#7
				MUL R2,R1,R1
				STORE R2,R0,#3
				SUB R3,R2,R2
				BZ #8
				MOVC R4,#1
				HALT`)
			regs := pipe.RegFile().R
			flags := pipe.RegFile().Flags
			mem := pipe.Memory().Snapshot()
			stats := pipe.Stats()

			pipe.Reset()
			Expect(pipe.Clock()).To(BeZero())
			Expect(pipe.PC()).To(Equal(uint64(loader.BaseAddress)))
			Expect(pipe.Memory().Load(3)).To(BeZero())

			Expect(pipe.Run()).To(Succeed())
			Expect(pipe.RegFile().R).To(Equal(regs))
			Expect(pipe.RegFile().Flags).To(Equal(flags))
			Expect(pipe.Memory().Snapshot()).To(Equal(mem))
			Expect(pipe.Stats()).To(Equal(stats))
		})
	})
})
