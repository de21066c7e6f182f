package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		board   *pipeline.Scoreboard
		hu      *pipeline.HazardUnit
		decode  pipeline.Latch
		execute pipeline.Latch
	)

	BeforeEach(func() {
		board = pipeline.NewScoreboard()
		hu = pipeline.NewHazardUnit(board)
		decode = pipeline.Latch{
			Kind: pipeline.SlotInst,
			Inst: insts.Instruction{Op: insts.OpADD, Rd: 3, Rs1: 1, Rs2: 2},
		}
		execute = pipeline.Latch{}
	})

	It("should report nothing for a bubble", func() {
		board.Reserve(1)
		execute = pipeline.Latch{Kind: pipeline.SlotInst, Busy: true}
		Expect(hu.Check(&pipeline.Latch{}, &execute)).To(Equal(pipeline.StallNone))
	})

	It("should report nothing when sources are available", func() {
		board.Reserve(3)
		Expect(hu.Check(&decode, &execute)).To(Equal(pipeline.StallNone))
	})

	It("should detect a RAW hazard on either source", func() {
		board.Reserve(1)
		Expect(hu.Check(&decode, &execute)).To(Equal(pipeline.StallData))

		board.Release(1)
		board.Reserve(2)
		Expect(hu.Check(&decode, &execute)).To(Equal(pipeline.StallData))
	})

	It("should ignore registers the opcode does not read", func() {
		decode.Inst = insts.Instruction{Op: insts.OpMOVC, Rd: 1, Rs1: 4, Imm: 3}
		board.Reserve(4)
		Expect(hu.Check(&decode, &execute)).To(Equal(pipeline.StallNone))
	})

	It("should check the STORE value and base registers", func() {
		decode.Inst = insts.Instruction{Op: insts.OpSTORE, Rs1: 5, Rs2: 6}
		board.Reserve(6)
		Expect(hu.DetectDataHazard(&decode)).To(BeTrue())
	})

	It("should give the structural hazard precedence", func() {
		board.Reserve(1)
		execute = pipeline.Latch{Kind: pipeline.SlotInst, Busy: true}
		Expect(hu.Check(&decode, &execute)).To(Equal(pipeline.StallStructural))
	})

	It("should not treat an idle execute latch as busy", func() {
		execute = pipeline.Latch{Kind: pipeline.SlotInst}
		Expect(hu.DetectStructuralHazard(&execute)).To(BeFalse())
	})
})
