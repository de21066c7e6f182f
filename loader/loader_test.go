package loader_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/loader"
)

var _ = Describe("Program Loader", func() {
	Describe("Load", func() {
		Context("with a valid program file", func() {
			It("should load without error", func() {
				prog, err := loader.Load(filepath.Join("testdata", "sum.asm"))
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
				Expect(prog.Len()).To(Equal(5))
			})

			It("should place the program at the base address", func() {
				prog, err := loader.Load(filepath.Join("testdata", "sum.asm"))
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Base).To(Equal(uint64(loader.BaseAddress)))
				Expect(prog.PCOf(0)).To(Equal(uint64(4000)))
				Expect(prog.LastPC()).To(Equal(uint64(4016)))
			})

			It("should decode instructions in order", func() {
				prog, err := loader.Load(filepath.Join("testdata", "sum.asm"))
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Insts[2]).To(Equal(insts.Instruction{Op: insts.OpADD, Rd: 3, Rs1: 1, Rs2: 2}))
				Expect(prog.Insts[3]).To(Equal(insts.Instruction{Op: insts.OpSTORE, Rs1: 3, Rs2: 0}))
				Expect(prog.Insts[4].Op).To(Equal(insts.OpHALT))
			})

			It("should remember source lines", func() {
				prog, err := loader.Load(filepath.Join("testdata", "sum.asm"))
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.SourceLine(0)).To(Equal(2))
				Expect(prog.SourceLine(4)).To(Equal(6))
				Expect(prog.SourceLine(9)).To(Equal(0))
			})
		})

		Context("with a bad program file", func() {
			It("should report the file and line", func() {
				_, err := loader.Load(filepath.Join("testdata", "bad_register.asm"))
				Expect(err).To(HaveOccurred())

				var perr *loader.ParseError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(perr.Line).To(Equal(2))
				Expect(perr.Path).To(HaveSuffix("bad_register.asm"))
				Expect(err).To(MatchError(insts.ErrInvalidRegister))
			})
		})

		It("should fail for a missing file", func() {
			_, err := loader.Load(filepath.Join(os.TempDir(), "does-not-exist.asm"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open program file"))
		})
	})

	Describe("ParseString", func() {
		It("should accept semicolon-separated instructions", func() {
			prog, err := loader.ParseString("MOVC R1,#5; MOVC R2,#10; HALT")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(3))
			Expect(prog.SourceLine(2)).To(Equal(1))
		})

		It("should skip blank lines and comments", func() {
			prog, err := loader.ParseString("\n// header\n\nMOVC R1,#1 // one\n\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(1))
		})

		It("should reject an empty program", func() {
			_, err := loader.ParseString("// nothing here\n")
			Expect(err).To(MatchError(loader.ErrEmptyProgram))
		})

		It("should reject unknown opcodes with a ParseError", func() {
			_, err := loader.ParseString("MOVC R1,#1\nFOO R1\n")
			var perr *loader.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Line).To(Equal(2))
			Expect(perr.Text).To(Equal("FOO R1"))
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})

		It("should reject branch offsets that are not whole slots", func() {
			_, err := loader.ParseString("BZ #6; HALT")
			Expect(err).To(MatchError(loader.ErrBranchTarget))
		})

		It("should reject branch targets outside the program", func() {
			_, err := loader.ParseString("MOVC R1,#1; BNZ #8; HALT")
			Expect(err).To(MatchError(loader.ErrBranchTarget))

			_, err = loader.ParseString("BZ #-4; HALT")
			Expect(err).To(MatchError(loader.ErrBranchTarget))
		})

		It("should accept backward branches inside the program", func() {
			prog, err := loader.ParseString("MOVC R1,#1; BNZ #-4; HALT")
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Insts[1].Imm).To(Equal(int64(-4)))
		})
	})

	Describe("Program addressing", func() {
		var prog *loader.Program

		BeforeEach(func() {
			var err error
			prog, err = loader.NewProgram([]insts.Instruction{
				{Op: insts.OpMOVC, Rd: 1, Imm: 1},
				{Op: insts.OpHALT},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should map addresses to instructions", func() {
			inst, ok := prog.At(4004)
			Expect(ok).To(BeTrue())
			Expect(inst.Op).To(Equal(insts.OpHALT))
		})

		It("should reject misaligned and out-of-range addresses", func() {
			_, ok := prog.At(4002)
			Expect(ok).To(BeFalse())
			_, ok = prog.At(4008)
			Expect(ok).To(BeFalse())
			_, ok = prog.At(0)
			Expect(ok).To(BeFalse())
		})

		It("should validate instructions built in code", func() {
			_, err := loader.NewProgram([]insts.Instruction{{Op: insts.OpMOVC, Rd: 16}})
			Expect(err).To(MatchError(insts.ErrInvalidRegister))

			_, err = loader.NewProgram(nil)
			Expect(err).To(MatchError(loader.ErrEmptyProgram))
		})
	})
})
