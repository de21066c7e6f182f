package pipeline

import "github.com/sarchlab/pipesim/insts"

// flushOrder lists the latches that hold wrong-path instructions when a taken
// control transfer reaches the memory stage.
var flushOrder = [...]Stage{StageExecute, StageDecode}

// flush discards the instructions behind a taken control transfer and
// redirects fetch to target. Reservations taken by discarded instructions
// are released, and a halt request raised by a discarded HALT is withdrawn.
// It returns the number of discarded instructions.
func flush(st *State, target uint64) int {
	squashed := 0

	for _, stage := range flushOrder {
		l := st.Latch(stage)
		if l.IsBubble() {
			l.Clear()
			continue
		}

		squashed++
		if l.Reserved {
			st.Board.Release(l.Inst.Rd)
		}
		if stage == StageExecute && l.Inst.Op == insts.OpHALT {
			st.HaltRequested = false
		}
		l.Clear()
	}

	st.ExecCyclesLeft = 0
	st.PC = target

	st.Stats.Flushes++
	st.Stats.Squashed += uint64(squashed)

	return squashed
}
