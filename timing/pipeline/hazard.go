package pipeline

// StallReason tells why decode could not issue.
type StallReason int

const (
	// StallNone means decode issued or had nothing to issue.
	StallNone StallReason = iota
	// StallData means a source register has an in-flight writer.
	StallData
	// StallStructural means the execute unit is busy with a multi-cycle
	// operation.
	StallStructural
)

// String returns a short name for the reason.
func (r StallReason) String() string {
	switch r {
	case StallData:
		return "raw"
	case StallStructural:
		return "busy"
	default:
		return ""
	}
}

// HazardUnit detects the hazards that stop decode from issuing.
type HazardUnit struct {
	board *Scoreboard
}

// NewHazardUnit creates a new hazard detection unit reading the given
// scoreboard.
func NewHazardUnit(board *Scoreboard) *HazardUnit {
	return &HazardUnit{board: board}
}

// Check returns the reason the instruction in the decode latch cannot issue
// into the execute latch. The structural hazard takes precedence.
func (h *HazardUnit) Check(decode, execute *Latch) StallReason {
	if decode.IsBubble() {
		return StallNone
	}

	if h.DetectStructuralHazard(execute) {
		return StallStructural
	}

	if h.DetectDataHazard(decode) {
		return StallData
	}

	return StallNone
}

// DetectStructuralHazard returns true while the execute unit is occupied.
func (h *HazardUnit) DetectStructuralHazard(execute *Latch) bool {
	return !execute.IsBubble() && execute.Busy
}

// DetectDataHazard returns true if any source register read by the
// instruction still has an in-flight writer.
func (h *HazardUnit) DetectDataHazard(decode *Latch) bool {
	op := decode.Inst.Op
	if op.ReadsRs1() && !h.board.Available(decode.Inst.Rs1) {
		return true
	}
	if op.ReadsRs2() && !h.board.Available(decode.Inst.Rs2) {
		return true
	}
	return false
}
