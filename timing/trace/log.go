package trace

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/pipesim/timing/pipeline"
)

// LogTracer writes each cycle as a structured log entry at the given
// verbosity.
type LogTracer struct {
	logger logr.Logger
	level  int
}

// NewLogTracer creates a tracer logging through logger at verbosity level.
func NewLogTracer(logger logr.Logger, level int) *LogTracer {
	return &LogTracer{logger: logger, level: level}
}

// TraceCycle logs the record.
func (t *LogTracer) TraceCycle(rec pipeline.CycleRecord) {
	log := t.logger.V(t.level)
	if !log.Enabled() {
		return
	}

	kv := make([]interface{}, 0, 2*(pipeline.NumStages+2))
	kv = append(kv, "cycle", rec.Cycle, "pc", rec.PC)
	for s := pipeline.StageFetch; s <= pipeline.StageWriteback; s++ {
		kv = append(kv, s.String(), rec.Stages[s].String())
	}
	if rec.Terminated {
		kv = append(kv, "terminated", true)
	}

	log.Info("cycle", kv...)
}
