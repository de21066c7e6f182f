package core

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Component drives a Core from an akita event engine, one pipeline cycle
// per tick at the configured clock frequency.
type Component struct {
	*sim.TickingComponent

	core *Core
	err  error
}

// NewComponent wraps c in a ticking component registered with engine.
func NewComponent(name string, engine sim.Engine, c *Core) *Component {
	comp := &Component{core: c}
	freq := sim.Freq(c.config.ClockGHz) * sim.GHz
	comp.TickingComponent = sim.NewTickingComponent(name, engine, freq, comp)
	return comp
}

// Tick advances the core by one cycle. It reports no progress once the core
// has terminated or faulted, which stops further ticks.
func (comp *Component) Tick() bool {
	if comp.err != nil || comp.core.Halted() {
		return false
	}

	done, err := comp.core.Step()
	if err != nil {
		comp.err = err
		return false
	}

	return !done
}

// Err returns the fault that stopped the core, if any.
func (comp *Component) Err() error {
	return comp.err
}

// RunOnEngine runs the core to completion on a fresh serial engine and
// returns the final state. The architectural result is the same as Run.
func (c *Core) RunOnEngine() (Result, error) {
	engine := sim.NewSerialEngine()
	comp := NewComponent("Core", engine, c)

	comp.TickLater()
	if err := engine.Run(); err != nil {
		return c.Result(), err
	}
	if comp.Err() != nil {
		return c.Result(), comp.Err()
	}

	return c.Result(), nil
}
