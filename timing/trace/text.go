package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sarchlab/pipesim/timing/pipeline"
)

// TextTracer prints one line per cycle showing the content of every stage.
// Stalls, busy cycles, flushes and retirements are highlighted when colour
// is enabled.
type TextTracer struct {
	w io.Writer

	stall   *color.Color
	flush   *color.Color
	retire  *color.Color
	bubble  *color.Color
	heading *color.Color
}

// NewTextTracer creates a tracer writing to w.
func NewTextTracer(w io.Writer, useColor bool) *TextTracer {
	t := &TextTracer{
		w:       w,
		stall:   color.New(color.FgYellow),
		flush:   color.New(color.FgRed, color.Bold),
		retire:  color.New(color.FgGreen),
		bubble:  color.New(color.Faint),
		heading: color.New(color.Bold),
	}

	for _, c := range []*color.Color{t.stall, t.flush, t.retire, t.bubble, t.heading} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return t
}

// TraceCycle prints the record.
func (t *TextTracer) TraceCycle(rec pipeline.CycleRecord) {
	var b strings.Builder

	b.WriteString(t.heading.Sprintf("%5d", rec.Cycle))
	for s := pipeline.StageFetch; s <= pipeline.StageWriteback; s++ {
		fmt.Fprintf(&b, " | %-3s ", s)
		b.WriteString(t.paint(rec.Stages[s]))
	}
	if rec.Terminated {
		b.WriteString(" | ")
		b.WriteString(t.heading.Sprint("terminated"))
	}
	b.WriteString("\n")

	_, _ = io.WriteString(t.w, b.String())
}

func (t *TextTracer) paint(r pipeline.StageRecord) string {
	s := r.String()
	switch {
	case r.Kind == pipeline.SlotBubble:
		return t.bubble.Sprint(s)
	case r.Flushed:
		return t.flush.Sprint(s)
	case r.Stalled || r.Busy:
		return t.stall.Sprint(s)
	case r.Retired:
		return t.retire.Sprint(s)
	default:
		return s
	}
}
