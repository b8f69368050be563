package orchestrator

import (
	"github.com/google/uuid"

	"github.com/asterhq/aster/internal/upstream"
)

// fragment is one tool call under reconstruction. Arguments is the exact
// concatenation of argument deltas in arrival order; it is treated as
// complete JSON only after the stream's finish reason arrives.
type fragment struct {
	ID        string
	Name      string
	Arguments string
}

// accumulator rebuilds tool calls from indexed deltas. Deltas for a new index
// open a fresh fragment; deltas for a known index append. Order of first
// appearance is preserved for dispatch.
type accumulator struct {
	byIndex map[int]*fragment
	order   []int
}

func newAccumulator() *accumulator {
	return &accumulator{byIndex: make(map[int]*fragment)}
}

func (a *accumulator) add(d upstream.ToolCallDelta) {
	f, ok := a.byIndex[d.Index]
	if !ok {
		f = &fragment{ID: d.ID}
		if f.ID == "" {
			// The provider omitted an id; synthesize one so the tool result
			// message can reference its originating call.
			f.ID = "call_" + uuid.NewString()
		}
		a.byIndex[d.Index] = f
		a.order = append(a.order, d.Index)
	}

	if d.Function.Name != "" {
		f.Name += d.Function.Name
	}
	// Always append, never replace.
	f.Arguments += d.Function.Arguments
}

func (a *accumulator) len() int {
	return len(a.order)
}

// fragments returns the reconstructed calls in first-appearance order.
func (a *accumulator) fragments() []fragment {
	out := make([]fragment, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.byIndex[idx])
	}
	return out
}

// toolCalls renders the fragments as wire-level tool calls for the assistant
// message appended between the phases.
func (a *accumulator) toolCalls() []upstream.ToolCall {
	frags := a.fragments()
	out := make([]upstream.ToolCall, 0, len(frags))
	for _, f := range frags {
		out = append(out, upstream.ToolCall{
			ID:   f.ID,
			Type: "function",
			Function: upstream.ToolCallFunc{
				Name:      f.Name,
				Arguments: f.Arguments,
			},
		})
	}
	return out
}
