package orchestrator

// State enumerates the orchestration state machine:
//
//	AwaitPhase1 → ParsingPhase1 → {Done | ToolsPending} → ExecutingTools →
//	AwaitPhase2 → ParsingPhase2 → Done
//
// Errored is reachable from every state. Aborted means the caller canceled
// and no terminal event was (or will be) emitted.
type State int

const (
	StateAwaitPhase1 State = iota
	StateParsingPhase1
	StateToolsPending
	StateExecutingTools
	StateAwaitPhase2
	StateParsingPhase2
	StateDone
	StateErrored
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitPhase1:
		return "await_phase1"
	case StateParsingPhase1:
		return "parsing_phase1"
	case StateToolsPending:
		return "tools_pending"
	case StateExecutingTools:
		return "executing_tools"
	case StateAwaitPhase2:
		return "await_phase2"
	case StateParsingPhase2:
		return "parsing_phase2"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// nextAfterPhase1 decides the transition out of ParsingPhase1.
// The tool branch is taken only when the upstream signaled the tool-call
// finish reason AND at least one fragment accumulated. Every other outcome
// (natural stop, length cut, a dropped connection with no finish reason)
// closes the run with whatever text was already delivered.
func nextAfterPhase1(finishReason string, fragments int) State {
	if finishReason == "tool_calls" && fragments > 0 {
		return StateToolsPending
	}
	return StateDone
}
