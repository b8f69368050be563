package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/asterhq/aster/internal/chat"
	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/modules"
	"github.com/asterhq/aster/internal/prompt"
	"github.com/asterhq/aster/internal/research"
	"github.com/asterhq/aster/internal/upstream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedStreamer returns one canned SSE body (or error) per Stream call.
type scriptedStreamer struct {
	bodies []string
	errs   []error
	calls  int
	reqs   []upstream.ChatRequest
}

func (s *scriptedStreamer) Stream(_ context.Context, req upstream.ChatRequest) (*upstream.Stream, error) {
	i := s.calls
	s.calls++
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.bodies) {
		return nil, fmt.Errorf("unexpected stream call %d", i)
	}
	return upstream.NewStream(io.NopCloser(strings.NewReader(s.bodies[i])), log.NewNop()), nil
}

type fakeRouter struct {
	ids []modules.ID
}

func (f *fakeRouter) Identify(context.Context, string, []chat.HistoryEntry) []modules.ID {
	return f.ids
}

type executedCall struct {
	name, args string
}

type fakeExecutor struct {
	text    string
	records []research.Record
	calls   []executedCall
}

func (f *fakeExecutor) Execute(_ context.Context, name, args string) (string, []research.Record) {
	f.calls = append(f.calls, executedCall{name: name, args: args})
	return f.text, f.records
}

// collector gathers emitted events; fail aborts delivery when it returns true.
type collector struct {
	events []Event
	fail   func(Event) bool
}

func (c *collector) emit(ev Event) error {
	if c.fail != nil && c.fail(ev) {
		return errors.New("caller gone")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *collector) tokenText() string {
	var b strings.Builder
	for _, ev := range c.ofType(EventToken) {
		b.WriteString(ev.Token)
	}
	return b.String()
}

// checkTerminal asserts the exactly-one-terminal-event property.
func (c *collector) checkTerminal(t *testing.T, want EventType) {
	t.Helper()
	var terminals []int
	for i, ev := range c.events {
		if ev.Type == EventDone || ev.Type == EventError {
			terminals = append(terminals, i)
		}
	}
	if len(terminals) != 1 {
		t.Fatalf("terminal events = %d, want exactly 1 (events: %+v)", len(terminals), c.events)
	}
	idx := terminals[0]
	if c.events[idx].Type != want {
		t.Errorf("terminal type = %s, want %s", c.events[idx].Type, want)
	}
	if idx != len(c.events)-1 {
		t.Errorf("events follow the terminal event: %+v", c.events[idx+1:])
	}
}

func newTestOrchestrator(t *testing.T, streamer *scriptedStreamer, exec *fakeExecutor) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Client:    streamer,
		Router:    &fakeRouter{},
		Assembler: prompt.New(),
		Adapter:   exec,
		Logger:    log.NewNop(),
		Model:     "test-model",
		ToolUse:   true,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o
}

const plainStopBody = `data: {"choices":[{"delta":{"content":"All "}}]}

data: {"choices":[{"delta":{"content":"good."}}]}

data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":42}}

data: [DONE]
`

const toolCallBody = `data: {"choices":[{"delta":{"content":"Let me check the research."}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"search_adhd_research","arguments":"{\"query\":\"adhd"}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":" sleep\",\"top_k\":5}"}}]}}]}

data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`

const phase2Body = `data: {"choices":[{"delta":{"content":"Based on the research, "}}]}

data: {"choices":[{"delta":{"content":"try a wind-down routine."}}]}

data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":17}}

data: [DONE]
`

// Scenario: phase-1 stream ends with finish_reason "stop" and zero tool
// fragments. A single done event, no second request.
func TestRun_PlainAnswer(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{plainStopBody}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(t, streamer, exec)
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "how do bedtimes work"}, c.emit)

	if state != StateDone {
		t.Errorf("state = %v, want StateDone", state)
	}
	if streamer.calls != 1 {
		t.Errorf("stream calls = %d, want 1 (no phase 2 for plain answers)", streamer.calls)
	}
	if len(exec.calls) != 0 {
		t.Errorf("tool dispatches = %d, want 0", len(exec.calls))
	}
	if got := c.tokenText(); got != "All good." {
		t.Errorf("token text = %q", got)
	}
	c.checkTerminal(t, EventDone)
	if done := c.ofType(EventDone)[0]; done.TotalTokens != 42 {
		t.Errorf("totalTokens = %d, want 42", done.TotalTokens)
	}
}

// Scenario: phase 1 finishes with tool_calls and one complete fragment. One
// assistant + one tool message are appended, exactly one status event is
// emitted, then phase 2 streams the final answer.
func TestRun_ToolCallFlow(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{toolCallBody, phase2Body}}
	exec := &fakeExecutor{
		text: "Research results for \"adhd sleep\" (2 found): ...",
		records: []research.Record{
			{Title: "Sleep study", URL: "https://example.org/1"},
			{Title: "Melatonin trial"},
		},
	}
	o := newTestOrchestrator(t, streamer, exec)
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "what does research say about adhd and sleep"}, c.emit)

	if state != StateDone {
		t.Fatalf("state = %v, want StateDone", state)
	}
	if streamer.calls != 2 {
		t.Fatalf("stream calls = %d, want 2", streamer.calls)
	}

	// Tool dispatched with the reconstructed arguments.
	if len(exec.calls) != 1 {
		t.Fatalf("tool dispatches = %d, want 1", len(exec.calls))
	}
	if exec.calls[0].name != "search_adhd_research" {
		t.Errorf("tool name = %q", exec.calls[0].name)
	}
	if exec.calls[0].args != `{"query":"adhd sleep","top_k":5}` {
		t.Errorf("tool args = %q", exec.calls[0].args)
	}

	// Exactly one status event, after tool execution.
	statuses := c.ofType(EventStatus)
	if len(statuses) != 1 {
		t.Fatalf("status events = %d, want 1", len(statuses))
	}

	// Sources surfaced to the caller.
	sources := c.ofType(EventSources)
	if len(sources) != 1 || len(sources[0].Sources) != 2 {
		t.Fatalf("sources events = %+v", sources)
	}
	if sources[0].Sources[0].Title != "Sleep study" {
		t.Errorf("source title = %q", sources[0].Sources[0].Title)
	}

	// Phase 2 request carries the assistant + tool messages and no tools.
	req2 := streamer.reqs[1]
	if len(req2.Tools) != 0 {
		t.Error("phase 2 must not advertise tools")
	}
	var sawAssistant, sawTool bool
	for _, msg := range req2.Messages {
		switch msg.Role {
		case upstream.RoleAssistant:
			if len(msg.ToolCalls) == 1 && msg.ToolCalls[0].ID == "call_1" {
				sawAssistant = true
			}
		case upstream.RoleTool:
			if msg.ToolCallID == "call_1" && msg.Content == exec.text {
				sawTool = true
			}
		}
	}
	if !sawAssistant || !sawTool {
		t.Errorf("phase 2 messages missing assistant/tool entries: %+v", req2.Messages)
	}

	// Phase 1 advertised the tool.
	if len(streamer.reqs[0].Tools) != 1 {
		t.Errorf("phase 1 tools = %d, want 1", len(streamer.reqs[0].Tools))
	}

	// Both phases' tokens reached the caller in order.
	want := "Let me check the research.Based on the research, try a wind-down routine."
	if got := c.tokenText(); got != want {
		t.Errorf("token text = %q, want %q", got, want)
	}

	c.checkTerminal(t, EventDone)
}

// A tool failure is captured as text, never raised: phase 2 still runs with
// the error string as the tool's content.
func TestRun_ToolFailureStillReachesPhase2(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{toolCallBody, phase2Body}}
	exec := &fakeExecutor{text: "Error: the search query was empty."}
	o := newTestOrchestrator(t, streamer, exec)
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "look this up for me please"}, c.emit)

	if state != StateDone {
		t.Fatalf("state = %v, want StateDone", state)
	}
	if streamer.calls != 2 {
		t.Fatalf("stream calls = %d, want 2", streamer.calls)
	}
	if len(c.ofType(EventSources)) != 0 {
		t.Error("no sources event expected on tool failure")
	}

	var toolMsg string
	for _, msg := range streamer.reqs[1].Messages {
		if msg.Role == upstream.RoleTool {
			toolMsg = msg.Content
		}
	}
	if !strings.Contains(toolMsg, "Error:") {
		t.Errorf("tool message = %q, want captured error text", toolMsg)
	}
	c.checkTerminal(t, EventDone)
}

func TestRun_Phase1OpenFailure(t *testing.T) {
	streamer := &scriptedStreamer{errs: []error{upstream.ErrStatus}}
	o := newTestOrchestrator(t, streamer, &fakeExecutor{})
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "anything substantive"}, c.emit)

	if state != StateErrored {
		t.Errorf("state = %v, want StateErrored", state)
	}
	c.checkTerminal(t, EventError)
}

// Phase-2 failure closes the run with an error, but phase-1 tokens already
// delivered are not retracted.
func TestRun_Phase2OpenFailure(t *testing.T) {
	streamer := &scriptedStreamer{
		bodies: []string{toolCallBody},
		errs:   []error{nil, errors.New("connect refused")},
	}
	exec := &fakeExecutor{text: "results"}
	o := newTestOrchestrator(t, streamer, exec)
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "what does the evidence say"}, c.emit)

	if state != StateErrored {
		t.Errorf("state = %v, want StateErrored", state)
	}
	if got := c.tokenText(); got != "Let me check the research." {
		t.Errorf("phase-1 tokens = %q, should remain delivered", got)
	}
	c.checkTerminal(t, EventError)
	errEv := c.ofType(EventError)[0]
	if !strings.Contains(errEv.Message, "retrieved research") {
		t.Errorf("error message = %q", errEv.Message)
	}
}

// A connection dropped before any terminal signal is a done with partial
// text, not an error: partial answers are still useful.
func TestRun_StreamTerminatedEarly(t *testing.T) {
	truncated := `data: {"choices":[{"delta":{"content":"partial answ"}}]}
`
	streamer := &scriptedStreamer{bodies: []string{truncated}}
	o := newTestOrchestrator(t, streamer, &fakeExecutor{})
	c := &collector{}

	state := o.Run(context.Background(), &chat.Turn{Content: "tell me about meds"}, c.emit)

	if state != StateDone {
		t.Errorf("state = %v, want StateDone", state)
	}
	if got := c.tokenText(); got != "partial answ" {
		t.Errorf("token text = %q", got)
	}
	c.checkTerminal(t, EventDone)
}

// Scenario: caller aborts mid phase-1 stream. No events after the abort and
// no terminal event at all.
func TestRun_AbortMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamer := &scriptedStreamer{bodies: []string{plainStopBody}}
	o := newTestOrchestrator(t, streamer, &fakeExecutor{})

	c := &collector{}
	c.fail = func(ev Event) bool {
		// Simulate the caller tearing down after the first token.
		if len(c.events) >= 1 {
			cancel()
			return true
		}
		return false
	}

	state := o.Run(ctx, &chat.Turn{Content: "a long question about school"}, c.emit)

	if state != StateAborted {
		t.Errorf("state = %v, want StateAborted", state)
	}
	for _, ev := range c.events {
		if ev.Type == EventDone || ev.Type == EventError {
			t.Errorf("terminal event emitted after abort: %+v", ev)
		}
	}
	if len(c.events) != 1 {
		t.Errorf("events after abort = %d, want 1 (the pre-abort token)", len(c.events))
	}
}

// History beyond the configured window is truncated, oldest first.
func TestRun_HistoryWindow(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{plainStopBody}}
	o := newTestOrchestrator(t, streamer, &fakeExecutor{})
	c := &collector{}

	var history []chat.HistoryEntry
	for i := 0; i < 15; i++ {
		history = append(history, chat.HistoryEntry{Role: chat.RoleUser, Content: fmt.Sprintf("old-%d", i)})
	}

	o.Run(context.Background(), &chat.Turn{Content: "current question here", History: history}, c.emit)

	msgs := streamer.reqs[0].Messages
	// system + 10 history + 1 user turn
	if len(msgs) != 12 {
		t.Fatalf("messages = %d, want 12", len(msgs))
	}
	if msgs[0].Role != upstream.RoleSystem {
		t.Errorf("first message role = %q", msgs[0].Role)
	}
	if msgs[1].Content != "old-5" {
		t.Errorf("oldest forwarded history = %q, want old-5", msgs[1].Content)
	}
	if msgs[len(msgs)-1].Content != "current question here" {
		t.Errorf("last message = %q", msgs[len(msgs)-1].Content)
	}
}

// With tool use disabled no tool signature is advertised, so the flow can
// never enter the tool branch.
func TestRun_ToolUseDisabled(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{plainStopBody}}
	o, err := New(Config{
		Client:    streamer,
		Router:    &fakeRouter{},
		Assembler: prompt.New(),
		Adapter:   &fakeExecutor{},
		Logger:    log.NewNop(),
		Model:     "test-model",
		ToolUse:   false,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c := &collector{}
	o.Run(context.Background(), &chat.Turn{Content: "whatever question"}, c.emit)

	if len(streamer.reqs[0].Tools) != 0 {
		t.Errorf("tools advertised with tool use disabled: %+v", streamer.reqs[0].Tools)
	}
}

func TestRun_AttachmentsListedInUserMessage(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{plainStopBody}}
	o := newTestOrchestrator(t, streamer, &fakeExecutor{})
	c := &collector{}

	turn := &chat.Turn{
		Content:     "see the attached report",
		Attachments: []chat.Attachment{{Name: "iep-draft.pdf"}, {Name: "notes.txt"}},
	}
	o.Run(context.Background(), turn, c.emit)

	last := streamer.reqs[0].Messages[len(streamer.reqs[0].Messages)-1]
	if !strings.Contains(last.Content, "[Attached: iep-draft.pdf, notes.txt]") {
		t.Errorf("user message = %q", last.Content)
	}
}
