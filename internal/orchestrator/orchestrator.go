// Package orchestrator drives one chat turn through the two-phase exchange
// with the upstream completion service.
//
// Phase 1 streams the model's first response, forwarding content tokens to
// the caller as they arrive while reconstructing any tool-call fragments on
// the side. If the stream finishes with the tool-call reason, the accumulated
// calls are dispatched sequentially and a second stream, carrying the tool
// results with no tool signature advertised, produces the final answer.
//
// The orchestrator guarantees exactly one terminal event (done or error) per
// run, except when the caller aborts, in which case no further events are
// emitted at all.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/asterhq/aster/internal/chat"
	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/modules"
	"github.com/asterhq/aster/internal/prompt"
	"github.com/asterhq/aster/internal/research"
	"github.com/asterhq/aster/internal/upstream"
)

// tracerName identifies this package's spans.
const tracerName = "github.com/asterhq/aster/internal/orchestrator"

// Caller-facing terminal error messages.
const (
	msgUpstreamUnavailable = "The assistant is unavailable right now. Please try again."
	msgPhase2Failed        = "Could not generate a response from the retrieved research results. Please try again."
)

// Streamer opens streaming completion requests. Satisfied by
// *upstream.Client; tests substitute scripted streams.
type Streamer interface {
	Stream(ctx context.Context, req upstream.ChatRequest) (*upstream.Stream, error)
}

// Identifier selects knowledge modules for a turn. Satisfied by
// *router.Router.
type Identifier interface {
	Identify(ctx context.Context, message string, history []chat.HistoryEntry) []modules.ID
}

// Executor runs one tool call. Satisfied by *research.Adapter.
type Executor interface {
	Execute(ctx context.Context, name, argumentsText string) (string, []research.Record)
}

// Config contains all required parameters for the Orchestrator.
type Config struct {
	Client    Streamer
	Router    Identifier
	Assembler *prompt.Assembler
	Adapter   Executor
	Logger    log.Logger

	Model       string
	Temperature float32
	MaxTokens   int

	// HistoryTurns bounds the history window forwarded to the model.
	HistoryTurns int

	// ToolUse advertises the research tool on phase 1. When false the flow
	// can never enter the tool branch.
	ToolUse bool
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("orchestrator: client is required")
	}
	if cfg.Router == nil {
		return errors.New("orchestrator: router is required")
	}
	if cfg.Assembler == nil {
		return errors.New("orchestrator: assembler is required")
	}
	if cfg.Adapter == nil {
		return errors.New("orchestrator: adapter is required")
	}
	if cfg.Logger == nil {
		return errors.New("orchestrator: logger is required")
	}
	if cfg.Model == "" {
		return errors.New("orchestrator: model is required")
	}
	return nil
}

// Orchestrator runs chat turns. Stateless across runs; safe for concurrent
// use, one independent pipeline per call.
type Orchestrator struct {
	client    Streamer
	router    Identifier
	assembler *prompt.Assembler
	adapter   Executor
	logger    log.Logger
	tracer    trace.Tracer

	model        string
	temperature  float32
	maxTokens    int
	historyTurns int
	toolUse      bool

	toolDef upstream.Tool
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = 10
	}

	toolDef, err := research.Definition()
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		client:       cfg.Client,
		router:       cfg.Router,
		assembler:    cfg.Assembler,
		adapter:      cfg.Adapter,
		logger:       cfg.Logger,
		tracer:       otel.Tracer(tracerName),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		historyTurns: historyTurns,
		toolUse:      cfg.ToolUse,
		toolDef:      toolDef,
	}, nil
}

// Run executes one chat turn, delivering events to emit in order. It returns
// the terminal state reached (StateDone, StateErrored, or StateAborted).
func (o *Orchestrator) Run(ctx context.Context, turn *chat.Turn, emit EmitFunc) State {
	ctx, span := o.tracer.Start(ctx, "orchestrator.run")
	defer span.End()

	r := &run{ctx: ctx, emit: emit, logger: o.logger}

	// Module classification degrades to no injection on any failure.
	ids := o.router.Identify(ctx, turn.Content, turn.History)
	span.SetAttributes(attribute.Int("modules.count", len(ids)))

	system := o.assembler.Assemble(turn.Profile, ids)
	messages := o.buildMessages(system, turn)

	// Phase 1.
	req := upstream.ChatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	if o.toolUse {
		req.Tools = []upstream.Tool{o.toolDef}
	}

	r.state = StateAwaitPhase1
	stream, err := o.client.Stream(ctx, req)
	if err != nil {
		o.logger.Error("phase 1 request failed", "error", err)
		return r.fail(msgUpstreamUnavailable)
	}

	r.state = StateParsingPhase1
	acc := newAccumulator()
	res := r.consume(stream, acc)
	_ = stream.Close()
	if r.aborted() {
		return StateAborted
	}

	next := nextAfterPhase1(res.finishReason, acc.len())
	if next == StateDone {
		return r.done(res.totalTokens)
	}

	// Tool execution: sequential dispatch keeps upstream message ordering
	// deterministic and error attribution simple.
	r.state = StateExecutingTools
	ctx, toolSpan := o.tracer.Start(ctx, "orchestrator.tools")
	messages = append(messages, upstream.Message{
		Role:      upstream.RoleAssistant,
		Content:   res.text,
		ToolCalls: acc.toolCalls(),
	})

	frags := acc.fragments()
	for i, frag := range frags {
		resultText, records := o.adapter.Execute(ctx, frag.Name, frag.Arguments)
		messages = append(messages, upstream.Message{
			Role:       upstream.RoleTool,
			Content:    resultText,
			ToolCallID: frag.ID,
		})

		if len(records) > 0 {
			r.send(Event{Type: EventSources, Sources: toSources(records)})
		}
		r.send(Event{
			Type:   EventStatus,
			Status: fmt.Sprintf("Searched the research literature (%d of %d)", i+1, len(frags)),
		})
		if r.aborted() {
			toolSpan.End()
			return StateAborted
		}
	}
	toolSpan.End()

	// Phase 2: no tool signature, tool calls are not re-entrant.
	r.state = StateAwaitPhase2
	req2 := upstream.ChatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	stream2, err := o.client.Stream(ctx, req2)
	if err != nil {
		o.logger.Error("phase 2 request failed", "error", err)
		// Phase-1 text already delivered stays delivered; only the run's
		// outcome is an error.
		return r.fail(msgPhase2Failed)
	}

	r.state = StateParsingPhase2
	res2 := r.consume(stream2, nil)
	_ = stream2.Close()
	if r.aborted() {
		return StateAborted
	}

	return r.done(res2.totalTokens)
}

// buildMessages assembles the wire message list: system instructions, the
// bounded recent history, then the new user turn.
func (o *Orchestrator) buildMessages(system string, turn *chat.Turn) []upstream.Message {
	recent := turn.RecentHistory(o.historyTurns)

	messages := make([]upstream.Message, 0, len(recent)+2)
	messages = append(messages, upstream.Message{Role: upstream.RoleSystem, Content: system})

	for _, entry := range recent {
		role := upstream.RoleUser
		if entry.Role == chat.RoleAssistant {
			role = upstream.RoleAssistant
		}
		messages = append(messages, upstream.Message{Role: role, Content: entry.Content})
	}

	content := turn.Content
	if len(turn.Attachments) > 0 {
		names := make([]string, 0, len(turn.Attachments))
		for _, a := range turn.Attachments {
			names = append(names, a.Name)
		}
		content += "\n\n[Attached: " + strings.Join(names, ", ") + "]"
	}
	messages = append(messages, upstream.Message{Role: upstream.RoleUser, Content: content})

	return messages
}

func toSources(records []research.Record) []Source {
	out := make([]Source, 0, len(records))
	for _, rec := range records {
		out = append(out, Source{Title: rec.Title, URL: rec.URL})
	}
	return out
}

// run carries the per-call mutable state: the FSM position, the emit guard,
// and the terminal bookkeeping.
type run struct {
	ctx    context.Context
	emit   EmitFunc
	logger log.Logger

	state    State
	terminal bool
	broken   bool // caller abort or emit failure; no further events
}

// consumeResult summarizes one consumed stream.
type consumeResult struct {
	text         string
	finishReason string
	totalTokens  int
}

// consume reads one stream to its end, forwarding content deltas immediately
// as token events and feeding tool-call deltas to acc (when non-nil, i.e.
// phase 1). A dropped connection is not an error: the text delivered so far
// stands, and the missing finish reason keeps the tool branch closed.
func (r *run) consume(stream *upstream.Stream, acc *accumulator) consumeResult {
	var res consumeResult
	var buf strings.Builder

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if r.ctx.Err() != nil {
				r.broken = true
				return res
			}
			r.logger.Warn("stream terminated early, keeping partial text",
				"error", err, "state", r.state)
			break
		}

		if chunk.Usage != nil {
			res.totalTokens = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			buf.WriteString(choice.Delta.Content)
			// Token-by-token delivery is an observable contract; never
			// buffer content to the end.
			if !r.send(Event{Type: EventToken, Token: choice.Delta.Content}) {
				return res
			}
		}

		if acc != nil {
			for _, tc := range choice.Delta.ToolCalls {
				acc.add(tc)
			}
		}

		if choice.FinishReason != "" {
			res.finishReason = choice.FinishReason
		}
	}

	res.text = buf.String()
	return res
}

// send delivers one event unless the run is already terminal, aborted, or the
// caller's context is canceled. Reports whether delivery happened.
func (r *run) send(ev Event) bool {
	if r.terminal || r.broken {
		return false
	}
	if r.ctx.Err() != nil {
		r.broken = true
		return false
	}
	if err := r.emit(ev); err != nil {
		r.logger.Debug("caller stopped consuming events", "error", err)
		r.broken = true
		return false
	}
	return true
}

func (r *run) aborted() bool {
	return r.broken
}

// done emits the single terminal done event.
func (r *run) done(totalTokens int) State {
	if r.send(Event{Type: EventDone, TotalTokens: totalTokens}) {
		r.terminal = true
		r.state = StateDone
		return StateDone
	}
	r.state = StateAborted
	return StateAborted
}

// fail emits the single terminal error event.
func (r *run) fail(message string) State {
	if r.send(Event{Type: EventError, Message: message}) {
		r.terminal = true
		r.state = StateErrored
		return StateErrored
	}
	r.state = StateAborted
	return StateAborted
}
