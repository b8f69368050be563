// Package router classifies a chat turn into the knowledge modules worth
// injecting into the system prompt.
//
// Classification is an enhancement, never a hard dependency: every failure
// path (upstream error, timeout, unparseable output) degrades to the empty
// set with a logged reason, and the chat turn proceeds unenriched.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/asterhq/aster/internal/chat"
	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/modules"
	"github.com/asterhq/aster/internal/upstream"
)

// minSubstantiveLength is the cost/latency guard: messages at or below this
// length are greetings ("hi", "Hello") and skip the classification call
// entirely.
const minSubstantiveLength = 5

// historyLineLimit bounds each history line embedded in the classification
// prompt.
const historyLineLimit = 200

// arrayPattern locates the first array literal in the model's raw text
// response, tolerating surrounding prose.
var arrayPattern = regexp.MustCompile(`\[[^\[\]]*\]`)

// completer is the single upstream operation the router needs. Satisfied by
// *upstream.Client; tests substitute a canned implementation.
type completer interface {
	Complete(ctx context.Context, req upstream.ChatRequest) (string, error)
}

// Config contains required parameters for the Router.
type Config struct {
	Client       completer
	Logger       log.Logger
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	HistoryTurns int
}

// Router selects knowledge modules for a chat turn via one auxiliary
// completion call. Safe for concurrent use.
type Router struct {
	client       completer
	logger       log.Logger
	model        string
	maxTokens    int
	timeout      time.Duration
	historyTurns int
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Client == nil {
		return nil, errors.New("router: client is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("router: logger is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("router: model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 64
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = 5
	}

	return &Router{
		client:       cfg.Client,
		logger:       cfg.Logger,
		model:        cfg.Model,
		maxTokens:    maxTokens,
		timeout:      timeout,
		historyTurns: historyTurns,
	}, nil
}

// Identify returns the set of modules relevant to message, as a sorted slice.
// The result only ever contains identifiers from the closed vocabulary.
func (r *Router) Identify(ctx context.Context, message string, history []chat.HistoryEntry) []modules.ID {
	if len(strings.TrimSpace(message)) <= minSubstantiveLength {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := upstream.ChatRequest{
		Model: r.model,
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: classifierInstructions()},
			{Role: upstream.RoleUser, Content: r.classifierInput(message, history)},
		},
		Temperature: 0.0,
		MaxTokens:   r.maxTokens,
	}

	raw, err := r.client.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("module classification failed, continuing without modules", "error", err)
		return nil
	}

	ids := ParseIDs(raw, r.logger)
	if len(ids) > 0 {
		r.logger.Debug("modules identified", "modules", ids)
	}
	return ids
}

// classifierInstructions builds the fixed instruction block describing each
// module's trigger conditions.
func classifierInstructions() string {
	var b strings.Builder
	b.WriteString(`You classify one message from a parent of a child with ADHD into zero or
more knowledge modules. Respond with ONLY a JSON array of module names, e.g.
["sleep","school"] or []. No prose, no code fences.

Modules and when to select them:
`)
	for _, id := range modules.All() {
		trigger, _ := modules.Trigger(id)
		fmt.Fprintf(&b, "- %q: %s\n", id, trigger)
	}
	b.WriteString("\nSelect a module only when the message clearly touches its topic.")
	return b.String()
}

// classifierInput renders the bounded recent history plus the current
// message.
func (r *Router) classifierInput(message string, history []chat.HistoryEntry) string {
	var b strings.Builder

	recent := history
	if len(recent) > r.historyTurns {
		recent = recent[len(recent)-r.historyTurns:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, entry := range recent {
			line := entry.Content
			if len(line) > historyLineLimit {
				line = line[:historyLineLimit]
			}
			fmt.Fprintf(&b, "%s: %s\n", entry.Role, line)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current message: ")
	b.WriteString(message)
	return b.String()
}

// ParseIDs defensively extracts module identifiers from a raw model response.
// It strips code-fence wrapping, locates the first array literal, parses it,
// and filters to the closed vocabulary. Entries outside the vocabulary are
// logged and dropped. Any parse failure yields nil.
func ParseIDs(raw string, logger log.Logger) []modules.ID {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	// Strip markdown fences the model sometimes adds despite instructions.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	literal := arrayPattern.FindString(text)
	if literal == "" {
		logger.Warn("classifier response contained no array literal", "response", clamp(text, 120))
		return nil
	}

	var raws []string
	if err := json.Unmarshal([]byte(literal), &raws); err != nil {
		logger.Warn("classifier array failed to parse", "error", err, "literal", clamp(literal, 120))
		return nil
	}

	seen := make(map[modules.ID]bool, len(raws))
	var ids []modules.ID
	for _, candidate := range raws {
		id := modules.Normalize(candidate)
		if !modules.Valid(id) {
			logger.Warn("classifier returned unknown module, dropping", "module", candidate)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
