// Package chat defines the types describing one inbound chat turn.
//
// A Turn is immutable input to one orchestration run; nothing in the core
// mutates it, and nothing survives the run. Persisting the resulting
// assistant message is the caller's concern.
package chat

import "github.com/asterhq/aster/internal/prompt"

// Roles in conversation history, as supplied by the caller.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one prior message in the conversation, oldest first.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment references caller-supplied, already-uploaded material. The core
// forwards attachment names as plain-text context; it never fetches content.
type Attachment struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// Turn is one caller-submitted message plus the context the orchestrator
// needs to answer it.
type Turn struct {
	Content     string          `json:"content"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	History     []HistoryEntry  `json:"conversationHistory,omitempty"`
	Profile     *prompt.Profile `json:"userProfile,omitempty"`
}

// RecentHistory returns the last n history entries (chronological order
// preserved). Older history is truncated, not summarized.
func (t *Turn) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || len(t.History) == 0 {
		return nil
	}
	if len(t.History) <= n {
		return t.History
	}
	return t.History[len(t.History)-n:]
}
