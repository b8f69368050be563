package orchestrator

// EventType tags one caller-facing event.
type EventType string

// Event types. Exactly one EventDone or EventError terminates a run; no event
// follows it.
const (
	EventToken   EventType = "token"
	EventStatus  EventType = "status"
	EventSources EventType = "sources"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Source is one research result surfaced to the caller alongside the answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Event is the orchestrator's output contract. Fields other than Type are
// populated according to the event type.
type Event struct {
	Type        EventType `json:"type"`
	Token       string    `json:"token,omitempty"`
	Status      string    `json:"status,omitempty"`
	Sources     []Source  `json:"sources,omitempty"`
	TotalTokens int       `json:"totalTokens,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// EmitFunc delivers one event to the caller, in order. Returning an error
// aborts the run: no further events are delivered, including a terminal one.
type EmitFunc func(Event) error
