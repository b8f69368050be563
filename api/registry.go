package api

import (
	"context"
	"sync"
)

// cancelRegistry maps a conversation id to the cancel functions of its
// in-flight runs so that /api/chat/stop can reach them. A conversation may
// briefly have more than one run (a client retrying while the previous
// request drains), so cancels are tracked per run, not per conversation.
type cancelRegistry struct {
	mu   sync.Mutex
	runs map[string]map[*runHandle]struct{}
}

type runHandle struct {
	cancel context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{runs: make(map[string]map[*runHandle]struct{})}
}

// register records a run's cancel under the conversation id. The returned
// release must be called when the run finishes.
func (r *cancelRegistry) register(conversationID string, cancel context.CancelFunc) (release func()) {
	h := &runHandle{cancel: cancel}

	r.mu.Lock()
	set, ok := r.runs[conversationID]
	if !ok {
		set = make(map[*runHandle]struct{})
		r.runs[conversationID] = set
	}
	set[h] = struct{}{}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.runs[conversationID]; ok {
			delete(set, h)
			if len(set) == 0 {
				delete(r.runs, conversationID)
			}
		}
	}
}

// stop cancels every in-flight run for the conversation and reports how many
// were signalled. Unknown ids are a no-op.
func (r *cancelRegistry) stop(conversationID string) int {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for h := range r.runs[conversationID] {
		cancels = append(cancels, h.cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}
