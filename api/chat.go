package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/asterhq/aster/internal/chat"
	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/orchestrator"
)

// Runner executes one orchestration run, emitting events until a terminal
// event or an abort. Implemented by orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, turn *chat.Turn, emit orchestrator.EmitFunc) orchestrator.State
}

// ChatHandler handles the streaming chat endpoint and its stop counterpart.
//
// Endpoints:
//   - POST /api/chat/stream - one orchestration run as an SSE stream
//   - POST /api/chat/stop   - best-effort cancellation by conversation id
type ChatHandler struct {
	runner Runner
	stops  *cancelRegistry
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(runner Runner, logger log.Logger) *ChatHandler {
	return &ChatHandler{runner: runner, stops: newCancelRegistry(), logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.runner == nil {
		h.logger.Warn("chat handler has no runner, chat endpoints not registered")
		return
	}
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
	mux.HandleFunc("POST /api/chat/stop", h.handleStop)
}

// streamRequest is the inbound body for /api/chat/stream. The embedded Turn
// supplies content, attachments, conversationHistory, and userProfile.
type streamRequest struct {
	chat.Turn
	ConversationID string `json:"conversationId,omitempty"`
}

// stopRequest is the inbound body for /api/chat/stop.
type stopRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
}

// handleStream runs one chat turn and relays orchestrator events as SSE
// frames. Every frame is `data: <json>`; a literal `data: [DONE]` closes the
// stream after the terminal event. An aborted run ends the response without
// a terminal frame: the caller tore the connection down and is not reading.
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.terminate(w, flusher, orchestrator.Event{
			Type:    orchestrator.EventError,
			Message: "Invalid request body.",
		})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.terminate(w, flusher, orchestrator.Event{
			Type:    orchestrator.EventError,
			Message: "Message content is required.",
		})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	release := h.stops.register(conversationID, cancel)
	defer release()

	h.logger.Info("chat stream started", "conversationId", conversationID)

	emit := func(ev orchestrator.Event) error {
		if err := writeFrame(w, flusher, ev); err != nil {
			return fmt.Errorf("write event frame: %w", err)
		}
		return nil
	}

	state := h.runner.Run(ctx, &req.Turn, emit)
	if state != orchestrator.StateAborted {
		writeDone(w, flusher)
	}

	h.logger.Info("chat stream finished",
		"conversationId", conversationID,
		"state", state.String())
}

// handleStop cancels any in-flight runs for the given conversation. It
// always answers 200: cancellation is best-effort, and the authoritative
// abort is the caller closing its own stream.
func (h *ChatHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("stop request with unreadable body", "error", err)
	}

	stopped := 0
	if req.ConversationID != "" {
		stopped = h.stops.stop(req.ConversationID)
	}
	h.logger.Info("stop requested",
		"conversationId", req.ConversationID,
		"stopped", stopped)

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"stopped": stopped})
}

// terminate writes a single terminal error frame followed by the [DONE]
// sentinel, for requests rejected before a run starts.
func (h *ChatHandler) terminate(w http.ResponseWriter, flusher http.Flusher, ev orchestrator.Event) {
	if err := writeFrame(w, flusher, ev); err != nil {
		h.logger.Debug("client gone before terminal frame", "error", err)
		return
	}
	writeDone(w, flusher)
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, ev orchestrator.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeDone(w http.ResponseWriter, flusher http.Flusher) {
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
