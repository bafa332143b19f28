// Package server exposes the turn flow over a websocket chat endpoint.
// It is the reference caller of the orchestration layer: admission,
// context assembly, prompt construction, completion streaming, and reply
// commit all happen per inbound frame.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/adorahq/companion-go-sdk/companions"
	"github.com/adorahq/companion-go-sdk/completion"
	"github.com/adorahq/companion-go-sdk/core"
	"github.com/adorahq/companion-go-sdk/memory"
	"github.com/adorahq/companion-go-sdk/prompt"
)

// TurnRequest is one inbound chat frame.
type TurnRequest struct {
	CompanionID string `json:"companion_id"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
}

// TurnResponse is one outbound frame. Type is "chunk" while the
// completion streams, "done" with the full reply when the turn finishes,
// or "error" with a code from the outcome taxonomy.
type TurnResponse struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error codes surfaced to clients.
const (
	CodeThrottled = "throttled"
	CodeNotFound  = "not_found"
	CodeInternal  = "internal"
)

// Config configures the chat handler.
type Config struct {
	// ModelName tags the conversation namespace (default: "default").
	ModelName string

	// CheckOrigin overrides the websocket origin check. Optional.
	CheckOrigin func(r *http.Request) bool
}

// ChatHandler runs chat sessions over websockets.
type ChatHandler struct {
	orchestrator *memory.Orchestrator
	profiles     companions.Provider
	completer    completion.Completer
	modelName    string
	upgrader     websocket.Upgrader
}

// NewChatHandler wires the handler.
func NewChatHandler(
	orchestrator *memory.Orchestrator,
	profiles companions.Provider,
	completer completion.Completer,
	cfg Config,
) *ChatHandler {
	if cfg.ModelName == "" {
		cfg.ModelName = "default"
	}
	return &ChatHandler{
		orchestrator: orchestrator,
		profiles:     profiles,
		completer:    completer,
		modelName:    cfg.ModelName,
		upgrader:     websocket.Upgrader{CheckOrigin: cfg.CheckOrigin},
	}
}

// ServeHTTP upgrades the connection and serves turns until the client
// disconnects.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req TurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[SERVER] read frame: %v", err)
			}
			return
		}
		h.serveTurn(r.Context(), conn, req)
	}
}

// serveTurn runs one full turn and writes the response frames.
func (h *ChatHandler) serveTurn(ctx context.Context, conn *websocket.Conn, req TurnRequest) {
	key := core.IdentityKey{
		CompanionID: req.CompanionID,
		ModelName:   h.modelName,
		UserID:      req.UserID,
	}

	convCtx, err := h.orchestrator.PrepareTurn(ctx, key, req.Message)
	if err != nil {
		h.writeError(conn, err)
		return
	}

	profile, err := h.profiles.Get(ctx, req.CompanionID)
	if err != nil {
		h.writeError(conn, err)
		return
	}

	reply, err := h.completer.Stream(ctx, prompt.Build(profile, convCtx), func(chunk string) {
		_ = conn.WriteJSON(TurnResponse{Type: "chunk", Text: chunk})
	})
	if err != nil {
		log.Printf("[SERVER] completion failed for %s: %v", key.Namespace(), err)
		h.writeError(conn, err)
		return
	}

	// The utterance is already committed; a failed reply commit leaves a
	// recoverable partial turn, so the client still gets the reply.
	if err := h.orchestrator.CommitReply(ctx, key, reply); err != nil {
		log.Printf("[SERVER] commit reply failed for %s: %v", key.Namespace(), err)
	}

	_ = conn.WriteJSON(TurnResponse{Type: "done", Text: reply})
}

// writeError maps an outcome to a typed error frame.
func (h *ChatHandler) writeError(conn *websocket.Conn, err error) {
	resp := TurnResponse{Type: "error", Code: CodeInternal, Message: "internal error"}
	switch {
	case errors.Is(err, core.ErrThrottled):
		resp.Code = CodeThrottled
		resp.Message = "rate limit exceeded, retry shortly"
	case errors.Is(err, core.ErrCompanionNotFound):
		resp.Code = CodeNotFound
		resp.Message = "companion unavailable"
	default:
		log.Printf("[SERVER] turn failed: %v", err)
	}
	_ = conn.WriteJSON(resp)
}
