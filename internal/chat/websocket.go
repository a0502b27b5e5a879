package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/mindcarelabs/mindcare/internal/domain"
	"github.com/mindcarelabs/mindcare/internal/flow"
	"github.com/mindcarelabs/mindcare/internal/identity"
	"github.com/mindcarelabs/mindcare/internal/store"
)

const transcriptChannel = "chat_ws"

// WebSocketHandler handles WebSocket-based chat sessions.
type WebSocketHandler struct {
	machine       *flow.Machine
	repo          store.Repository
	mgr           *ConnManager
	transcript    Transcript
	limiter       *RateLimiter
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket chat handler.
func NewWebSocketHandler(machine *flow.Machine, repo store.Repository, mgr *ConnManager, transcript Transcript, limiter *RateLimiter, allowedOrigin string, isDev bool) *WebSocketHandler {
	if transcript == nil {
		transcript = NopTranscript{}
	}
	return &WebSocketHandler{
		machine:       machine,
		repo:          repo,
		mgr:           mgr,
		transcript:    transcript,
		limiter:       limiter,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsInbound is the message shape clients send. Kind mirrors flow event
// kinds, with "ping" handled at the transport level.
type wsInbound struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload,omitempty"`
}

// wsReply is the message shape sent back to clients.
type wsReply struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	Options []flow.Option `json:"options,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "identity required", http.StatusUnauthorized)
		return
	}
	slog.Info("Chat connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	connID := uuid.NewString()
	h.mgr.Register(userID, connID, ws)
	defer h.mgr.Unregister(userID, connID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Render the current conversational state on connect. For a new user
	// this is the welcome message; for a reconnect it re-prompts whatever
	// was pending.
	opening := h.machine.Handle(ctx, userID, flow.Event{Kind: flow.EventCommand, Payload: flow.CommandStart})
	if err := h.writeReply(ws, opening); err != nil {
		slog.Debug("Failed to send opening message", "error", err, "user_id", userID)
		return
	}
	h.logOutbound(userID, connID, opening.Text)

	h.readLoop(ctx, ws, userID, connID)
	slog.Info("Chat session ended", "user_id", userID, "conn_id", connID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID, connID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(message, &msg); err != nil {
			// Treat unparseable frames as free-form text.
			msg = wsInbound{Kind: string(flow.EventText), Payload: string(message)}
		}

		if msg.Kind == "ping" {
			if err := h.writeJSON(ws, wsReply{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
			continue
		}

		if !h.limiter.Allow(userID) {
			slog.Warn("Rate limit exceeded", "user_id", userID)
			if err := h.writeJSON(ws, wsReply{
				Type: "rate_limited",
				Text: "You're sending messages too quickly. Please wait a moment.",
			}); err != nil {
				slog.Debug("Failed to send rate limit notice", "error", err)
			}
			continue
		}

		ev := toFlowEvent(msg)
		h.transcript.Log(TranscriptEvent{
			UserID:     userID,
			ConnID:     connID,
			Channel:    transcriptChannel,
			Direction:  "inbound",
			EventType:  "chat_user_message",
			ContentRaw: ev.Payload,
		})

		act := h.machine.Handle(ctx, userID, ev)

		if err := h.writeReply(ws, act); err != nil {
			slog.Debug("Failed to send reply", "error", err, "user_id", userID)
			return
		}
		h.logOutbound(userID, connID, act.Text)
		h.recordTurnAsync(userID, ev.Payload, act.Text)

		if act.EndSession {
			_ = ws.Close(websocket.StatusNormalClosure, "session ended")
			return
		}
	}
}

// toFlowEvent maps a transport message to a flow event, defaulting unknown
// kinds to free-form text so the state machine decides what to do with them.
func toFlowEvent(msg wsInbound) flow.Event {
	switch flow.EventKind(msg.Kind) {
	case flow.EventCommand, flow.EventChoice, flow.EventText:
		return flow.Event{Kind: flow.EventKind(msg.Kind), Payload: msg.Payload}
	default:
		return flow.Event{Kind: flow.EventText, Payload: msg.Payload}
	}
}

// recordTurnAsync persists the conversation turn and refreshes last-seen
// without blocking the read loop. Both writes are best-effort.
func (h *WebSocketHandler) recordTurnAsync(userID, userMessage, botResponse string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		now := time.Now()
		if err := h.repo.RecordConversation(ctx, &domain.ConversationTurn{
			UserID:      userID,
			UserMessage: userMessage,
			BotResponse: botResponse,
			CreatedAt:   now,
		}); err != nil {
			slog.Warn("Failed to record conversation turn", "user_id", userID, "error", err)
		}
		if err := h.repo.UpdateLastSeen(ctx, userID, now); err != nil {
			slog.Warn("Failed to update last seen", "user_id", userID, "error", err)
		}
	}()
}

func (h *WebSocketHandler) logOutbound(userID, connID, text string) {
	h.transcript.Log(TranscriptEvent{
		UserID:     userID,
		ConnID:     connID,
		Channel:    transcriptChannel,
		Direction:  "outbound",
		EventType:  "chat_bot_reply",
		ContentRaw: text,
	})
}

func (h *WebSocketHandler) writeReply(ws *websocket.Conn, act flow.Action) error {
	return h.writeJSON(ws, wsReply{Type: "reply", Text: act.Text, Options: act.Options})
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
