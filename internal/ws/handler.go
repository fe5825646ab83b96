package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"backend-roomreq/internal/chat"
	"backend-roomreq/internal/models"
	"backend-roomreq/internal/openrouter"
	"backend-roomreq/internal/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware.
	},
}

// inboundEvent is the wire frame for every client->server event.
type inboundEvent struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

type sendMessagePayload struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	Stage     models.Stage   `json:"stage,omitempty"`
	UseCase   models.UseCase `json:"useCase,omitempty"`
}

type changeStagePayload struct {
	SessionID string       `json:"sessionId"`
	Stage     models.Stage `json:"stage"`
}

type typingPayload struct {
	SessionID string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type Handler struct {
	hub           *Hub
	conversations storage.ConversationStore
	relay         *chat.Relay
	log           *zap.SugaredLogger
}

func NewHandler(hub *Hub, conversations storage.ConversationStore, relay *chat.Relay, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{hub: hub, conversations: conversations, relay: relay, log: log}
}

// ServeHTTP upgrades the request and runs the event loop until the client
// disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("error upgrading to WebSocket", "error", err)
		return
	}
	conn := NewConn(sock)
	defer func() {
		h.hub.Leave(conn)
		sock.Close()
	}()

	h.log.Infow("client connected", "remote", sock.RemoteAddr().String())

	for {
		var ev inboundEvent
		if err := sock.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Warnw("WebSocket error", "error", err)
			}
			return
		}

		switch ev.Type {
		case "join-conversation":
			h.handleJoin(conn, ev.Content)
		case "send-message":
			h.handleSendMessage(r.Context(), conn, ev.Content)
		case "change-stage":
			h.handleChangeStage(conn, ev.Content)
		case "typing":
			h.handleTyping(conn, ev.Content)
		default:
			sendError(conn, "Unknown event type: "+ev.Type, "")
		}
	}
}

func (h *Handler) handleJoin(conn *Conn, raw json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		sendError(conn, "Invalid join-conversation payload", "")
		return
	}

	sess, _ := h.conversations.GetOrCreate(p.SessionID)
	h.hub.Join(p.SessionID, conn)

	// A brand-new session answers with the empty list, a reused one with
	// the exact prior messages.
	_ = conn.Send("conversation-history", sess.Messages)
	h.log.Infow("client joined conversation", "sessionId", p.SessionID, "messages", len(sess.Messages))
}

func (h *Handler) handleSendMessage(ctx context.Context, conn *Conn, raw json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		sendError(conn, "Invalid send-message payload", "")
		return
	}

	sess, ok := h.conversations.Get(p.SessionID)
	if !ok {
		sendError(conn, "Session not found", "")
		return
	}

	if p.Stage != "" && models.ValidStage(p.Stage) {
		sess.Stage = p.Stage
	}
	useCase := p.UseCase
	if useCase == "" {
		useCase = models.UseCaseGeneral
	}

	userMessage := models.ChatMessage{
		ID:        newMessageID(),
		Role:      "user",
		Content:   p.Message,
		Timestamp: time.Now(),
		UseCase:   useCase,
	}
	sess.Messages = append(sess.Messages, userMessage)
	h.conversations.Update(sess)

	h.hub.Broadcast(p.SessionID, "message", userMessage)
	h.hub.Broadcast(p.SessionID, "ai-typing", true)

	systemPrompt := openrouter.SystemPrompt(sess.Stage)
	messages := make([]openrouter.Message, 0, len(sess.Messages)+1)
	messages = append(messages, openrouter.Message{Role: "system", Content: systemPrompt})
	for _, m := range sess.Messages {
		messages = append(messages, openrouter.Message{Role: m.Role, Content: m.Content})
	}

	assistantMessage := models.ChatMessage{
		ID:        newMessageID(),
		Role:      "assistant",
		Timestamp: time.Now(),
		Model:     h.relay.ModelName(useCase),
		UseCase:   useCase,
		Streaming: true,
	}

	startEmitted := false
	onStart := func() {
		h.hub.Broadcast(p.SessionID, "ai-typing", false)
		h.hub.Broadcast(p.SessionID, "message-start", assistantMessage)
		startEmitted = true
	}
	onChunk := func(content string) {
		h.hub.Broadcast(p.SessionID, "message-chunk", map[string]string{
			"id":      assistantMessage.ID,
			"content": content,
		})
	}

	content, err := h.relay.Complete(ctx, messages, useCase, onStart, onChunk)
	if err != nil {
		h.log.Errorw("error processing AI response", "sessionId", p.SessionID, "error", err)
		h.hub.Broadcast(p.SessionID, "ai-typing", false)
		h.hub.Broadcast(p.SessionID, "error", errorPayload{Message: "Failed to get AI response", Error: err.Error()})
		return
	}

	assistantMessage.Content = content
	assistantMessage.Streaming = false
	if !startEmitted {
		h.hub.Broadcast(p.SessionID, "ai-typing", false)
		h.hub.Broadcast(p.SessionID, "message-start", assistantMessage)
	}

	sess.Messages = append(sess.Messages, assistantMessage)
	h.conversations.Update(sess)
	h.hub.Broadcast(p.SessionID, "message-complete", assistantMessage)

	h.checkStageTransition(sess)
}

// checkStageTransition re-runs the signal detectors over the updated
// transcript and publishes whatever fired.
func (h *Handler) checkStageTransition(sess *models.ConversationSession) {
	switch chat.Detect(sess) {
	case chat.SignalRoomEntry:
		h.hub.Broadcast(sess.ID, "auto-enter-room", map[string]any{
			"message":             "Automatically entering the Room to create your PRD...",
			"conversationHistory": sess.Messages,
		})
		h.log.Infow("session automatically entering the room", "sessionId", sess.ID, "messages", len(sess.Messages))

	case chat.SignalMarketplace:
		// Intent only; the stored stage stays untouched.
		h.hub.Broadcast(sess.ID, "navigate-to-marketplace", map[string]any{
			"message": "Component inquiry detected",
		})
		h.log.Infow("marketplace intent detected", "sessionId", sess.ID)

	case chat.SignalConceptUnderstood:
		sess.ConceptUnderstood = true
		sess.Stage = chat.Next(sess.Stage, chat.SignalConceptUnderstood)
		h.conversations.Update(sess)
		h.hub.Broadcast(sess.ID, "stage-changed", map[string]any{
			"stage":   sess.Stage,
			"message": "Moving to detailed description phase",
		})
		h.log.Infow("session transitioned to description stage", "sessionId", sess.ID)
	}
}

func (h *Handler) handleChangeStage(conn *Conn, raw json.RawMessage) {
	var p changeStagePayload
	if err := json.Unmarshal(raw, &p); err != nil || !models.ValidStage(p.Stage) {
		sendError(conn, "Invalid change-stage payload", "")
		return
	}

	sess, ok := h.conversations.Get(p.SessionID)
	if !ok {
		sendError(conn, "Session not found", "")
		return
	}
	sess.Stage = p.Stage
	h.conversations.Update(sess)
	h.hub.Broadcast(p.SessionID, "stage-changed", map[string]any{"stage": p.Stage})
}

func (h *Handler) handleTyping(conn *Conn, raw json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	h.hub.BroadcastExcept(p.SessionID, conn, "user-typing", map[string]any{
		"isTyping": p.IsTyping,
	})
}

func sendError(conn *Conn, message, detail string) {
	_ = conn.Send("error", errorPayload{Message: message, Error: detail})
}

func newMessageID() string {
	return "msg_" + ulid.Make().String()
}
