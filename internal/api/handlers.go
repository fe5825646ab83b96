// Package api wires the REST endpoints: health, chat, conversation export,
// TaskMaster and composting.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"backend-roomreq/internal/compost"
	"backend-roomreq/internal/models"
	"backend-roomreq/internal/openrouter"
	"backend-roomreq/internal/storage"
	"backend-roomreq/internal/taskmaster"
)

// Broadcaster publishes an event to every realtime client in a session.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(sessionID, event string, content any)
}

type Deps struct {
	Gateway       *openrouter.Client
	Conversations storage.ConversationStore
	Compost       *compost.Service
	Tasks         *taskmaster.Store
	Hub           Broadcaster
	Chat          http.Handler // websocket endpoint
	UploadDir     string
	Log           *zap.SugaredLogger
}

// NewRouter builds the ServeMux with every route mounted.
func NewRouter(deps Deps) *http.ServeMux {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler(deps))
	mux.HandleFunc("GET /api/v1/test", testHandler(deps))
	mux.HandleFunc("POST /api/v1/chat/message", chatMessageHandler(deps))
	mux.HandleFunc("GET /api/v1/conversations/{sessionId}/export", exportConversationHandler(deps))

	registerTaskRoutes(mux, deps)
	registerCompostRoutes(mux, deps)

	if deps.Chat != nil {
		mux.Handle("GET /ws", deps.Chat)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusNotFound, "Not Found", "Route "+r.URL.Path+" not found")
	})

	return mux
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sendJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "Room of Requirements Backend",
			"version":   "1.0.0",
			"features": map[string]string{
				"webSocket":  "enabled",
				"openRouter": "connected",
				"ai":         deps.Gateway.ModelFor(models.UseCaseGeneral).Name,
			},
		})
	}
}

func testHandler(Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sendJSON(w, http.StatusOK, map[string]any{
			"message":   "Room of Requirements API is working!",
			"timestamp": time.Now().Format(time.RFC3339),
			"ai":        "connected",
		})
	}
}

type chatMessageRequest struct {
	Message string         `json:"message"`
	Stage   models.Stage   `json:"stage"`
	UseCase models.UseCase `json:"useCase"`
}

// chatMessageHandler is the non-streaming REST variant of the chat flow.
func chatMessageHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
			return
		}
		if req.Message == "" {
			sendError(w, http.StatusBadRequest, "Message is required", "")
			return
		}
		if req.Stage == "" {
			req.Stage = models.StageConcept
		}
		if req.UseCase == "" {
			req.UseCase = models.UseCaseGeneral
		}

		messages := openrouter.FormatConversation(req.Message, openrouter.SystemPrompt(req.Stage))
		resp, err := deps.Gateway.SendMessage(r.Context(), messages, req.UseCase)
		if err != nil {
			deps.Log.Errorw("chat API error", "error", err)
			sendError(w, http.StatusInternalServerError, "Failed to process chat message", err.Error())
			return
		}

		sendJSON(w, http.StatusOK, map[string]any{
			"message":   resp.Content(),
			"usage":     resp.Usage,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func exportConversationHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := deps.Conversations.Get(r.PathValue("sessionId"))
		if !ok {
			sendError(w, http.StatusNotFound, "Conversation not found", "")
			return
		}
		sendJSON(w, http.StatusOK, sess)
	}
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out; nothing left to do but note it.
		zap.S().Errorw("error encoding response", "error", err)
	}
}

func sendError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]any{"error": message}
	if details != "" {
		body["details"] = details
	}
	sendJSON(w, status, body)
}
