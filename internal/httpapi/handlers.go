package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repoqa/repoqa/internal/index"
	"github.com/repoqa/repoqa/internal/query"
	"github.com/repoqa/repoqa/pkg/types"
)

// Handler carries the collaborators behind the HTTP surface
type Handler struct {
	engine  *query.Engine
	indexer *index.Service
	hub     *Hub
	started time.Time
}

// NewHandler wires the HTTP surface. hub may be nil when websocket pushes
// are not needed (tests).
func NewHandler(engine *query.Engine, indexer *index.Service, hub *Hub) *Handler {
	return &Handler{
		engine:  engine,
		indexer: indexer,
		hub:     hub,
		started: time.Now(),
	}
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError emits the service's JSON error shape
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Query answers one question. Empty queries are 400, an empty index is 503,
// and generator failures are 502; everything else the engine recovers from
// internally.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.engine.Query(r.Context(), req)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotIndexed):
		writeError(w, http.StatusServiceUnavailable,
			"No repository has been indexed yet. Index a repository before querying.")
	case errors.Is(err, types.ErrGenerationFailed):
		log.Printf("generation failed: %v", err)
		writeError(w, http.StatusBadGateway, "Text generation failed")
	case err != nil:
		log.Printf("query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// History returns a conversation's messages, newest last
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, err := h.engine.Registry().Conversation(conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	info := conv.Info()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"messages":        conv.History(limit),
		"total_messages":  info.MessageCount,
		"created_at":      info.CreatedAt,
	})
}

// DeleteHistory removes one conversation, or every conversation in every
// session when no conversation_id is given.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	registry := h.engine.Registry()

	if conversationID == "" {
		cleared := registry.RemoveAllConversations()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":               "All conversations cleared",
			"conversations_cleared": cleared,
		})
		return
	}

	if err := registry.RemoveConversation(conversationID); err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":               "Conversation cleared",
		"conversations_cleared": 1,
	})
}

// Context summarizes a conversation's running state
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, err := h.engine.Registry().Conversation(conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv.ContextSummary())
}

// clearSessionRequest is the body of POST /api/chat/session/clear
type clearSessionRequest struct {
	SessionID string `json:"session_id"`
	ClearAll  bool   `json:"clear_all"`
}

// ClearSession removes one session's conversations, or with clear_all every
// session in the registry.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	var req clearSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" && !req.ClearAll {
		writeError(w, http.StatusBadRequest, "session_id is required unless clear_all is set")
		return
	}

	result := h.engine.Registry().Clear(req.SessionID, req.ClearAll)
	writeJSON(w, http.StatusOK, result)
}

// ListSessions lists every live session
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.engine.Registry().ListSessions(),
	})
}

// GetSession summarizes one session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.Registry().SessionInfo(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ListConversations lists one session's conversations in creation order
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conversations, err := h.engine.Registry().ListConversations(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sessionID,
		"conversations": conversations,
	})
}

// GetConversation summarizes one conversation
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.Registry().ConversationInfo(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// StartIndexing launches a background indexing task
func (h *Handler) StartIndexing(w http.ResponseWriter, r *http.Request) {
	var req index.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	taskID, err := h.indexer.StartIndexing(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": taskID,
		"status":  index.TaskPending,
		"message": "Indexing started",
	})
}

// IndexStatus reports one indexing task's progress
func (h *Handler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.indexer.Status(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// IndexStats reports the current index state
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.indexer.Stats(r.Context())
	if err != nil {
		log.Printf("failed to read index stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read index stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ClearIndex drops the current index and the response cache with it
func (h *Handler) ClearIndex(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.indexer.Clear(r.Context())
	if err != nil {
		log.Printf("failed to clear index: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear index")
		return
	}
	writeJSON(w, http.StatusOK, cleared)
}

// Health reports liveness plus a few cheap operational gauges
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	indexed := false
	if stats, err := h.indexer.Stats(r.Context()); err == nil {
		indexed = stats.IsIndexed
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"indexed":        indexed,
		"model":          h.engine.Model(),
		"cache_entries":  h.engine.CacheSize(),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// ServeWS upgrades the connection and registers it with the progress hub
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusNotImplemented, "Progress push not enabled")
		return
	}
	h.hub.Serve(w, r, chi.URLParam(r, "taskID"))
}
