// Package httpapi exposes the query engine and the indexing service over
// HTTP. Routes live under /api; indexing progress is additionally pushed
// over websockets at /ws.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the service's HTTP routing table around h
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Chat routes. The query route carries no timeout middleware:
		// generation latency is bounded by the provider, not by us.
		r.Post("/chat/query", h.Query)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/chat/history", h.History)
			r.Delete("/chat/history", h.DeleteHistory)
			r.Get("/chat/context", h.Context)
			r.Post("/chat/session/clear", h.ClearSession)
			r.Get("/chat/sessions", h.ListSessions)
			r.Get("/chat/session/{sessionID}", h.GetSession)
			r.Get("/chat/session/{sessionID}/conversations", h.ListConversations)
			r.Get("/chat/conversation/{conversationID}", h.GetConversation)

			// Index routes
			r.Post("/index/start", h.StartIndexing)
			r.Get("/index/status/{taskID}", h.IndexStatus)
			r.Get("/index/stats", h.IndexStats)
			r.Delete("/index/current", h.ClearIndex)
		})
	})

	// Websocket progress push
	r.Get("/ws", h.ServeWS)
	r.Get("/ws/{taskID}", h.ServeWS)

	return r
}
