package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/boardservice"
	"github.com/starford/raido/internal/collab"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// hub and ws, if non-nil, serve the per-board SSE, collaborator and
// WebSocket endpoints inside the auth group; events, if non-nil, serves
// the catalog feed at /events.
func NewRouter(svc *boardservice.Service, authEnabled bool, token string, hub *collab.Hub, ws *collab.WSHandler, events http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Boards CRUD.
	r.Get("/boards", h.ListBoards)
	r.Post("/boards", h.CreateBoard)
	r.Get("/boards/{id}", h.GetBoard)
	r.Put("/boards/{id}", h.UpdateBoard)
	r.Delete("/boards/{id}", h.DeleteBoard)
	r.Post("/boards/{id}/rename", h.RenameBoard)
	r.Post("/boards/{id}/diagrams", h.AppendDiagram)

	// Search.
	r.Get("/search", h.Search)

	// Diagram tooling.
	r.Post("/diagrams/validate", h.ValidateDiagram)
	r.Post("/diagrams/parse", h.ParseDiagram)
	r.Post("/diagrams/render", h.RenderDiagram)
	r.Post("/diagrams/generate", h.GenerateDiagram)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// Board catalog feed.
	if events != nil {
		r.Handle("/events", events)
	}

	// Live collaboration.
	if hub != nil {
		c := &CollabHandler{hub: hub, ws: ws}
		r.Get("/boards/{id}/events", c.Events)
		r.Get("/boards/{id}/collaborators", c.Collaborators)
		if ws != nil {
			r.Get("/boards/{id}/ws", c.Socket)
		}
	}

	return r
}
