package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/boardservice"
	"github.com/starford/raido/internal/collab"
)

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service) *Handler {
	return &Handler{svc: svc}
}

func boardID(r *http.Request) string { return chi.URLParam(r, "id") }

func etag(checksum string) string { return `"` + checksum + `"` }

// ListBoards handles GET /api/boards.
//
//	@Summary		List boards with optional pagination
//	@Tags			boards
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	BoardListResponse
//	@Security		BearerAuth
//	@Router			/boards [get]
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListBoards(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list boards", err)
		return
	}
	writeJSON(w, http.StatusOK, BoardListResponse{Boards: items, Total: total})
}

// GetBoard handles GET /api/boards/{id}.
//
//	@Summary		Get a single board by id
//	@Tags			boards
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	BoardDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id} [get]
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBoard(r.Context(), boardID(r))
	if err != nil {
		writeError(w, "get board", err)
		return
	}
	w.Header().Set("ETag", etag(b.Checksum))
	writeJSON(w, http.StatusOK, b)
}

// CreateBoard handles POST /api/boards.
//
//	@Summary		Create a board, optionally compiled from diagram source or a prompt
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBoardRequest	true	"Board to create"
//	@Success		201		{object}	BoardDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards [post]
func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req CreateBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, _, err := h.svc.CreateBoard(r.Context(), boardservice.CreateInput{
		ID:     req.ID,
		Title:  req.Title,
		Source: req.Source,
		Prompt: req.Prompt,
		Kind:   parseKind(req.Kind),
	})
	if err != nil {
		writeError(w, "create board", err)
		return
	}
	w.Header().Set("ETag", etag(b.Checksum))
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBoard handles PUT /api/boards/{id}.
//
//	@Summary		Patch a board with optimistic concurrency
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Board id"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateBoardRequest	true	"Fields to change"
//	@Success		200			{object}	BoardDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id} [put]
func (h *Handler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	var req UpdateBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	b, err := h.svc.SaveBoard(r.Context(), boardID(r), req.Patch(), ifMatch)
	if err != nil {
		writeError(w, "update board", err)
		return
	}
	w.Header().Set("ETag", etag(b.Checksum))
	writeJSON(w, http.StatusOK, b)
}

// DeleteBoard handles DELETE /api/boards/{id}.
//
//	@Summary		Delete a board
//	@Tags			boards
//	@Param			id	path	string	true	"Board id"
//	@Success		204	"Board deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id} [delete]
func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBoard(r.Context(), boardID(r)); err != nil {
		writeError(w, "delete board", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameBoard handles POST /api/boards/{id}/rename.
//
//	@Summary		Move a board to a new id
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Board id"
//	@Param			body	body		RenameBoardRequest	true	"New id"
//	@Success		200		{object}	BoardDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/rename [post]
func (h *Handler) RenameBoard(w http.ResponseWriter, r *http.Request) {
	var req RenameBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.RenameBoard(r.Context(), boardID(r), req.ID)
	if err != nil {
		writeError(w, "rename board", err)
		return
	}
	w.Header().Set("ETag", etag(b.Checksum))
	writeJSON(w, http.StatusOK, b)
}

// AppendDiagram handles POST /api/boards/{id}/diagrams.
//
//	@Summary		Compile diagram source onto an existing board
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Board id"
//	@Param			body	body		DiagramRequest	true	"Diagram source"
//	@Success		200		{object}	DiagramResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/diagrams [post]
func (h *Handler) AppendDiagram(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, ast, err := h.svc.AppendDiagram(r.Context(), boardID(r), req.Source, parseKind(req.Kind))
	if err != nil {
		writeError(w, "append diagram", err)
		return
	}
	w.Header().Set("ETag", etag(b.Checksum))
	writeJSON(w, http.StatusOK, DiagramResponse{AST: ast, Board: b})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across boards
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: searchResults(results)})
}

// ValidateDiagram handles POST /api/diagrams/validate. Invalid source is
// reported in the body with status 200.
//
//	@Summary		Validate diagram source
//	@Tags			diagrams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DiagramRequest	true	"Diagram source"
//	@Success		200		{object}	diagram.Result
//	@Security		BearerAuth
//	@Router			/diagrams/validate [post]
func (h *Handler) ValidateDiagram(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Validate(req.Source, parseKind(req.Kind)))
}

// ParseDiagram handles POST /api/diagrams/parse.
//
//	@Summary		Parse diagram source into its syntax tree
//	@Tags			diagrams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DiagramRequest	true	"Diagram source"
//	@Success		200		{object}	DiagramResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diagrams/parse [post]
func (h *Handler) ParseDiagram(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ast, err := h.svc.Parse(req.Source, parseKind(req.Kind))
	if err != nil {
		writeError(w, "parse diagram", err)
		return
	}
	writeJSON(w, http.StatusOK, DiagramResponse{AST: ast})
}

// RenderDiagram handles POST /api/diagrams/render.
//
//	@Summary		Compile diagram source into board elements
//	@Tags			diagrams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DiagramRequest	true	"Diagram source"
//	@Success		200		{object}	DiagramResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diagrams/render [post]
func (h *Handler) RenderDiagram(w http.ResponseWriter, r *http.Request) {
	var req DiagramRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	elems, ast, err := h.svc.Render(req.Source, parseKind(req.Kind))
	if err != nil {
		writeError(w, "render diagram", err)
		return
	}
	writeJSON(w, http.StatusOK, DiagramResponse{AST: ast, Elements: elems})
}

// GenerateDiagram handles POST /api/diagrams/generate.
//
//	@Summary		Generate diagram source from a prompt
//	@Tags			diagrams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Prompt"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diagrams/generate [post]
func (h *Handler) GenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src, err := h.svc.Generate(r.Context(), req.Prompt, parseKind(req.Kind))
	if err != nil {
		writeError(w, "generate diagram", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Source: src})
}

// CollabHandler serves the live collaboration endpoints of a board.
type CollabHandler struct {
	hub *collab.Hub
	ws  *collab.WSHandler
}

// Events handles GET /api/boards/{id}/events (Server-Sent Events).
func (c *CollabHandler) Events(w http.ResponseWriter, r *http.Request) {
	c.hub.ServeSSE(w, r, boardID(r))
}

// Socket handles GET /api/boards/{id}/ws.
func (c *CollabHandler) Socket(w http.ResponseWriter, r *http.Request) {
	c.ws.Serve(w, r, boardID(r))
}

// Collaborators handles GET /api/boards/{id}/collaborators.
func (c *CollabHandler) Collaborators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"collaborators": c.hub.Roster(boardID(r)),
	})
}
