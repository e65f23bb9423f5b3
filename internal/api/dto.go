package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/boardservice"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/index"
)

// maxSourceBytes bounds diagram source accepted in request bodies.
const maxSourceBytes = 256 << 10

// kindRule accepts an empty kind or any name diagram.ParseKindName knows.
var kindRule = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := diagram.ParseKindName(s); !ok {
		return errors.New("unknown diagram kind")
	}
	return nil
})

func parseKind(s string) diagram.Kind {
	k, _ := diagram.ParseKindName(s)
	return k
}

// CreateBoardRequest is the request body for creating a board.
type CreateBoardRequest struct {
	ID     string `json:"id,omitempty" example:"roadmap"`
	Title  string `json:"title,omitempty" example:"Roadmap"`
	Source string `json:"source,omitempty" example:"flowchart TD\nA[Plan] --> B[Ship]"`
	Prompt string `json:"prompt,omitempty" example:"Release: plan -> build -> ship"`
	Kind   string `json:"kind,omitempty" example:"flowchart"`
}

// Validate checks the request fields.
func (r CreateBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Match(boardservice.IDPattern)),
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Source, validation.Length(0, maxSourceBytes)),
		validation.Field(&r.Prompt, validation.Length(0, 4096)),
		validation.Field(&r.Kind, kindRule),
	)
}

// RenameBoardRequest is the request body for renaming a board.
type RenameBoardRequest struct {
	ID string `json:"id" example:"roadmap-2026"`
}

// Validate checks the request fields.
func (r RenameBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Match(boardservice.IDPattern)),
	)
}

// UpdateBoardRequest is the request body for patching a board. Omitted
// fields are left unchanged.
type UpdateBoardRequest struct {
	Title    *string          `json:"title,omitempty"`
	Elements *[]board.Element `json:"elements,omitempty"`
	Viewport *board.Viewport  `json:"viewport,omitempty"`
}

// Validate checks the request fields.
func (r UpdateBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(0, 200)),
		validation.Field(&r.Viewport, validation.By(func(v any) error {
			if vp, _ := v.(*board.Viewport); vp != nil && vp.Zoom <= 0 {
				return errors.New("zoom must be positive")
			}
			return nil
		})),
	)
}

// Patch converts the request to a board patch.
func (r UpdateBoardRequest) Patch() board.Patch {
	return board.Patch{Title: r.Title, Elements: r.Elements, Viewport: r.Viewport}
}

// DiagramRequest carries diagram source for the diagram endpoints.
type DiagramRequest struct {
	Source string `json:"source" example:"flowchart TD\nA[Plan] --> B[Ship]" validate:"required"`
	Kind   string `json:"kind,omitempty" example:"flowchart"`
}

// Validate checks the request fields.
func (r DiagramRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required, validation.Length(1, maxSourceBytes)),
		validation.Field(&r.Kind, kindRule),
	)
}

// GenerateRequest asks the configured generator for diagram source.
type GenerateRequest struct {
	Prompt string `json:"prompt" example:"Release: plan -> build -> ship" validate:"required"`
	Kind   string `json:"kind,omitempty" example:"sequence"`
}

// Validate checks the request fields.
func (r GenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required, validation.Length(1, 4096)),
		validation.Field(&r.Kind, kindRule),
	)
}

// BoardDetail is the full board response type (aliased from the domain layer).
type BoardDetail = boardservice.BoardDetail

// BoardListResponse wraps paginated board listings.
type BoardListResponse struct {
	Boards []board.Metadata `json:"boards" validate:"required"`
	Total  int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" example:"roadmap" validate:"required"`
	Title   string `json:"title" example:"Roadmap" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func searchResults(in []index.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{ID: r.ID, Title: r.Title, Snippet: r.Snippet}
	}
	return out
}

// DiagramResponse is returned by the parse, render and append endpoints.
type DiagramResponse struct {
	AST      *diagram.AST    `json:"ast,omitempty"`
	Elements []board.Element `json:"elements,omitempty"`
	Board    *BoardDetail    `json:"board,omitempty"`
}

// GenerateResponse carries generated, already validated diagram source.
type GenerateResponse struct {
	Source string `json:"source" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
