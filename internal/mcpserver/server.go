// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido board and diagram tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/boardservice"
	"github.com/starford/raido/internal/diagram"
)

const contractURI = "raido://diagram-format"

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *boardservice.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *boardservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List boards, most recently updated first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listBoards)

	s.mcp.AddTool(mcp.NewTool("read_board",
		mcp.WithDescription("Read a board with all of its elements as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Board id")),
	), s.readBoard)

	s.mcp.AddTool(mcp.NewTool("search_boards",
		mcp.WithDescription("Full-text search through board titles and element text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBoards)

	s.mcp.AddTool(mcp.NewTool("create_board",
		mcp.WithDescription("Create a board. When source is given it MUST follow the diagram "+
			"format contract; read it first via the get_diagram_contract tool or the "+
			contractURI+" resource. When only prompt is given, the source is generated."),
		mcp.WithString("id", mcp.Description("Board id (letters, digits, '.', '_' and '-'); generated when empty")),
		mcp.WithString("title", mcp.Description("Board title; defaults to the diagram title")),
		mcp.WithString("source", mcp.Description("Diagram source to compile onto the board")),
		mcp.WithString("prompt", mcp.Description("Plain-language description used when source is empty")),
		mcp.WithString("kind", mcp.Description("Diagram kind hint"), mcp.Enum(kindNames()...)),
	), s.createBoard)

	s.mcp.AddTool(mcp.NewTool("append_diagram",
		mcp.WithDescription("Compile diagram source and add the elements to an existing board."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Diagram source following the format contract")),
		mcp.WithString("kind", mcp.Description("Diagram kind hint"), mcp.Enum(kindNames()...)),
	), s.appendDiagram)

	s.mcp.AddTool(mcp.NewTool("validate_diagram",
		mcp.WithDescription("Check diagram source and report every error found."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Diagram source")),
		mcp.WithString("kind", mcp.Description("Diagram kind hint"), mcp.Enum(kindNames()...)),
	), s.validateDiagram)

	s.mcp.AddTool(mcp.NewTool("render_diagram",
		mcp.WithDescription("Compile diagram source into board elements without saving them."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Diagram source")),
		mcp.WithString("kind", mcp.Description("Diagram kind hint"), mcp.Enum(kindNames()...)),
	), s.renderDiagram)

	s.mcp.AddTool(mcp.NewTool("generate_diagram",
		mcp.WithDescription("Generate validated diagram source from a plain-language prompt."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the diagram should show, e.g. 'Release: plan -> build -> ship'")),
		mcp.WithString("kind", mcp.Description("Diagram kind"), mcp.Enum(kindNames()...)),
	), s.generateDiagram)

	s.mcp.AddTool(mcp.NewTool("get_diagram_contract",
		mcp.WithDescription("Returns the diagram source format contract. "+
			"Call this before writing diagram source to ensure correct structure."),
	), s.getDiagramContract)

	s.mcp.AddTool(mcp.NewTool("add_image",
		mcp.WithDescription("Save an image from an http(s) URL or a base64 data URI as a board "+
			"attachment, optionally placing it on a board."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Attachment file name; derived from the URL when empty")),
		mcp.WithString("board", mcp.Description("Board id to place the image on")),
		mcp.WithNumber("x", mcp.Description("World x of the image")),
		mcp.WithNumber("y", mcp.Description("World y of the image")),
		mcp.WithNumber("width", mcp.Description("Image width (default 320)")),
		mcp.WithNumber("height", mcp.Description("Image height (default 240)")),
	), s.addImage)

	// Resource: diagram format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Diagram Format Contract",
			mcp.WithResourceDescription("Diagram source grammar accepted by the compiler."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func kindNames() []string {
	kinds := diagram.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func kindArg(req mcp.CallToolRequest) (diagram.Kind, error) {
	name := req.GetString("kind", "")
	if name == "" {
		return diagram.KindUnknown, nil
	}
	k, ok := diagram.ParseKindName(name)
	if !ok {
		return diagram.KindUnknown, fmt.Errorf("unknown diagram kind: %s", name)
	}
	return k, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult renders diagram errors one per line.
func errorResult(err error) *mcp.CallToolResult {
	var de *boardservice.DiagramError
	if errors.As(err, &de) {
		return mcp.NewToolResultError("invalid diagram:\n" + strings.Join(de.Result.Errors, "\n"))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 0))
	offset := int(req.GetFloat("offset", 0))
	items, total, err := s.svc.ListBoards(ctx, limit, offset)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"boards": items, "total": total}), nil
}

func (s *Server) readBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.GetBoard(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(b), nil
}

func (s *Server) searchBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) createBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, _, err := s.svc.CreateBoard(ctx, boardservice.CreateInput{
		ID:     req.GetString("id", ""),
		Title:  req.GetString("title", ""),
		Source: req.GetString("source", ""),
		Prompt: req.GetString("prompt", ""),
		Kind:   kind,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d elements)", b.ID, len(b.Elements))), nil
}

func (s *Server) appendDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, _, err := s.svc.AppendDiagram(ctx, id, source, kind)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (%d elements)", b.ID, len(b.Elements))), nil
}

func (s *Server) validateDiagram(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Validate(source, kind)), nil
}

func (s *Server) renderDiagram(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	elems, _, err := s.svc.Render(source, kind)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(elems), nil
}

func (s *Server) generateDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	src, err := s.svc.Generate(ctx, prompt, kind)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(src), nil
}

func (s *Server) getDiagramContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DiagramFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DiagramFormatContract,
		},
	}, nil
}
