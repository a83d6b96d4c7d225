// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/govright/platform-services/internal/docservice"
)

// FormatURI is the resource holding DocumentFormatContract.
const FormatURI = "govright://document-format"

// Server wraps the MCP server with document tools.
type Server struct {
	mcp  *server.MCPServer
	docs *docservice.Service
}

// New creates a new MCP server with all document tools registered.
func New(docs *docservice.Service, version string) *Server {
	s := &Server{docs: docs}

	s.mcp = server.NewMCPServer(
		"GovRight Platform",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List loaded document packages with id, title and node counts."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithString("sort", mcp.Description("Sort field: id, title or updated")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read a decorated document outline in the current locale."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read one node with its title, text, link and neighbours."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node id")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Full-text search through node titles and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("locale", mcp.Description("Restrict to one locale code")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNodes)

	s.mcp.AddTool(mcp.NewTool("set_locale",
		mcp.WithDescription("Switch the current locale. Every document is re-decorated."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Locale code, e.g. en or ar")),
	), s.setLocale)

	s.mcp.AddTool(mcp.NewTool("list_locales",
		mcp.WithDescription("List available locales and the current one."),
	), s.listLocales)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a document package. Content MUST follow the document "+
			"package format; read it first via the get_document_format tool or the "+
			FormatURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name ending in .json, .yaml or .yml")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Package content")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the document package format contract."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Document Package Format",
			mcp.WithResourceDescription("Format every document package must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.docs.List(ctx, req.GetInt("limit", 50), req.GetInt("offset", 0), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"documents": items, "total": total})
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(doc)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := req.RequireString("node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.docs.Node(ctx, docID, nodeID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", docID, nodeID)), nil
	}
	return jsonResult(n)
}

func (s *Server) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.docs.Search(ctx, query, req.GetString("locale", ""), req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(hits)
}

func (s *Server) setLocale(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	l, err := s.docs.SetLocale(code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown locale: %s", code)), nil
	}
	return jsonResult(l)
}

func (s *Server) listLocales(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"current": s.docs.Locale(),
		"locales": s.docs.Locales(),
	})
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.docs.Create(ctx, name, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", meta.ID, meta.Path)), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
