// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio library and progress tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/bookservice"
	"github.com/starford/folio/internal/index"
)

const progressFormatURI = "folio://progress-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *bookservice.Service
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *bookservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List the books in the library catalog, sorted by title, size or path."),
		mcp.WithString("sort", mcp.Description("Sort order: title (default), size or path")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of books (0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Number of books to skip")),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("search_books",
		mcp.WithDescription("Search the library by book title or file name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBooks)

	s.mcp.AddTool(mcp.NewTool("book_info",
		mcp.WithDescription("Read a PDF's title, page count, size and content hash."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to the PDF")),
	), s.bookInfo)

	s.mcp.AddTool(mcp.NewTool("book_outline",
		mcp.WithDescription("Read a PDF's bookmark tree. Each item has a title, a 1-based page and children."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path to the PDF")),
	), s.bookOutline)

	s.mcp.AddTool(mcp.NewTool("load_progress",
		mcp.WithDescription("Load the reading progress for a book after synchronizing its replicas. "+
			"Returns null when the book has never been opened. See the folio://progress-format resource."),
		mcp.WithString("hash", mcp.Required(), mcp.Description("Content hash of the book (from book_info)")),
	), s.loadProgress)

	s.mcp.AddTool(mcp.NewTool("sync_progress",
		mcp.WithDescription("Synchronize reading progress between the Local and Central replicas. "+
			"With a hash, one book is synchronized; without, every book in the catalog."),
		mcp.WithString("hash", mcp.Description("Content hash; omit to synchronize the whole catalog")),
	), s.syncProgress)

	s.mcp.AddTool(mcp.NewTool("import_book_url",
		mcp.WithDescription("Download a PDF from an http(s) URL or a base64 data URI and add it to the library."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/pdf;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; .pdf is appended when missing")),
	), s.importBookURL)

	s.mcp.AddTool(mcp.NewTool("get_progress_format",
		mcp.WithDescription("Returns the reading-progress record format and the replica synchronization rules."),
	), s.getProgressFormat)

	// Resource: progress format contract.
	s.mcp.AddResource(
		mcp.NewResource(progressFormatURI, "Progress Format",
			mcp.WithResourceDescription("Reading-progress record format and synchronization rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProgressFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult reports err's reason code, which is stable across releases.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Reason(err))
}

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sort := req.GetString("sort", index.SortTitle)
	limit := req.GetInt("limit", 0)
	offset := req.GetInt("offset", 0)

	books, total, err := s.svc.ListBooks(ctx, limit, offset, sort)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"books": books, "total": total}), nil
}

func (s *Server) searchBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) bookInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.Info(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(b), nil
}

func (s *Server) bookOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.Outline(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(items), nil
}

func (s *Server) loadProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash, err := req.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.LoadProgress(ctx, hash)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(p), nil
}

func (s *Server) syncProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if hash := req.GetString("hash", ""); hash != "" {
		adopted, err := s.svc.SyncProgress(ctx, hash)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]any{"adopted": adopted}), nil
	}

	changed, err := s.svc.SyncAll(ctx, nil)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{"changed": changed}), nil
}

func (s *Server) getProgressFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProgressFormatContract), nil
}

func (s *Server) readProgressFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      progressFormatURI,
			MIMEType: "text/markdown",
			Text:     ProgressFormatContract,
		},
	}, nil
}
