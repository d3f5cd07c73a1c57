package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/bookservice"
	"github.com/starford/folio/internal/identity"
	"github.com/starford/folio/internal/library"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/pdfdoc"
	"github.com/starford/folio/internal/progress"
	"github.com/starford/folio/internal/replica"
	"github.com/starford/folio/internal/testutil"
)

type testEnv struct {
	srv     *Server
	svc     *bookservice.Service
	books   string
	central *replica.Dir[models.Progress]
}

func testServer(t *testing.T) *testEnv {
	t.Helper()

	books, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	state := t.TempDir()

	local := replica.NewDir[models.Progress](replica.Local, filepath.Join(state, "local"), true)
	central := replica.NewDir[models.Progress](replica.Central, filepath.Join(state, "central"), true)
	if err := bookservice.EnsureDirectories(books, local, central); err != nil {
		t.Fatal(err)
	}

	ids := identity.New(filepath.Join(state, "hash-cache.json"))
	parser := pdfdoc.PDF{}
	svc := bookservice.New(store, db, library.NewCache(ids, parser, nil, nil), parser, progress.NewEngine(local, central))
	return &testEnv{srv: New(svc, "test"), svc: svc, books: books, central: central}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_books":
		result, err = srv.listBooks(ctx, req)
	case "search_books":
		result, err = srv.searchBooks(ctx, req)
	case "book_info":
		result, err = srv.bookInfo(ctx, req)
	case "book_outline":
		result, err = srv.bookOutline(ctx, req)
	case "load_progress":
		result, err = srv.loadProgress(ctx, req)
	case "sync_progress":
		result, err = srv.syncProgress(ctx, req)
	case "import_book_url":
		result, err = srv.importBookURL(ctx, req)
	case "get_progress_format":
		result, err = srv.getProgressFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListBooks(t *testing.T) {
	env := testServer(t)
	testutil.WritePDF(t, env.books, "b.pdf", testutil.PDFSpec{Pages: 1, Title: "Beta"})
	testutil.WritePDF(t, env.books, "a.pdf", testutil.PDFSpec{Pages: 1, Title: "Alpha"})
	if _, err := env.svc.ScanBooks(context.Background()); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, env.srv, "list_books", map[string]interface{}{})
	var resp struct {
		Books []models.Book `json:"books"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if resp.Total != 2 || resp.Books[0].Title != "Alpha" {
		t.Errorf("list = %+v", resp)
	}
}

func TestSearchBooks(t *testing.T) {
	env := testServer(t)
	testutil.WritePDF(t, env.books, "m.pdf", testutil.PDFSpec{Pages: 1, Title: "Moby Dick"})
	_, _ = env.svc.ScanBooks(context.Background())

	r := callTool(t, env.srv, "search_books", map[string]interface{}{"query": "moby"})
	if !strings.Contains(resultText(r), "m.pdf") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, env.srv, "search_books", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing query")
	}
}

func TestBookInfoAndOutline(t *testing.T) {
	env := testServer(t)
	p := testutil.WritePDF(t, env.books, "o.pdf", testutil.PDFSpec{
		Pages: 4,
		Title: "Outlined",
		Outline: []testutil.OutlineEntry{
			{Title: "Part I", Page: 1, Children: []testutil.OutlineEntry{{Title: "Ch 1", Page: 2}}},
		},
	})

	r := callTool(t, env.srv, "book_info", map[string]interface{}{"path": p})
	var b models.Book
	_ = json.Unmarshal([]byte(resultText(r)), &b)
	if b.PageCount != 4 || b.Title != "Outlined" {
		t.Errorf("info = %+v", b)
	}

	r = callTool(t, env.srv, "book_outline", map[string]interface{}{"path": p})
	var items []models.OutlineItem
	_ = json.Unmarshal([]byte(resultText(r)), &items)
	if len(items) != 1 || len(items[0].Children) != 1 || items[0].Children[0].Page != 2 {
		t.Errorf("outline = %+v", items)
	}
}

func TestBookInfoMissing(t *testing.T) {
	env := testServer(t)
	r := callTool(t, env.srv, "book_info", map[string]interface{}{"path": filepath.Join(env.books, "nope.pdf")})
	if !r.IsError || resultText(r) != "stat_failed" {
		t.Errorf("missing book = %v %q", r.IsError, resultText(r))
	}
}

func TestLoadAndSyncProgress(t *testing.T) {
	env := testServer(t)

	r := callTool(t, env.srv, "load_progress", map[string]interface{}{"hash": "abc123"})
	if r.IsError || resultText(r) != "null" {
		t.Errorf("empty load = %q", resultText(r))
	}

	remote := models.Progress{
		Hash:        "abc123",
		CurrentPage: 17,
		Zoom:        1,
		ScrollMode:  models.ScrollSingle,
		LastRead:    models.FormatTimestamp(time.Now()),
		Version:     2,
	}
	if err := env.central.Write("abc123", remote); err != nil {
		t.Fatal(err)
	}

	r = callTool(t, env.srv, "sync_progress", map[string]interface{}{"hash": "abc123"})
	if !strings.Contains(resultText(r), `"current_page": 17`) {
		t.Errorf("sync = %q", resultText(r))
	}

	r = callTool(t, env.srv, "load_progress", map[string]interface{}{"hash": "abc123"})
	var p models.Progress
	_ = json.Unmarshal([]byte(resultText(r)), &p)
	if p.CurrentPage != 17 || p.Version != 2 {
		t.Errorf("load after sync = %+v", p)
	}

	r = callTool(t, env.srv, "load_progress", map[string]interface{}{"hash": "../etc"})
	if !r.IsError || resultText(r) != "invalid_hash" {
		t.Errorf("bad hash = %q", resultText(r))
	}
}

func TestSyncProgress_WholeCatalog(t *testing.T) {
	env := testServer(t)
	r := callTool(t, env.srv, "sync_progress", map[string]interface{}{})
	if r.IsError || !strings.Contains(resultText(r), `"changed": []`) {
		t.Errorf("sync all = %q", resultText(r))
	}
}

func TestImportBookURL_DataURI(t *testing.T) {
	env := testServer(t)
	pdf := testutil.BuildPDF(testutil.PDFSpec{Pages: 2, Title: "From Data"})
	uri := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)

	r := callTool(t, env.srv, "import_book_url", map[string]interface{}{"url": uri, "filename": "data book"})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
	var res importResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Path != filepath.Join(env.books, "data book.pdf") || res.Pages != 2 {
		t.Errorf("import = %+v", res)
	}

	r = callTool(t, env.srv, "import_book_url", map[string]interface{}{"url": uri, "filename": "data book.pdf"})
	if !r.IsError || resultText(r) != "file_already_exists" {
		t.Errorf("duplicate import = %q", resultText(r))
	}
}

func TestImportBookURL_Rejections(t *testing.T) {
	env := testServer(t)
	cases := map[string]string{
		"not pdf":  "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
		"png mime": "data:image/png;base64,AAAA",
		"scheme":   "ftp://example.com/a.pdf",
		"loopback": "http://127.0.0.1/a.pdf",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			r := callTool(t, env.srv, "import_book_url", map[string]interface{}{"url": url})
			if !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd.pdf",
		"Résumé 2024.pdf":  "Résumé 2024.pdf",
		"a:b*c.PDF":        "a_b_c.PDF",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeFilename("..."); !strings.HasSuffix(got, ".pdf") || len(got) < 10 {
		t.Errorf("fallback name = %q", got)
	}
}

func TestProgressFormatContract(t *testing.T) {
	env := testServer(t)
	r := callTool(t, env.srv, "get_progress_format", nil)
	if resultText(r) != ProgressFormatContract {
		t.Error("contract tool returned unexpected text")
	}

	contents, err := env.srv.readProgressFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != "folio://progress-format" {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
