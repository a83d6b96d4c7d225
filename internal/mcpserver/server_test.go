package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/govright/platform-services/internal/docservice"
	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/nodetree"
	"github.com/govright/platform-services/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir, store := testutil.TestStore(t)
	testutil.WriteFile(t, dir, "law.json", testutil.LawPackage)
	bus := events.NewBus()
	docs := docservice.New(store, testutil.TestDB(t), testutil.TestResolver(t, bus), bus,
		testutil.QuietLogger(), nodetree.DefaultSettings().Options()...)
	t.Cleanup(docs.Close)
	if err := docs.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(docs, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper; call the handlers.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_documents":      srv.listDocuments,
		"get_document":        srv.getDocument,
		"get_node":            srv.getNode,
		"search_nodes":        srv.searchNodes,
		"set_locale":          srv.setLocale,
		"list_locales":        srv.listLocales,
		"create_document":     srv.createDocument,
		"get_document_format": srv.getDocumentFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestListDocuments(t *testing.T) {
	srv := testServer(t)
	// Load decorates only; the index is filled by create or sync.
	r := callTool(t, srv, "create_document", map[string]any{
		"name":    "charter.json",
		"content": `{"id": "charter", "locales": {"en": {"title": "Charter"}}, "nodes": []}`,
	})
	if got := resultText(r); got != "created: charter (charter.json)" {
		t.Errorf("create = %q", got)
	}
	r = callTool(t, srv, "list_documents", map[string]any{"limit": 10})
	if text := resultText(r); !strings.Contains(text, `"charter"`) || !strings.Contains(text, `"total": 1`) {
		t.Errorf("list = %s", text)
	}
}

func TestGetNodeAndLocale(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_node", map[string]any{"document": "law-1", "node": "1"})
	if text := resultText(r); !strings.Contains(text, "Preamble") {
		t.Errorf("node = %s", text)
	}

	r = callTool(t, srv, "set_locale", map[string]any{"code": "ar"})
	if r.IsError {
		t.Fatalf("set_locale: %s", resultText(r))
	}
	r = callTool(t, srv, "get_node", map[string]any{"document": "law-1", "node": "1"})
	if text := resultText(r); !strings.Contains(text, "ديباجة") {
		t.Errorf("node after switch = %s", text)
	}

	r = callTool(t, srv, "list_locales", map[string]any{})
	if text := resultText(r); !strings.Contains(text, `"code": "ar"`) || !strings.Contains(text, `"code": "en"`) {
		t.Errorf("locales = %s", text)
	}

	if r := callTool(t, srv, "set_locale", map[string]any{"code": "xx"}); !r.IsError {
		t.Error("expected error for unknown locale")
	}
}

func TestGetMissing(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "get_node", map[string]any{"document": "law-1", "node": "42"}); !r.IsError {
		t.Error("expected error for missing node")
	}
	if r := callTool(t, srv, "get_document", map[string]any{"id": "nope"}); !r.IsError {
		t.Error("expected error for missing document")
	}
	if r := callTool(t, srv, "get_node", map[string]any{"document": "law-1"}); !r.IsError {
		t.Error("expected error for missing argument")
	}
}

func TestSearchNodes(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_document", map[string]any{
		"name":    "charter.yaml",
		"content": "id: charter\nnodes:\n  - id: a\n    original:\n      locales:\n        en: {title: Sovereignty clause}\n    nodes: []\n",
	})
	r := callTool(t, srv, "search_nodes", map[string]any{"query": "Sovereignty"})
	if text := resultText(r); !strings.Contains(text, "charter") {
		t.Errorf("search = %s", text)
	}
	r = callTool(t, srv, "search_nodes", map[string]any{"query": "zzzz"})
	if text := resultText(r); text != "no results" {
		t.Errorf("empty search = %q", text)
	}
}

func TestDocumentFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_document_format", map[string]any{})
	if !strings.Contains(resultText(r), "Document Package Format") {
		t.Error("contract missing")
	}
	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
