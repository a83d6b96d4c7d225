package parser

import (
	"context"
	"testing"
)

const lawJSON = `{
  "id": "law-1",
  "defaultLocale": "en",
  "locales": {"en": {"title": "Constitution"}, "ar": {"title": "الدستور"}},
  "nodes": [
    {"id": 1, "original": {"locales": {"en": {"title": "Preamble"}}}, "nodes": [
      {"id": 2, "nodes": []}
    ]},
    {"id": 3, "abstract": true, "nodes": []}
  ]
}`

const lawYAML = `
id: law-2
locales:
  fr:
    title: Loi
nodes:
  - id: 10
    nodes:
      - id: a
        nodes:
          - id: b
`

func TestParse_JSON(t *testing.T) {
	r, err := Parse("law.json", []byte(lawJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Document.ID != "law-1" {
		t.Errorf("id = %q", r.Document.ID)
	}
	if r.Title != "Constitution" {
		t.Errorf("title = %q", r.Title)
	}
	if r.NodeCount != 3 || r.MaxDepth != 2 {
		t.Errorf("count/depth = %d/%d, want 3/2", r.NodeCount, r.MaxDepth)
	}
	n := r.Document.Nodes[0]
	if n.ID != "1" || n.Original.Get("en").String("title") != "Preamble" {
		t.Errorf("node = %+v", n)
	}
	if !r.Document.Nodes[1].Abstract {
		t.Error("abstract flag lost")
	}
}

func TestParse_YAML(t *testing.T) {
	r, err := Parse("law.yaml", []byte(lawYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Title != "Loi" {
		t.Errorf("title = %q, want fallback locale title", r.Title)
	}
	if r.NodeCount != 3 || r.MaxDepth != 3 {
		t.Errorf("count/depth = %d/%d, want 3/3", r.NodeCount, r.MaxDepth)
	}
	if r.Document.Nodes[0].ID != "10" {
		t.Errorf("numeric yaml id = %q", r.Document.Nodes[0].ID)
	}
}

func TestParse_Sniffing(t *testing.T) {
	if Detect("upload", []byte("  {\"nodes\":[]}")) != FormatJSON {
		t.Error("brace should sniff as json")
	}
	if Detect("upload", []byte("nodes: []")) != FormatYAML {
		t.Error("plain text should sniff as yaml")
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse("bad.json", []byte(`{"nodes": [`)); err == nil {
		t.Error("expected json error")
	}
	if _, err := Parse("bad.yaml", []byte("nodes: [: {")); err == nil {
		t.Error("expected yaml error")
	}
}

func TestParse_Empty(t *testing.T) {
	r, err := Parse("empty.json", []byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Document.ID != "empty" {
		t.Errorf("id = %q, want file stem", r.Document.ID)
	}
	if r.NodeCount != 0 || r.MaxDepth != 0 || r.Title != "" {
		t.Errorf("result = %+v", r)
	}
}

func TestParseAll(t *testing.T) {
	res, err := ParseAll(context.Background(), []Input{
		{Name: "a.json", Data: []byte(lawJSON)},
		{Name: "b.yaml", Data: []byte(lawYAML)},
	}, 2)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if res[0].Document.ID != "law-1" || res[1].Document.ID != "law-2" {
		t.Errorf("order not preserved")
	}

	if _, err := ParseAll(context.Background(), []Input{
		{Name: "a.json", Data: []byte(lawJSON)},
		{Name: "bad.json", Data: []byte("{")},
	}, 1); err == nil {
		t.Error("expected batch error")
	}
}
