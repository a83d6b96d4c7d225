package index

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/govright/platform-services/internal/apperr"
	"github.com/govright/platform-services/internal/models"
	"github.com/govright/platform-services/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const lawPackage = `{
  "id": "law-1",
  "defaultLocale": "en",
  "locales": {"en": {"title": "Constitution"}},
  "nodes": [
    {"id": 1, "original": {"locales": {
      "en": {"title": "Preamble", "text": "We the people"},
      "ar": {"title": "ديباجة", "text": "نحن الشعب"}
    }}, "nodes": [
      {"id": 2, "original": {"locales": {"en": {"title": "Article 1", "text": "Sovereignty belongs to the people"}}}, "nodes": []}
    ]}
  ]
}`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"documents", "nodes", "kv"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestIndexFileAndGet(t *testing.T) {
	db := testDB(t)
	res, err := IndexFile(db, "laws/law.json", []byte(lawPackage))
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if res.NodeCount != 2 {
		t.Errorf("node count = %d", res.NodeCount)
	}

	d, err := db.GetDocument("law-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if d.Path != "laws/law.json" || d.Title != "Constitution" || d.NodeCount != 2 || d.MaxDepth != 2 {
		t.Errorf("document = %+v", d)
	}
	cs, _ := db.GetChecksum("laws/law.json")
	if cs == "" || cs != d.Checksum {
		t.Errorf("checksum = %q, row %q", cs, d.Checksum)
	}

	if _, err := db.GetDocument("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchByLocale(t *testing.T) {
	db := testDB(t)
	if _, err := IndexFile(db, "law.json", []byte(lawPackage)); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search("people", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want 2", hits)
	}

	hits, err = db.Search("ديباجة", "ar", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].NodeID != "1" || hits[0].Locale != "ar" {
		t.Errorf("hits = %+v", hits)
	}

	hits, _ = db.Search("Preamble", "ar", 10)
	if len(hits) != 0 {
		t.Errorf("locale filter ignored: %+v", hits)
	}
}

func TestUpsertReplacesNodes(t *testing.T) {
	db := testDB(t)
	meta := models.DocumentMeta{ID: "d", Path: "d.json", Checksum: "1"}
	_ = db.UpsertDocument(meta, []NodeRow{{NodeID: "1", Locale: "en", Title: "Oldword"}})
	meta.Checksum = "2"
	_ = db.UpsertDocument(meta, []NodeRow{{NodeID: "1", Locale: "en", Title: "Newword"}})

	if hits, _ := db.Search("Oldword", "", 10); len(hits) != 0 {
		t.Errorf("stale node rows: %+v", hits)
	}
	if hits, _ := db.Search("Newword", "", 10); len(hits) != 1 {
		t.Errorf("hits = %+v", hits)
	}
	if cs, _ := db.GetChecksum("d.json"); cs != "2" {
		t.Errorf("checksum = %q", cs)
	}
}

func TestUpsertMovedDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.DocumentMeta{ID: "d", Path: "a.json"}, nil)
	_ = db.UpsertDocument(models.DocumentMeta{ID: "d", Path: "b.json"}, nil)
	paths, _ := db.AllPaths()
	if _, ok := paths["a.json"]; ok || len(paths) != 1 {
		t.Errorf("paths = %v", paths)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_, _ = IndexFile(db, "law.json", []byte(lawPackage))
	if err := db.DeleteDocument("law.json"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("law.json"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if hits, _ := db.Search("people", "", 10); len(hits) != 0 {
		t.Errorf("nodes survived delete: %+v", hits)
	}
	if err := db.DeleteDocument("law.json"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.DocumentMeta{ID: "b", Path: "b.json", Title: "alpha"}, nil)
	_ = db.UpsertDocument(models.DocumentMeta{ID: "a", Path: "a.json", Title: "Beta"}, nil)
	_ = db.UpsertDocument(models.DocumentMeta{ID: "c", Path: "c.json", Title: "gamma"}, nil)

	docs, total, err := db.ListDocuments(2, 0, "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(docs) != 2 || docs[0].ID != "a" {
		t.Errorf("total=%d docs=%+v", total, docs)
	}
	docs, _, _ = db.ListDocuments(10, 0, "title")
	if docs[0].ID != "b" || docs[1].ID != "a" {
		t.Errorf("title order = %s,%s", docs[0].ID, docs[1].ID)
	}
	docs, _, _ = db.ListDocuments(10, 2, "")
	if len(docs) != 1 || docs[0].ID != "c" {
		t.Errorf("offset page = %+v", docs)
	}
}

func TestValues(t *testing.T) {
	db := testDB(t)
	if _, ok, err := db.GetValue("k"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	_ = db.SetValue("k", "1")
	_ = db.SetValue("k", "2")
	v, ok, _ := db.GetValue("k")
	if !ok || v != "2" {
		t.Errorf("value = %q ok=%v", v, ok)
	}
	_ = db.DeleteValue("k")
	if _, ok, _ := db.GetValue("k"); ok {
		t.Error("key should be gone")
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("law.json", []byte(lawPackage))
	_ = store.Write("broken.yaml", []byte("nodes: [: {"))
	_ = db.UpsertDocument(models.DocumentMeta{ID: "gone", Path: "gone.json"}, nil)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	paths, _ := db.AllPaths()
	if _, ok := paths["law.json"]; !ok {
		t.Error("law.json not indexed")
	}
	if _, ok := paths["gone.json"]; ok {
		t.Error("stale entry not removed")
	}
	if _, ok := paths["broken.yaml"]; ok {
		t.Error("malformed package should not be indexed")
	}
}
