// Package testutil provides shared test helpers for document stores,
// databases and locales.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/index"
	"github.com/govright/platform-services/internal/locale"
	"github.com/govright/platform-services/internal/storage"
)

// LawPackage is a small bilingual document package.
const LawPackage = `{
  "id": "law-1",
  "defaultLocale": "en",
  "locales": {"en": {"title": "Constitution"}, "ar": {"title": "الدستور"}},
  "nodes": [
    {"id": 1, "original": {"locales": {
      "en": {"title": "Preamble", "text": "We the people"},
      "ar": {"title": "ديباجة", "text": "نحن الشعب"}
    }}, "nodes": [
      {"id": 2, "original": {"locales": {"en": {"title": "Article 1", "text": "Sovereignty belongs to the people"}}}, "nodes": []}
    ]}
  ]
}`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary documents directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes body to rel under dir, creating parents.
func WriteFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestResolver returns an English/Arabic resolver with English current and
// default, publishing on bus.
func TestResolver(t *testing.T, bus *events.Bus) *locale.Resolver {
	t.Helper()
	c := locale.NewCatalog("en")
	msgs := map[string]map[string]string{
		"en": {locale.KeyName: "English", locale.KeyDirection: "ltr"},
		"ar": {locale.KeyName: "Arabic", locale.KeyDirection: "rtl"},
	}
	for code, m := range msgs {
		if err := c.AddMessages(code, m); err != nil {
			t.Fatal(err)
		}
	}
	c.SetCurrentLanguage("en")
	r := locale.NewResolver(c, bus)
	r.SetDefault("en")
	return r
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
