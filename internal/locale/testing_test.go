package locale

import (
	"testing"

	"github.com/govright/platform-services/internal/events"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog("en")
	if err := c.AddMessages("en", map[string]string{KeyName: "English", KeyDirection: "ltr", "hello": "Hello {{.Name}}"}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddMessages("ar", map[string]string{KeyName: "العربية", KeyDirection: "rtl"}); err != nil {
		t.Fatal(err)
	}
	return c
}

func testResolver(t *testing.T) (*Resolver, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	c := testCatalog(t)
	c.SetCurrentLanguage("en")
	return NewResolver(c, bus), bus
}

func law() *Record {
	return &Record{
		Locales: map[string]Projection{
			"en": {"title": "Constitution", "text": "We the people"},
			"ar": {"title": "الدستور"},
		},
	}
}
