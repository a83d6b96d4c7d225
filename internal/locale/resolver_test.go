package locale

import (
	"testing"

	"github.com/govright/platform-services/internal/events"
)

func TestSetCurrent_BroadcastsOnlyOnChange(t *testing.T) {
	r, bus := testResolver(t)
	var got []Locale
	bus.Subscribe(events.TopicLocaleChanged, func(e events.Event) {
		got = append(got, e.Data.(Locale))
	})

	r.SetCurrent("en")
	if len(got) != 0 {
		t.Fatalf("same code should not broadcast, got %v", got)
	}
	cur := r.SetCurrent("ar")
	if cur.Code != "ar" || cur.Dir != "rtl" || cur.Name != "العربية" {
		t.Errorf("current = %+v", cur)
	}
	if len(got) != 1 || got[0].Code != "ar" {
		t.Errorf("broadcasts = %v", got)
	}
}

func TestDetermineLocaleCode(t *testing.T) {
	r, _ := testResolver(t)
	rec := &Record{
		DefaultLocale: "ar",
		Locales:       map[string]Projection{"ar": {"title": "x"}, "fr": {"title": "y"}},
	}
	if got := r.DetermineLocaleCode(rec, "en", false); got != "ar" {
		t.Errorf("record default: got %q, want ar", got)
	}

	rec.DefaultLocale = ""
	if got := r.DetermineLocaleCode(rec, "en", false); got != "" {
		t.Errorf("no default, strict: got %q, want empty", got)
	}
	if got := r.DetermineLocaleCode(rec, "en", true); got != "ar" {
		t.Errorf("extended: got %q, want first code ar", got)
	}

	r.SetDefault("fr")
	if got := r.DetermineLocaleCode(rec, "en", false); got != "fr" {
		t.Errorf("app default: got %q, want fr", got)
	}
	if got := r.DetermineLocaleCode(nil, "en", true); got != "" {
		t.Errorf("nil record: got %q", got)
	}
}

func TestPropertyAndString(t *testing.T) {
	r, _ := testResolver(t)
	rec := law()

	if v, ok := r.Property(rec, "title", false); !ok || v != "Constitution" {
		t.Errorf("Property = %v, %v", v, ok)
	}
	r.SetCurrent("ar")
	if got := r.String(rec, "text", false); got != "" {
		t.Errorf("ar has no text: got %q", got)
	}
	if got := r.String(rec, "title", false); got != "الدستور" {
		t.Errorf("ar title = %q", got)
	}

	onlyEn := &Record{Locales: map[string]Projection{"en": {"text": "body"}}}
	if got := r.String(onlyEn, "text", false); got != "" {
		t.Errorf("strict lookup should miss, got %q", got)
	}
	if got := r.String(onlyEn, "text", true); got != "body" {
		t.Errorf("extended lookup = %q, want body", got)
	}
	if got := r.String(nil, "title", true); got != "" {
		t.Errorf("nil record = %q", got)
	}
}

func TestExtract(t *testing.T) {
	r, _ := testResolver(t)
	r.SetDefault("ar")
	r.SetCurrent("fr")
	p := r.Extract(law())
	if p.String("title") != "الدستور" {
		t.Errorf("Extract fell back to %v", p)
	}
	if len(r.Extract(nil)) != 0 {
		t.Error("nil record should extract empty projection")
	}
}

func TestLocalesAndSetLocales(t *testing.T) {
	r, bus := testResolver(t)
	all := r.Locales()
	if len(all) != 2 || all[0].Code != "ar" || all[1].Code != "en" || all[1].Name != "English" {
		t.Fatalf("Locales() = %+v", all)
	}

	notified := 0
	bus.Subscribe(events.TopicLocaleNewList, func(events.Event) { notified++ })
	list := r.SetLocales([]string{"en", "de"})
	if len(list) != 1 || list[0].Code != "en" {
		t.Errorf("SetLocales = %+v", list)
	}
	if notified != 1 {
		t.Errorf("new-list notifications = %d", notified)
	}
	if got := r.Locales(); len(got) != 1 {
		t.Errorf("Locales() after SetLocales = %+v", got)
	}
}

func TestIsValidAndLocaleDir(t *testing.T) {
	r, _ := testResolver(t)
	if !r.IsValid("ar") || r.IsValid("") || r.IsValid("de") {
		t.Error("IsValid mismatch")
	}
	r.SetCurrent("ar")
	if got := r.LocaleDir(law(), false); got != "rtl" {
		t.Errorf("LocaleDir = %q", got)
	}
}

func TestOnChangeCancel(t *testing.T) {
	r, _ := testResolver(t)
	calls := 0
	cancel := r.OnChange(func(Locale) { calls++ })
	r.SetCurrent("ar")
	cancel()
	r.SetCurrent("en")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
