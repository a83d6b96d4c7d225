// Package locale resolves localized properties of records and tracks the
// application's current and default locale.
//
// Typical use: at startup set the default locale, which is consulted when a
// record lacks the current one.
//
//	r.SetDefault("en")
//	title := r.String(law, "title", false) // current locale only
//	title = r.String(law, "title", true)   // any available locale
package locale

import (
	"sync"

	"github.com/govright/platform-services/internal/events"
)

// Catalog keys holding a language's display name and text direction.
const (
	KeyName      = "locale.name"
	KeyDirection = "locale.direction"
)

// Locale describes a language available to the application.
type Locale struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

// Resolver is the locale helper.
type Resolver struct {
	catalog *Catalog
	bus     *events.Bus

	mu          sync.RWMutex
	current     Locale
	defaultCode string
	list        []Locale
}

// NewResolver creates a resolver bound to catalog; change notifications are
// published on bus.
func NewResolver(catalog *Catalog, bus *events.Bus) *Resolver {
	r := &Resolver{catalog: catalog, bus: bus}
	r.current = r.describe(catalog.CurrentLanguage())
	return r
}

// describe fills name and direction from the catalog; languages without
// those strings leave them empty.
func (r *Resolver) describe(code string) Locale {
	l := Locale{Code: code}
	l.Name, _ = r.catalog.Lookup(code, KeyName, 0)
	l.Dir, _ = r.catalog.Lookup(code, KeyDirection, 0)
	return l
}

// Current returns the current locale.
func (r *Resolver) Current() Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent switches the current locale. Subscribers of
// events.TopicLocaleChanged are notified only when the code changes.
func (r *Resolver) SetCurrent(code string) Locale {
	r.catalog.SetCurrentLanguage(code)

	r.mu.Lock()
	old := r.current.Code
	r.current = r.describe(r.catalog.CurrentLanguage())
	cur := r.current
	r.mu.Unlock()

	if old != cur.Code && r.bus != nil {
		r.bus.Publish(events.TopicLocaleChanged, cur)
	}
	return cur
}

// SetDefault sets the application default locale used by lookups.
func (r *Resolver) SetDefault(code string) {
	r.mu.Lock()
	r.defaultCode = code
	r.mu.Unlock()
}

// Default returns the application default locale code.
func (r *Resolver) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultCode
}

// GetString translates id into the current locale.
func (r *Resolver) GetString(id string, data map[string]any) string {
	return r.catalog.GetString(id, data)
}

// LookupString returns the translation of id in code, or "" when absent.
func (r *Resolver) LookupString(code, id string, n int) string {
	s, _ := r.catalog.Lookup(code, id, n)
	return s
}

// Locales returns the locale list set by SetLocales, or every catalog
// language when no list was set.
func (r *Resolver) Locales() []Locale {
	r.mu.RLock()
	list := r.list
	r.mu.RUnlock()
	if len(list) > 0 {
		return append([]Locale(nil), list...)
	}
	codes := r.catalog.Languages()
	out := make([]Locale, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.describe(code))
	}
	return out
}

// SetLocales restricts the locale list to codes present in the catalog and
// publishes events.TopicLocaleNewList.
func (r *Resolver) SetLocales(codes []string) []Locale {
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	var out []Locale
	for _, code := range r.catalog.Languages() {
		if _, ok := wanted[code]; ok {
			out = append(out, r.describe(code))
		}
	}

	r.mu.Lock()
	r.list = out
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(events.TopicLocaleNewList, append([]Locale(nil), out...))
	}
	return out
}

// IsValid reports whether code is one of the catalog languages.
func (r *Resolver) IsValid(code string) bool {
	return code != "" && r.catalog.Has(code)
}

// Extract returns the record's projection for the current locale, falling
// back to the application default. A nil record yields an empty projection.
func (r *Resolver) Extract(rec *Record) Projection {
	if rec == nil || rec.Locales == nil {
		return Projection{}
	}
	code := r.Current().Code
	if !rec.Has(code) {
		code = r.Default()
	}
	return rec.Get(code)
}

// Property returns the localized value of key. When extended is false only
// the current locale, the record's default locale, and the application
// default are checked; when true any available locale is accepted.
func (r *Resolver) Property(rec *Record, key string, extended bool) (any, bool) {
	code := r.DetermineLocaleCode(rec, r.Current().Code, extended)
	if code == "" {
		return nil, false
	}
	v, ok := rec.Locales[code][key]
	return v, ok
}

// String is Property rendered as text; missing values yield "".
func (r *Resolver) String(rec *Record, key string, extended bool) string {
	code := r.DetermineLocaleCode(rec, r.Current().Code, extended)
	if code == "" {
		return ""
	}
	return rec.Locales[code].String(key)
}

// LocaleDir returns the text direction of the locale determined for rec.
func (r *Resolver) LocaleDir(rec *Record, extended bool) string {
	code := r.DetermineLocaleCode(rec, r.Current().Code, extended)
	if code == "" {
		return ""
	}
	return r.LookupString(code, KeyDirection, 0)
}

// DetermineLocaleCode picks the locale of rec to read from. It returns code
// when present, else the record default, else the application default. In
// extended mode a record lacking the application default falls back to its
// first code in lexicographic order. "" means nothing matched.
func (r *Resolver) DetermineLocaleCode(rec *Record, code string, extended bool) string {
	if rec == nil || rec.Locales == nil {
		return ""
	}
	if rec.Has(code) {
		return code
	}
	if rec.DefaultLocale != "" && rec.Has(rec.DefaultLocale) {
		return rec.DefaultLocale
	}

	fallback := r.Default()
	if extended && !rec.Has(fallback) {
		if codes := rec.Codes(); len(codes) > 0 {
			fallback = codes[0]
		}
	}
	if !rec.Has(fallback) {
		return ""
	}
	return fallback
}

// OnChange registers fn for locale changes and returns its cancel function.
func (r *Resolver) OnChange(fn func(Locale)) func() {
	if r.bus == nil {
		return func() {}
	}
	return r.bus.Subscribe(events.TopicLocaleChanged, func(e events.Event) {
		l, _ := e.Data.(Locale)
		fn(l)
	})
}
