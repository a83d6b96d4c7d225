package locale

import (
	"fmt"
	"sort"
)

// Projection is the locale-specific view of a record, e.g. {title, text}.
type Projection map[string]any

// Record is a localizable entity: a mapping from locale code to projection,
// plus an optional default locale code.
type Record struct {
	DefaultLocale string                `json:"defaultLocale,omitempty" yaml:"defaultLocale,omitempty"`
	Locales       map[string]Projection `json:"locales,omitempty" yaml:"locales,omitempty"`
}

// Has reports whether the record carries a projection for code.
// A nil record has no projections.
func (r *Record) Has(code string) bool {
	if r == nil || code == "" {
		return false
	}
	p, ok := r.Locales[code]
	return ok && p != nil
}

// Get returns the projection for code, or nil.
func (r *Record) Get(code string) Projection {
	if r == nil {
		return nil
	}
	return r.Locales[code]
}

// Codes returns the available locale codes in lexicographic order.
func (r *Record) Codes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Locales))
	for code, p := range r.Locales {
		if p != nil {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// String renders a projection value as display text.
func (p Projection) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
