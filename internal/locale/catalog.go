package locale

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Catalog is the translation string table. Message files are named
// messages.<code>.<ext> with ext one of toml, yaml, yml, json.
type Catalog struct {
	bundle *i18n.Bundle

	mu      sync.RWMutex
	codes   map[string]language.Tag
	current string
}

// NewCatalog creates an empty catalog whose bundle falls back to fallback
// (English when fallback is empty or unparsable).
func NewCatalog(fallback string) *Catalog {
	tag := language.English
	if fallback != "" {
		if t, err := language.Parse(fallback); err == nil {
			tag = t
		}
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	return &Catalog{
		bundle: bundle,
		codes:  make(map[string]language.Tag),
	}
}

// LoadDir loads every message file found directly under dir.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("locale: read catalog dir: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isMessageFile(e.Name()) {
			continue
		}
		if err := c.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFile loads a single message file.
func (c *Catalog) LoadFile(path string) error {
	mf, err := c.bundle.LoadMessageFile(path)
	if err != nil {
		return fmt.Errorf("locale: load %s: %w", path, err)
	}
	c.mu.Lock()
	c.codes[mf.Tag.String()] = mf.Tag
	c.mu.Unlock()
	return nil
}

func isMessageFile(name string) bool {
	if !strings.HasPrefix(name, "messages.") {
		return false
	}
	switch filepath.Ext(name) {
	case ".toml", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// AddMessages registers id → translation pairs for code.
func (c *Catalog) AddMessages(code string, messages map[string]string) error {
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("locale: parse code %q: %w", code, err)
	}
	msgs := make([]*i18n.Message, 0, len(messages))
	for id, other := range messages {
		msgs = append(msgs, &i18n.Message{ID: id, Other: other})
	}
	if err := c.bundle.AddMessages(tag, msgs...); err != nil {
		return fmt.Errorf("locale: add messages for %s: %w", code, err)
	}
	c.mu.Lock()
	c.codes[tag.String()] = tag
	c.mu.Unlock()
	return nil
}

// Languages returns the codes that carry translations, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.codes))
	for code := range c.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Has reports whether code carries translations.
func (c *Catalog) Has(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.codes[code]
	return ok
}

// SetCurrentLanguage changes the language used by GetString.
func (c *Catalog) SetCurrentLanguage(code string) {
	c.mu.Lock()
	c.current = code
	c.mu.Unlock()
}

// CurrentLanguage returns the active language code.
func (c *Catalog) CurrentLanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// GetString translates id into the current language. Missing translations
// yield id itself. data feeds template placeholders such as {{.Name}}.
func (c *Catalog) GetString(id string, data map[string]any) string {
	loc := i18n.NewLocalizer(c.bundle, c.CurrentLanguage())
	s, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:      id,
		DefaultMessage: &i18n.Message{ID: id, Other: id},
		TemplateData:   data,
	})
	if err != nil || s == "" {
		return id
	}
	return s
}

// Lookup returns the translation of id in exactly code, without falling
// back to other languages. n selects the plural form when positive.
func (c *Catalog) Lookup(code, id string, n int) (string, bool) {
	c.mu.RLock()
	tag, ok := c.codes[code]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	loc := i18n.NewLocalizer(c.bundle, tag.String())
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if n > 0 {
		cfg.PluralCount = n
	}
	s, got, err := loc.LocalizeWithTag(cfg)
	if err != nil && n > 0 {
		// Messages without plural forms only carry "other".
		s, got, err = loc.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: id})
	}
	if err != nil || got.String() != tag.String() {
		return "", false
	}
	return s, true
}
