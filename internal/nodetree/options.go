package nodetree

import (
	"strings"

	"github.com/govright/platform-services/internal/locale"
)

// DefaultHrefTemplate links each node to its corpus API resource. {id} is
// replaced with the node id.
const DefaultHrefTemplate = "http://corpus.govright.org/api/Nodes/{id}?filter[include][original]"

// TitleResolver computes a node's raw title before truncation.
type TitleResolver interface {
	ResolveTitle(n *Node, doc *Document, depth int) string
}

// HrefResolver computes a node's navigation link.
type HrefResolver interface {
	ResolveHref(n *Node, doc *Document) string
}

// TitleResolverFunc adapts a function to TitleResolver.
type TitleResolverFunc func(n *Node, doc *Document, depth int) string

// ResolveTitle calls f.
func (f TitleResolverFunc) ResolveTitle(n *Node, doc *Document, depth int) string {
	return f(n, doc, depth)
}

// HrefResolverFunc adapts a function to HrefResolver.
type HrefResolverFunc func(n *Node, doc *Document) string

// ResolveHref calls f.
func (f HrefResolverFunc) ResolveHref(n *Node, doc *Document) string {
	return f(n, doc)
}

// LocaleSource is the subset of the locale resolver the decorator needs.
type LocaleSource interface {
	String(rec *locale.Record, key string, extended bool) string
	OnChange(fn func(locale.Locale)) (cancel func())
}

// localeTitle reads the original's title in the current locale only.
type localeTitle struct{ src LocaleSource }

func (l localeTitle) ResolveTitle(n *Node, _ *Document, _ int) string {
	return l.src.String(n.Original, "title", false)
}

// TemplateHref substitutes {id} in a URL template.
type TemplateHref string

// ResolveHref implements HrefResolver.
func (t TemplateHref) ResolveHref(n *Node, _ *Document) string {
	return strings.ReplaceAll(string(t), "{id}", string(n.ID))
}

type settings struct {
	maxTitleLength   int
	populateNodeText bool
	repopulate       bool
	title            TitleResolver
	href             HrefResolver
}

// Option customizes a Tree.
type Option func(*settings)

// WithMaxTitleLength truncates titles longer than n characters to n-1
// characters plus an ellipsis. Characters are Unicode code points, so a
// character outside the Basic Multilingual Plane counts as one. Zero
// disables truncation.
func WithMaxTitleLength(n int) Option {
	return func(s *settings) {
		if n < 0 {
			n = 0
		}
		s.maxTitleLength = n
	}
}

// WithNodeText enables or disables text resolution. Enabled by default.
func WithNodeText(enabled bool) Option {
	return func(s *settings) { s.populateNodeText = enabled }
}

// WithRepopulateOnLocaleChange enables or disables re-resolution of titles,
// links, and text when the locale changes. Enabled by default.
func WithRepopulateOnLocaleChange(enabled bool) Option {
	return func(s *settings) { s.repopulate = enabled }
}

// WithTitleResolver replaces the default title strategy.
func WithTitleResolver(r TitleResolver) Option {
	return func(s *settings) {
		if r != nil {
			s.title = r
		}
	}
}

// WithHrefResolver replaces the default link strategy.
func WithHrefResolver(r HrefResolver) Option {
	return func(s *settings) {
		if r != nil {
			s.href = r
		}
	}
}

// WithHrefTemplate links nodes through a URL template containing {id}.
func WithHrefTemplate(tmpl string) Option {
	return func(s *settings) {
		if tmpl != "" {
			s.href = TemplateHref(tmpl)
		}
	}
}

// Settings is the serializable form of the decorator options.
type Settings struct {
	MaxTitleLength           int    `yaml:"max_title_length" env:"TREE_MAX_TITLE_LENGTH"`
	PopulateNodeText         bool   `yaml:"populate_node_text" env:"TREE_POPULATE_NODE_TEXT"`
	RepopulateOnLocaleChange bool   `yaml:"repopulate_on_locale_change" env:"TREE_REPOPULATE_ON_LOCALE_CHANGE"`
	HrefTemplate             string `yaml:"href_template" env:"TREE_HREF_TEMPLATE"`
}

// DefaultSettings mirrors the decorator defaults.
func DefaultSettings() Settings {
	return Settings{
		PopulateNodeText:         true,
		RepopulateOnLocaleChange: true,
		HrefTemplate:             DefaultHrefTemplate,
	}
}

// Options converts s into decorator options.
func (s Settings) Options() []Option {
	return []Option{
		WithMaxTitleLength(s.MaxTitleLength),
		WithNodeText(s.PopulateNodeText),
		WithRepopulateOnLocaleChange(s.RepopulateOnLocaleChange),
		WithHrefTemplate(s.HrefTemplate),
	}
}
