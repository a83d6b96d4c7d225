// Package embedding reads the parameters a host page passes to an embedded
// application through data-* attributes on the application root element.
//
//	<div ng-app="law" data-law-id="7" data-query="tab=votes&sort=new"></div>
//
// yields {isEmbeddedMode: true, ngApp: ..., lawId: "7", query: {tab: votes, sort: new}}.
package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// KeyEmbedded and KeyQuery are the reserved parameter names.
const (
	KeyEmbedded = "isEmbeddedMode"
	KeyQuery    = "query"
)

// Params maps parameter names to values: the embedded flag is a bool,
// query is decoded, everything else is the attribute text.
type Params map[string]any

// Embedded reports whether the application runs inside a host page.
func (p Params) Embedded() bool {
	v, _ := p[KeyEmbedded].(bool)
	return v
}

// String returns a text parameter.
func (p Params) String(key string) string {
	v, _ := p[key].(string)
	return v
}

var dashLetter = regexp.MustCompile(`-[a-z]`)

// camelKey turns data-law-id into lawId.
func camelKey(attr string) string {
	key := strings.Replace(attr, "data-", "", 1)
	return dashLetter.ReplaceAllStringFunc(key, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}

// FromHTML parses a page and returns its application root: the first
// element carrying ng-app or data-ng-app, else the html element.
func FromHTML(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("embedding: parse html: %w", err)
	}
	if n := find(doc, isAppRoot); n != nil {
		return n, nil
	}
	if n := find(doc, func(n *html.Node) bool { return n.Data == "html" }); n != nil {
		return n, nil
	}
	return nil, errors.New("embedding: no root element")
}

func isAppRoot(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "ng-app" || a.Key == "data-ng-app" {
			return true
		}
	}
	return false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

// Read extracts the parameters of root. Outside embedded mode only the
// embedded flag is set.
func Read(root *html.Node) (Params, error) {
	p := Params{KeyEmbedded: !strings.EqualFold(root.Data, "html")}
	if p.Embedded() {
		for _, a := range root.Attr {
			if strings.HasPrefix(a.Key, "data-") {
				p[camelKey(a.Key)] = a.Val
			}
		}
	}
	if q := p.String(KeyQuery); q != "" {
		v, err := parseQuery(q)
		if err != nil {
			return nil, err
		}
		p[KeyQuery] = v
	}
	return p, nil
}

// parseQuery decodes JSON objects and arrays, and k=v&k2=v2 lists
// otherwise. Values of the list form are not unescaped.
func parseQuery(q string) (any, error) {
	if strings.HasPrefix(q, "{") || strings.HasPrefix(q, "[") {
		var v any
		if err := json.Unmarshal([]byte(q), &v); err != nil {
			return nil, fmt.Errorf("embedding: decode query: %w", err)
		}
		return v, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(q, "&") {
		kv := strings.Split(pair, "=")
		val := ""
		if len(kv) > 1 {
			val = kv[1]
		}
		out[kv[0]] = val
	}
	return out, nil
}

// Provider caches the parameters of one application root.
type Provider struct {
	mu     sync.Mutex
	root   *html.Node
	params Params
}

// SetAppRoot selects the root element parameters are read from.
func (p *Provider) SetAppRoot(root *html.Node) {
	p.mu.Lock()
	p.root = root
	p.mu.Unlock()
}

// SetAppRootHTML parses a page and selects its application root.
func (p *Provider) SetAppRootHTML(r io.Reader) error {
	root, err := FromHTML(r)
	if err != nil {
		return err
	}
	p.SetAppRoot(root)
	return nil
}

// Params reads the parameters on first use and returns the cached result
// afterwards, even if the root changes.
func (p *Provider) Params() (Params, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.params != nil {
		return p.params, nil
	}
	if p.root == nil {
		return nil, errors.New("embedding: app root not set")
	}
	params, err := Read(p.root)
	if err != nil {
		return nil, err
	}
	p.params = params
	return params, nil
}
