// Package parser decodes document packages: a JSON or YAML file holding a
// localizable document and its node hierarchy.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/govright/platform-services/internal/nodetree"
)

// Result holds a decoded package and its summary.
type Result struct {
	Document  *nodetree.Document
	NodeCount int
	// MaxDepth is the number of hierarchy levels; 0 for a document without nodes.
	MaxDepth int
	Title    string
}

// Format is the serialization of a package.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// Detect picks the format from the file extension, sniffing the content when
// the extension is unknown.
func Detect(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a document package. name selects the format and supplies the
// document id, as the file stem, when the package carries none.
func Parse(name string, data []byte) (*Result, error) {
	var doc nodetree.Document
	switch Detect(name, data) {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parser: decode json %s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parser: decode yaml %s: %w", name, err)
		}
	}

	if doc.ID == "" {
		doc.ID = DefaultID(name)
	}
	r := &Result{Document: &doc, Title: Title(&doc)}
	r.NodeCount, r.MaxDepth = measure(doc.Nodes, 1)
	return r, nil
}

// DefaultID derives a document id from a file name.
func DefaultID(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Title returns the document title in its default locale, else in the first
// locale that carries one.
func Title(doc *nodetree.Document) string {
	if t := doc.Get(doc.DefaultLocale).String("title"); t != "" {
		return t
	}
	for _, code := range doc.Codes() {
		if t := doc.Locales[code].String("title"); t != "" {
			return t
		}
	}
	return ""
}

func measure(nodes []*nodetree.Node, level int) (count, depth int) {
	for _, n := range nodes {
		count++
		if level > depth {
			depth = level
		}
		c, d := measure(n.Nodes, level+1)
		count += c
		if d > depth {
			depth = d
		}
	}
	return count, depth
}

// Input names one package to parse in a batch.
type Input struct {
	Name string
	Data []byte
}

// ParseAll decodes inputs concurrently with at most limit workers. Results
// keep the order of inputs; the first failure cancels the batch.
func ParseAll(ctx context.Context, inputs []Input, limit int) ([]*Result, error) {
	out := make([]*Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := Parse(in.Name, in.Data)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
