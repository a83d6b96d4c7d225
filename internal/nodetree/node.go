package nodetree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/govright/platform-services/internal/locale"
)

// ID identifies a node within a document. Source documents may carry ids as
// JSON strings or numbers; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a string or a number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("nodetree: id must be a string or number: %s", b)
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (id *ID) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("nodetree: id must be a scalar at line %d", n.Line)
	}
	*id = ID(n.Value)
	return nil
}

// Node is an entry in a document hierarchy. The lower block of fields is
// derived by the decorator and overwritten on every pass.
type Node struct {
	ID       ID             `json:"id" yaml:"id"`
	Abstract bool           `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Original *locale.Record `json:"original,omitempty" yaml:"original,omitempty"`
	Nodes    []*Node        `json:"nodes" yaml:"nodes"`

	Depth int    `json:"depth" yaml:"-"`
	Title string `json:"title,omitempty" yaml:"-"`
	Text  string `json:"text,omitempty" yaml:"-"`
	Href  string `json:"href,omitempty" yaml:"-"`
	Open  bool   `json:"open,omitempty" yaml:"-"`
}

// Document is the root container of a node tree, e.g. a law or a discussion.
// It is itself localizable (document title and description).
type Document struct {
	ID            string `json:"id,omitempty" yaml:"id,omitempty"`
	locale.Record `yaml:",inline"`
	Nodes         []*Node `json:"nodes" yaml:"nodes"`
}
