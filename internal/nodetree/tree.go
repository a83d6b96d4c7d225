// Package nodetree walks the node tree of a document (law or discussion) and
// decorates every node with commonly used data: depth, localized title and
// text, a navigation link, and its place in the linear reading order.
//
// Nodes are mutated in place. Structural relations (parent, prev, next) are
// kept inside the Tree as arena indices and exposed through accessors.
//
//	tree := nodetree.New(law, resolver, nodetree.WithMaxTitleLength(25))
//	defer tree.Close()
//	n := tree.FindByID("node-id")
package nodetree

import (
	"github.com/govright/platform-services/internal/locale"
)

const none = -1

// ellipsis terminates truncated titles.
const ellipsis = "…"

type link struct {
	parent int
	prev   int
	next   int
}

// Tree is the index produced by decorating a document.
type Tree struct {
	doc      *Document
	src      LocaleSource
	settings settings

	// nodes holds every visited node in pre-order, abstract ones included.
	// links[i] describes nodes[i].
	nodes []*Node
	links []link
	byID  map[ID]int
	pos   map[*Node]int

	cancel func()
}

// New decorates doc and returns its index. src supplies localized values and
// locale-change notifications; with repopulation enabled the tree stays
// subscribed until Close.
func New(doc *Document, src LocaleSource, opts ...Option) *Tree {
	s := settings{
		populateNodeText: true,
		repopulate:       true,
		title:            localeTitle{src: src},
		href:             TemplateHref(DefaultHrefTemplate),
	}
	for _, opt := range opts {
		opt(&s)
	}

	t := &Tree{
		doc:      doc,
		src:      src,
		settings: s,
		byID:     make(map[ID]int),
		pos:      make(map[*Node]int),
	}

	t.walk(doc.Nodes, none, 0)
	// Abstract nodes are skipped in the reading order, so the chain is
	// threaded after the walk has fixed the visiting order.
	t.thread()

	if s.repopulate && src != nil {
		t.cancel = src.OnChange(func(locale.Locale) { t.Repopulate() })
	}
	return t
}

func (t *Tree) walk(children []*Node, parent, depth int) {
	for _, n := range children {
		i := len(t.nodes)
		t.nodes = append(t.nodes, n)
		t.links = append(t.links, link{parent: parent, prev: none, next: none})
		t.byID[n.ID] = i
		t.pos[n] = i

		n.Depth = depth
		t.populate(n)

		t.walk(n.Nodes, i, depth+1)
	}
}

func (t *Tree) thread() {
	prev := none
	for i, n := range t.nodes {
		if n.Abstract {
			continue
		}
		t.links[i].prev = prev
		t.links[i].next = none
		if prev != none {
			t.links[prev].next = i
		}
		prev = i
	}
}

func (t *Tree) populate(n *Node) {
	n.Title = t.NodeTitle(n, n.Depth)
	n.Href = t.NodeHref(n)
	if t.settings.populateNodeText {
		n.Text = t.nodeText(n)
	}
}

func (t *Tree) nodeText(n *Node) string {
	if t.src == nil {
		return ""
	}
	return t.src.String(n.Original, "text", true)
}

// Repopulate re-resolves title, link, and (when enabled) text of every node.
// Depth and structural links are left untouched.
func (t *Tree) Repopulate() {
	for _, n := range t.nodes {
		t.populate(n)
	}
}

// Close releases the locale-change subscription.
func (t *Tree) Close() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Document returns the decorated document.
func (t *Tree) Document() *Document {
	return t.doc
}

// FindByID returns the node with the given id, or nil. Abstract nodes are
// included. With duplicate ids the last visited node wins.
func (t *Tree) FindByID(id ID) *Node {
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	return t.nodes[i]
}

// NodeTitle resolves n's title and applies the length limit.
func (t *Tree) NodeTitle(n *Node, depth int) string {
	var title string
	if t.settings.title != nil {
		title = t.settings.title.ResolveTitle(n, t.doc, depth)
	}
	return truncate(title, t.settings.maxTitleLength)
}

// NodeHref resolves n's navigation link.
func (t *Tree) NodeHref(n *Node) string {
	if t.settings.href == nil {
		return ""
	}
	return t.settings.href.ResolveHref(n, t.doc)
}

// OpenNodeParents marks every ancestor of n that has an original record as
// open, stopping at the first structural ancestor.
func (t *Tree) OpenNodeParents(n *Node) {
	for p := t.Parent(n); p != nil && p.Original != nil; p = t.Parent(p) {
		p.Open = true
	}
}

// Parent returns n's parent, or nil for top-level nodes and unknown nodes.
func (t *Tree) Parent(n *Node) *Node {
	return t.at(n, func(l link) int { return l.parent })
}

// Prev returns the preceding non-abstract node in reading order.
func (t *Tree) Prev(n *Node) *Node {
	return t.at(n, func(l link) int { return l.prev })
}

// Next returns the following non-abstract node in reading order.
func (t *Tree) Next(n *Node) *Node {
	return t.at(n, func(l link) int { return l.next })
}

func (t *Tree) at(n *Node, pick func(link) int) *Node {
	i, ok := t.pos[n]
	if !ok {
		return nil
	}
	j := pick(t.links[i])
	if j == none {
		return nil
	}
	return t.nodes[j]
}

// Nodes returns every visited node in pre-order.
func (t *Tree) Nodes() []*Node {
	return append([]*Node(nil), t.nodes...)
}

// Chain returns the non-abstract nodes in reading order.
func (t *Tree) Chain() []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if !n.Abstract {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of visited nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func truncate(s string, limit int) string {
	if limit <= 0 || s == "" {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + ellipsis
}
