package nodetree

// NodeView is a flat, cycle-free description of a decorated node.
type NodeView struct {
	ID       ID     `json:"id"`
	Abstract bool   `json:"abstract,omitempty"`
	Depth    int    `json:"depth"`
	Title    string `json:"title"`
	Text     string `json:"text,omitempty"`
	Href     string `json:"href"`
	Open     bool   `json:"open,omitempty"`
	ParentID *ID    `json:"parentId"`
	PrevID   *ID    `json:"prevId"`
	NextID   *ID    `json:"nextId"`
	Children []ID   `json:"children"`
}

// Outline is the nested display form of a node without its original record.
type Outline struct {
	ID       ID        `json:"id"`
	Abstract bool      `json:"abstract,omitempty"`
	Depth    int       `json:"depth"`
	Title    string    `json:"title"`
	Href     string    `json:"href"`
	Open     bool      `json:"open,omitempty"`
	Nodes    []Outline `json:"nodes"`
}

func idOf(n *Node) *ID {
	if n == nil {
		return nil
	}
	id := n.ID
	return &id
}

// View describes n together with its structural neighbours.
func (t *Tree) View(n *Node) NodeView {
	children := make([]ID, 0, len(n.Nodes))
	for _, c := range n.Nodes {
		children = append(children, c.ID)
	}
	return NodeView{
		ID:       n.ID,
		Abstract: n.Abstract,
		Depth:    n.Depth,
		Title:    n.Title,
		Text:     n.Text,
		Href:     n.Href,
		Open:     n.Open,
		ParentID: idOf(t.Parent(n)),
		PrevID:   idOf(t.Prev(n)),
		NextID:   idOf(t.Next(n)),
		Children: children,
	}
}

// Outline returns the nested outline of the top-level nodes.
func (t *Tree) Outline() []Outline {
	return outline(t.doc.Nodes)
}

func outline(nodes []*Node) []Outline {
	out := make([]Outline, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Outline{
			ID:       n.ID,
			Abstract: n.Abstract,
			Depth:    n.Depth,
			Title:    n.Title,
			Href:     n.Href,
			Open:     n.Open,
			Nodes:    outline(n.Nodes),
		})
	}
	return out
}
