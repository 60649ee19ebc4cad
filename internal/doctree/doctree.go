package doctree

import "strings"

// Kind tags the structural role of a node.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindText      Kind = "text"
	KindList      Kind = "list"
	KindListItem  Kind = "list_item"
	KindTable     Kind = "table"
	KindTableRow  Kind = "table_row"
	KindTableCell Kind = "table_cell"
)

// Position is the source span of a node. Offsets are bytes, lines are 1-based.
type Position struct {
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
	StartLine   int `json:"start_line"`
	EndLine     int `json:"end_line"`
}

// Node is a single typed element of a document in reading order.
type Node struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`     // Empty for container nodes (List, Table)
	Level    int       `json:"level,omitempty"`    // Heading level, 1-based
	Caption  string    `json:"caption,omitempty"`  // Table/figure caption
	Depth    int       `json:"depth,omitempty"`    // List nesting of a ListItem, 1 for a top-level list
	Position *Position `json:"position,omitempty"` // nil when the parser has no source offsets
}

// HasText reports whether the node carries non-whitespace text.
func (n Node) HasText() bool {
	return strings.TrimSpace(n.Text) != ""
}

// Document is the uniform representation every parser produces.
type Document struct {
	Name     string         `json:"name"`
	Nodes    []Node         `json:"nodes"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// New returns an empty document with the given name.
func New(name string) *Document {
	return &Document{
		Name:     name,
		Nodes:    []Node{},
		Metadata: map[string]any{},
	}
}

// Add appends a node.
func (d *Document) Add(n Node) {
	d.Nodes = append(d.Nodes, n)
}

// SetMeta records a metadata value, allocating the map on first use.
func (d *Document) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata[key] = value
}

// TextNodes counts nodes that would produce a chunk.
func (d *Document) TextNodes() int {
	n := 0
	for _, node := range d.Nodes {
		if node.HasText() {
			n++
		}
	}
	return n
}

// PlainText joins the text of every node with newlines.
func (d *Document) PlainText() string {
	var sb strings.Builder
	for _, n := range d.Nodes {
		if !n.HasText() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(n.Text)
	}
	return sb.String()
}
