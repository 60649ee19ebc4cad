package doctree

import (
	"cmp"
	"slices"
)

// ChunkMetadata describes where a chunk came from and the context around it.
type ChunkMetadata struct {
	DocName     string   `json:"doc_name"`
	Headings    []string `json:"headings"` // Ancestor heading path, outermost first
	Caption     string   `json:"caption"`  // Empty when the chunk has no caption
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	Index       int      `json:"index"`
}

// Chunk is a text fragment ready for embedding or retrieval.
type Chunk struct {
	Text string        `json:"text"`
	Meta ChunkMetadata `json:"meta"`
}

// NewChunk builds a chunk, copying the heading path so the caller's slice is not shared.
func NewChunk(text string, meta ChunkMetadata) Chunk {
	meta.Headings = CopyHeadings(meta.Headings)
	return Chunk{Text: text, Meta: meta}
}

// Equal reports structural equality. A nil heading path equals an empty one.
func (c Chunk) Equal(o Chunk) bool {
	return c.Text == o.Text &&
		c.Meta.DocName == o.Meta.DocName &&
		slices.Equal(c.Meta.Headings, o.Meta.Headings) &&
		c.Meta.Caption == o.Meta.Caption &&
		c.Meta.StartOffset == o.Meta.StartOffset &&
		c.Meta.EndOffset == o.Meta.EndOffset &&
		c.Meta.Index == o.Meta.Index
}

// SameContext reports whether two chunks share heading path and caption.
func (c Chunk) SameContext(o Chunk) bool {
	return slices.Equal(c.Meta.Headings, o.Meta.Headings) && c.Meta.Caption == o.Meta.Caption
}

// CompareChunks orders chunks by index.
func CompareChunks(a, b Chunk) int {
	return cmp.Compare(a.Meta.Index, b.Meta.Index)
}

// CopyHeadings returns a fresh, non-nil copy of a heading path.
func CopyHeadings(h []string) []string {
	out := make([]string, len(h))
	copy(out, h)
	return out
}
