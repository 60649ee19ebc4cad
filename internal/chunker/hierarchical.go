package chunker

import (
	"iter"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
)

// Hierarchical emits one chunk per non-empty node in reading order.
type Hierarchical struct {
	// MergeListItems coalesces consecutive list items into a single chunk.
	MergeListItems bool
}

// NewHierarchical returns a structural chunker with list merging enabled.
func NewHierarchical() *Hierarchical {
	return &Hierarchical{MergeListItems: true}
}

func (h *Hierarchical) Chunk(doc *doctree.Document) iter.Seq[doctree.Chunk] {
	return func(yield func(doctree.Chunk) bool) {
		if doc == nil {
			return
		}
		w := &walker{
			docName:    doc.Name,
			mergeLists: h.MergeListItems,
			yield:      yield,
		}
		for _, n := range doc.Nodes {
			if !w.visit(n) {
				return
			}
		}
		w.flushList()
	}
}

func (h *Hierarchical) Contextualize(c doctree.Chunk) string {
	return Contextualize(c)
}

type heading struct {
	level int
	text  string
}

// listRun accumulates consecutive list items before they are emitted.
type listRun struct {
	text     strings.Builder
	start    int
	end      int
	headings []string
	caption  string
	depth    int
}

// walker holds the state of one structural pass over a document.
type walker struct {
	docName    string
	mergeLists bool
	yield      func(doctree.Chunk) bool

	cursor  int
	index   int
	stack   []heading
	run     *listRun
	stopped bool
}

// visit processes one node. It returns false once the consumer stops.
// A run of list items ends at any other node and whenever the nesting depth
// changes, so only siblings of one list are merged.
func (w *walker) visit(n doctree.Node) bool {
	if w.mergeLists && n.Kind == doctree.KindListItem {
		if !n.HasText() {
			return true
		}
		if w.run != nil && w.run.depth != n.Depth && !w.flushList() {
			return false
		}
		start, end := w.place(n)
		if w.run == nil {
			w.run = &listRun{start: start, headings: w.path(), caption: n.Caption, depth: n.Depth}
		} else {
			w.run.text.WriteByte('\n')
		}
		w.run.text.WriteString(n.Text)
		w.run.end = end
		return true
	}

	if !w.flushList() {
		return false
	}
	if !n.HasText() {
		return true
	}

	start, end := w.place(n)
	if n.Kind == doctree.KindHeading {
		level := max(n.Level, 1)
		w.popTo(level)
		ok := w.emit(n.Text, w.path(), n.Caption, start, end)
		w.stack = append(w.stack, heading{level: level, text: strings.TrimSpace(n.Text)})
		return ok
	}
	return w.emit(n.Text, w.path(), n.Caption, start, end)
}

// place resolves the byte span of a node. Nodes without a source position are
// laid out end to end with a one-byte separator.
func (w *walker) place(n doctree.Node) (start, end int) {
	if p := n.Position; p != nil {
		w.cursor = p.EndOffset
		return p.StartOffset, p.EndOffset
	}
	start = w.cursor
	end = start + len(n.Text)
	w.cursor = end + 1
	return start, end
}

// popTo drops headings at or below level.
func (w *walker) popTo(level int) {
	for len(w.stack) > 0 && w.stack[len(w.stack)-1].level >= level {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

func (w *walker) path() []string {
	out := make([]string, len(w.stack))
	for i, h := range w.stack {
		out[i] = h.text
	}
	return out
}

func (w *walker) flushList() bool {
	if w.run == nil || w.stopped {
		return !w.stopped
	}
	run := w.run
	w.run = nil
	return w.emit(run.text.String(), run.headings, run.caption, run.start, run.end)
}

func (w *walker) emit(text string, headings []string, caption string, start, end int) bool {
	if w.stopped {
		return false
	}
	c := doctree.NewChunk(text, doctree.ChunkMetadata{
		DocName:     w.docName,
		Headings:    headings,
		Caption:     caption,
		StartOffset: start,
		EndOffset:   end,
		Index:       w.index,
	})
	w.index++
	if !w.yield(c) {
		w.stopped = true
		return false
	}
	return true
}
