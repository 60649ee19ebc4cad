package chunker

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"github.com/dgallion1/docling/internal/tokenizer"
)

// Hybrid bounds chunks by a token budget. Structural chunks that do not fit
// are split on whitespace; adjacent chunks that share a heading path and
// caption are merged while the result still fits.
type Hybrid struct {
	tok           tokenizer.Tokenizer
	maxTokens     int
	mergePeers    bool
	structural    *Hierarchical
	log           *slog.Logger
	onIrreducible func(doctree.Chunk, int)
}

// HybridBuilder configures a Hybrid chunker.
type HybridBuilder struct {
	tok            tokenizer.Tokenizer
	maxTokens      int
	maxTokensSet   bool
	mergePeers     bool
	mergeListItems bool
	log            *slog.Logger
	onIrreducible  func(doctree.Chunk, int)
}

// NewHybridBuilder starts a builder with peer merging and list merging on.
func NewHybridBuilder() *HybridBuilder {
	return &HybridBuilder{mergePeers: true, mergeListItems: true}
}

func (b *HybridBuilder) Tokenizer(t tokenizer.Tokenizer) *HybridBuilder {
	b.tok = t
	return b
}

// MaxTokens overrides the tokenizer's budget.
func (b *HybridBuilder) MaxTokens(n int) *HybridBuilder {
	b.maxTokens = n
	b.maxTokensSet = true
	return b
}

func (b *HybridBuilder) MergePeers(on bool) *HybridBuilder {
	b.mergePeers = on
	return b
}

func (b *HybridBuilder) MergeListItems(on bool) *HybridBuilder {
	b.mergeListItems = on
	return b
}

func (b *HybridBuilder) Logger(log *slog.Logger) *HybridBuilder {
	b.log = log
	return b
}

// OnIrreducible registers a callback for chunks that still exceed the budget
// after splitting, usually a single oversized word. It is called just before
// the chunk is yielded, with the chunk as emitted and its contextualized
// token count.
func (b *HybridBuilder) OnIrreducible(fn func(c doctree.Chunk, tokens int)) *HybridBuilder {
	b.onIrreducible = fn
	return b
}

func (b *HybridBuilder) Build() (*Hybrid, error) {
	if b.tok == nil {
		return nil, fmt.Errorf("%w: tokenizer is required", ErrInvalidConfig)
	}
	maxTokens := b.tok.MaxTokens()
	if b.maxTokensSet {
		maxTokens = b.maxTokens
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidConfig, maxTokens)
	}
	log := b.log
	if log == nil {
		log = discardLogger()
	}
	return &Hybrid{
		tok:           b.tok,
		maxTokens:     maxTokens,
		mergePeers:    b.mergePeers,
		structural:    &Hierarchical{MergeListItems: b.mergeListItems},
		log:           log,
		onIrreducible: b.onIrreducible,
	}, nil
}

func (h *Hybrid) MaxTokens() int {
	return h.maxTokens
}

func (h *Hybrid) Contextualize(c doctree.Chunk) string {
	return Contextualize(c)
}

// Fits reports whether the contextualized chunk is within the token budget.
func (h *Hybrid) Fits(c doctree.Chunk) bool {
	return h.count(c) <= h.maxTokens
}

func (h *Hybrid) count(c doctree.Chunk) int {
	return h.tok.CountTokens(Contextualize(c))
}

func (h *Hybrid) Chunk(doc *doctree.Document) iter.Seq[doctree.Chunk] {
	return func(yield func(doctree.Chunk) bool) {
		if doc == nil {
			return
		}
		log := h.log.With("doc", doc.Name)
		chunks := h.split(h.structural.Chunk(doc))

		// Oversized chunks are reported as they are emitted so the callback
		// sees the final index.
		index := 0
		emit := func(p sized) bool {
			p.chunk.Meta.Index = index
			index++
			if p.over > 0 {
				h.irreducible(p.chunk, p.over, log)
			}
			return yield(p.chunk)
		}

		if !h.mergePeers {
			for p := range chunks {
				if !emit(p) {
					return
				}
			}
			return
		}

		var prev sized
		havePrev := false
		for cur := range chunks {
			if !havePrev {
				prev, havePrev = cur, true
				continue
			}
			if merged, ok := h.merge(prev.chunk, cur.chunk); ok {
				prev = sized{chunk: merged}
				continue
			}
			if !emit(prev) {
				return
			}
			prev = cur
		}
		if havePrev {
			emit(prev)
		}
	}
}

// sized is a split result. over holds the token count of a chunk that is
// still over budget and cannot be split further, zero otherwise.
type sized struct {
	chunk doctree.Chunk
	over  int
}

// split passes fitting chunks through and breaks oversized ones into
// word-packed pieces.
func (h *Hybrid) split(chunks iter.Seq[doctree.Chunk]) iter.Seq[sized] {
	return func(yield func(sized) bool) {
		for c := range chunks {
			if h.Fits(c) {
				if !yield(sized{chunk: c}) {
					return
				}
				continue
			}
			if !h.splitChunk(c, yield) {
				return
			}
		}
	}
}

func (h *Hybrid) splitChunk(c doctree.Chunk, yield func(sized) bool) bool {
	words := strings.FieldsFunc(c.Text, isASCIISpace)
	if len(words) <= 1 {
		return yield(sized{chunk: c, over: h.count(c)})
	}

	var buf string
	bufWords := 0
	bufStart := c.Meta.StartOffset

	flush := func() bool {
		end := bufStart + len(buf)
		p := sized{chunk: h.piece(c, buf, bufStart, end)}
		// A multi-word piece was measured when its last word was added.
		if bufWords == 1 {
			if n := h.count(p.chunk); n > h.maxTokens {
				p.over = n
			}
		}
		bufStart = end + 1
		return yield(p)
	}

	for _, w := range words {
		if buf == "" {
			buf, bufWords = w, 1
			continue
		}
		candidate := buf + " " + w
		trial := c
		trial.Text = candidate
		if !h.Fits(trial) {
			if !flush() {
				return false
			}
			buf, bufWords = w, 1
			continue
		}
		buf = candidate
		bufWords++
	}
	return flush()
}

// piece derives a sub-chunk of parent. Offsets are clamped to the parent span
// since collapsed whitespace can push the synthesized end past it. The index
// is assigned at emission.
func (h *Hybrid) piece(parent doctree.Chunk, text string, start, end int) doctree.Chunk {
	limit := parent.Meta.EndOffset
	return doctree.NewChunk(text, doctree.ChunkMetadata{
		DocName:     parent.Meta.DocName,
		Headings:    parent.Meta.Headings,
		Caption:     parent.Meta.Caption,
		StartOffset: min(start, limit),
		EndOffset:   min(end, limit),
	})
}

func (h *Hybrid) merge(prev, cur doctree.Chunk) (doctree.Chunk, bool) {
	if !prev.SameContext(cur) {
		return prev, false
	}
	m := prev
	m.Text = prev.Text + " " + cur.Text
	m.Meta.EndOffset = cur.Meta.EndOffset
	if !h.Fits(m) {
		return prev, false
	}
	return m, true
}

func (h *Hybrid) irreducible(c doctree.Chunk, tokens int, log *slog.Logger) {
	log.Warn("chunk exceeds token budget and cannot be split",
		"index", c.Meta.Index,
		"start_offset", c.Meta.StartOffset,
		"tokens", tokens,
		"max_tokens", h.maxTokens,
	)
	if h.onIrreducible != nil {
		h.onIrreducible(c, tokens)
	}
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
