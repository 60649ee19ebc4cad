package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"github.com/dgallion1/docling/internal/tokenizer"
)

// Kind names a chunking strategy.
type Kind string

const (
	KindHybrid       Kind = "hybrid"
	KindHierarchical Kind = "hierarchical"
)

// ParseKind resolves a strategy name. Empty selects hybrid.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case "", KindHybrid:
		return KindHybrid, nil
	case KindHierarchical:
		return KindHierarchical, nil
	}
	return "", fmt.Errorf("%w: unknown chunker %q", ErrInvalidConfig, name)
}

// Options selects and configures a chunker.
type Options struct {
	Kind           Kind
	MaxTokens      int // 0 uses the tokenizer's budget
	MergePeers     bool
	MergeListItems bool
	Logger         *slog.Logger
	OnIrreducible  func(c doctree.Chunk, tokens int)
}

// New builds the chunker described by opts. tok is only needed for hybrid.
func New(opts Options, tok tokenizer.Tokenizer) (Chunker, error) {
	switch opts.Kind {
	case KindHierarchical:
		return &Hierarchical{MergeListItems: opts.MergeListItems}, nil
	case KindHybrid, "":
		b := NewHybridBuilder().
			Tokenizer(tok).
			MergePeers(opts.MergePeers).
			MergeListItems(opts.MergeListItems).
			Logger(opts.Logger).
			OnIrreducible(opts.OnIrreducible)
		if opts.MaxTokens != 0 {
			b.MaxTokens(opts.MaxTokens)
		}
		h, err := b.Build()
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w: unknown chunker %q", ErrInvalidConfig, opts.Kind)
}
