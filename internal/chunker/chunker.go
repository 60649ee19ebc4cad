// Package chunker splits a document into ordered chunks for retrieval.
//
// Hierarchical emits one chunk per non-empty node and attaches the active
// heading path. Hybrid runs the same structural pass, then splits chunks that
// exceed a token budget and merges adjacent peers that fit together.
package chunker

import (
	"errors"
	"iter"
	"log/slog"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
)

// ErrInvalidConfig is returned by builders when a chunker cannot be constructed.
var ErrInvalidConfig = errors.New("invalid chunker config")

// Chunker produces chunks lazily. Each call to Chunk returns a fresh sequence;
// stopping the range early abandons the remaining work.
type Chunker interface {
	Chunk(doc *doctree.Document) iter.Seq[doctree.Chunk]
	Contextualize(c doctree.Chunk) string
}

// Contextualize renders the string that is measured and embedded for a chunk:
// each heading on its own line, then the caption, then the text.
func Contextualize(c doctree.Chunk) string {
	var sb strings.Builder
	for _, h := range c.Meta.Headings {
		sb.WriteString(h)
		sb.WriteByte('\n')
	}
	if c.Meta.Caption != "" {
		sb.WriteString(c.Meta.Caption)
		sb.WriteByte('\n')
	}
	sb.WriteString(c.Text)
	return sb.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
