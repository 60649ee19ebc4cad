package export

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"sigs.k8s.io/yaml"
)

// ChunkFormat is an output format for chunk streams.
type ChunkFormat string

const (
	ChunkJSON  ChunkFormat = "json"
	ChunkJSONL ChunkFormat = "jsonl"
	ChunkYAML  ChunkFormat = "yaml"
)

// ParseChunkFormat resolves a user-supplied chunk format name.
func ParseChunkFormat(name string) (ChunkFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return ChunkJSON, nil
	case "jsonl", "ndjson":
		return ChunkJSONL, nil
	case "yaml", "yml":
		return ChunkYAML, nil
	}
	return "", fmt.Errorf("unknown chunk format %q", name)
}

// Extension returns the file extension used for f, with the leading dot.
func (f ChunkFormat) Extension() string {
	switch f {
	case ChunkJSONL:
		return ".jsonl"
	case ChunkYAML:
		return ".yaml"
	default:
		return ".json"
	}
}

// ChunkRecord is the serialized form of a chunk.
type ChunkRecord struct {
	Text           string                `json:"text"`
	Meta           doctree.ChunkMetadata `json:"meta"`
	Contextualized string                `json:"contextualized,omitempty"`
}

// Records converts chunks to records. When contextualize is non-nil each
// record also carries the contextualized text.
func Records(chunks iter.Seq[doctree.Chunk], contextualize func(doctree.Chunk) string) iter.Seq[ChunkRecord] {
	return func(yield func(ChunkRecord) bool) {
		for c := range chunks {
			rec := ChunkRecord{Text: c.Text, Meta: c.Meta}
			if contextualize != nil {
				rec.Contextualized = contextualize(c)
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// WriteChunks writes chunks to w and returns how many were written. JSON
// Lines output is streamed; JSON and YAML collect the sequence first.
func WriteChunks(w io.Writer, chunks iter.Seq[doctree.Chunk], f ChunkFormat, contextualize func(doctree.Chunk) string) (int, error) {
	records := Records(chunks, contextualize)

	if f == ChunkJSONL {
		enc := json.NewEncoder(w)
		n := 0
		for rec := range records {
			if err := enc.Encode(rec); err != nil {
				return n, fmt.Errorf("write jsonl: %w", err)
			}
			n++
		}
		return n, nil
	}

	all := []ChunkRecord{}
	for rec := range records {
		all = append(all, rec)
	}

	switch f {
	case ChunkJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			return 0, fmt.Errorf("write json: %w", err)
		}
	case ChunkYAML:
		out, err := yaml.Marshal(all)
		if err != nil {
			return 0, fmt.Errorf("marshal yaml: %w", err)
		}
		if _, err := w.Write(out); err != nil {
			return 0, fmt.Errorf("write yaml: %w", err)
		}
	default:
		return 0, fmt.Errorf("unknown chunk format %q", f)
	}
	return len(all), nil
}
