package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docling/internal/chunker"
	"github.com/dgallion1/docling/internal/doctree"
	"github.com/dgallion1/docling/internal/export"
	"github.com/dgallion1/docling/internal/tokenizer"
)

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, contextualize, err := s.chunkOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.Kind == chunker.KindHybrid && s.tok == nil {
		jsonError(w, "hybrid chunking needs a tokenizer", http.StatusServiceUnavailable)
		return
	}

	irreducible := 0
	opts.OnIrreducible = func(doctree.Chunk, int) { irreducible++ }
	opts.Logger = s.log.With("file", filename)

	var tok tokenizer.Tokenizer
	if s.tok != nil {
		tok = s.tok
	}
	c, err := chunker.New(opts, tok)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chunker.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		jsonError(w, err.Error(), status)
		return
	}

	res, ok := s.convert(w, r, filename, data)
	if !ok {
		return
	}

	var ctxFn func(doctree.Chunk) string
	if contextualize {
		ctxFn = c.Contextualize
	}
	records := []export.ChunkRecord{}
	for rec := range export.Records(c.Chunk(res.Document), ctxFn) {
		records = append(records, rec)
	}

	s.log.Info("chunked document",
		"file", filename,
		"chunker", opts.Kind,
		"chunks", len(records),
		"irreducible", irreducible,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_name":    res.Document.Name,
		"chunker":     opts.Kind,
		"chunks":      records,
		"irreducible": irreducible,
	})
}

// chunkOptions reads chunker settings from the form, falling back to config.
func (s *Server) chunkOptions(r *http.Request) (chunker.Options, bool, error) {
	kind, err := chunker.ParseKind(r.FormValue("chunker"))
	if err != nil {
		return chunker.Options{}, false, err
	}
	opts := chunker.Options{Kind: kind}
	if opts.MaxTokens, err = formInt(r, "max_tokens", s.cfg.MaxTokens); err != nil {
		return opts, false, err
	}
	if opts.MergePeers, err = formBool(r, "merge_peers", s.cfg.MergePeers); err != nil {
		return opts, false, err
	}
	if opts.MergeListItems, err = formBool(r, "merge_list_items", s.cfg.MergeListItems); err != nil {
		return opts, false, err
	}
	contextualize, err := formBool(r, "contextualize", false)
	if err != nil {
		return opts, false, err
	}
	return opts, contextualize, nil
}
