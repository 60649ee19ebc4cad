package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleTokenizerStats(w http.ResponseWriter, r *http.Request) {
	if s.tok == nil || s.tok.Stats == nil {
		jsonError(w, "tokenizer stats unavailable", http.StatusServiceUnavailable)
		return
	}

	name := "estimator"
	if n, ok := s.tok.Tokenizer.(interface{ Name() string }); ok {
		name = n.Name()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tokenizer":  name,
		"max_tokens": s.tok.MaxTokens(),
		"stats":      s.tok.Stats.Snapshot(),
	})
}
