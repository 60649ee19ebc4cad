package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docling/internal/config"
	"github.com/dgallion1/docling/internal/pipeline"
	"github.com/dgallion1/docling/internal/tokenizer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docling.
type Server struct {
	router chi.Router
	conv   *pipeline.Converter
	tok    *tokenizer.Instrumented
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. tok is shared by every
// chunk request and may be nil, in which case only structural chunking works.
func NewServer(conv *pipeline.Converter, tok *tokenizer.Instrumented, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		conv: conv,
		tok:  tok,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(logRequests(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(requireAPIKey(s.cfg.APIKey, s.log))
		}

		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/chunk", s.handleChunk)
		r.Get("/api/stats/tokenizer", s.handleTokenizerStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
