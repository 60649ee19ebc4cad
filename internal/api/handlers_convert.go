package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docling/internal/export"
	"github.com/dgallion1/docling/internal/parser"
	"github.com/dgallion1/docling/internal/pipeline"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	to := export.DocJSON
	if v := r.FormValue("to"); v != "" {
		f, err := export.ParseDocFormat(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		to = f
	}

	res, ok := s.convert(w, r, filename, data)
	if !ok {
		return
	}

	resp := map[string]any{
		"doc_name": res.Document.Name,
		"format":   res.Format,
		"status":   res.Status,
		"metrics":  res.Metrics,
	}
	if to == export.DocJSON {
		resp["document"] = res.Document
	} else {
		var sb strings.Builder
		if err := export.WriteDocument(&sb, res.Document, to); err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["content"] = sb.String()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// readUpload reads the multipart "file" field. On failure it has already
// written the error response.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return "", nil, false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		r.MultipartForm.RemoveAll()
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		r.MultipartForm.RemoveAll()
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		r.MultipartForm.RemoveAll()
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return filename, data, true
}

// convert runs the converter and maps failures to HTTP errors.
func (s *Server) convert(w http.ResponseWriter, r *http.Request, filename string, data []byte) (*pipeline.Result, bool) {
	res, err := s.conv.Convert(r.Context(), filename, data)
	if err != nil {
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
		s.log.Error("conversion failed", "file", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	return res, true
}

func formBool(r *http.Request, key string, fallback bool) (bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

// formInt returns fallback only when key is absent; an explicit zero is
// rejected like any other non-positive value.
func formInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
