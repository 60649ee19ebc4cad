// Package pipeline turns input files into documents, one at a time or as a
// concurrent batch.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/dgallion1/docling/internal/doctree"
	"github.com/dgallion1/docling/internal/parser"
)

// ConversionStatus summarizes how a conversion went.
type ConversionStatus string

const (
	StatusSuccess        ConversionStatus = "success"
	StatusPartialSuccess ConversionStatus = "partial"
	StatusFailure        ConversionStatus = "failure"
)

// Metrics describes one conversion.
type Metrics struct {
	TotalNodes     int           `json:"total_nodes"`
	TextNodes      int           `json:"text_nodes"`
	Bytes          int           `json:"bytes"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Result is the outcome of converting one input.
type Result struct {
	Document *doctree.Document `json:"document"`
	Format   parser.Format     `json:"format"`
	Status   ConversionStatus  `json:"status"`
	Metrics  Metrics           `json:"metrics"`
}

// Converter detects the format of an input and parses it into a Document.
type Converter struct {
	opts    parser.Options
	allowed []parser.Format
	log     *slog.Logger
}

// NewConverter returns a converter. With no formats given, every supported
// format is accepted.
func NewConverter(log *slog.Logger, opts parser.Options, formats ...parser.Format) *Converter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if len(formats) == 0 {
		formats = parser.Formats()
	}
	return &Converter{opts: opts, allowed: formats, log: log}
}

// Accepts reports whether filename has an allowed, supported format.
func (c *Converter) Accepts(filename string) bool {
	f, err := parser.DetectFormat(filename)
	return err == nil && slices.Contains(c.allowed, f)
}

// Convert parses data as the format implied by filename. A document that
// parses but yields no text is returned with a partial status.
func (c *Converter) Convert(ctx context.Context, filename string, data []byte) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := parser.DetectFormat(filename)
	if err != nil {
		return &Result{Status: StatusFailure}, err
	}
	if !slices.Contains(c.allowed, format) {
		return &Result{Format: format, Status: StatusFailure}, fmt.Errorf("%w: %s not enabled", parser.ErrUnsupportedFormat, format)
	}
	p, err := parser.ForFormat(format, c.opts)
	if err != nil {
		return &Result{Format: format, Status: StatusFailure}, err
	}

	log := c.log.With("file", filename, "format", format)
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		return &Result{Format: format, Status: StatusFailure}, fmt.Errorf("convert %s: %w", filename, err)
	}

	doc.SetMeta("format", string(format))
	doc.SetMeta("content_hash", ContentHashHex(data))
	doc.SetMeta("source", filename)

	res := &Result{
		Document: doc,
		Format:   format,
		Status:   StatusSuccess,
		Metrics: Metrics{
			TotalNodes:     len(doc.Nodes),
			TextNodes:      doc.TextNodes(),
			Bytes:          len(data),
			ProcessingTime: time.Since(start),
		},
	}
	if res.Metrics.TextNodes == 0 {
		res.Status = StatusPartialSuccess
		log.Warn("document has no text content")
	}
	log.Debug("converted document", "nodes", res.Metrics.TotalNodes, "elapsed", res.Metrics.ProcessingTime)
	return res, nil
}

// ConvertFile reads path from disk and converts it.
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Result{Status: StatusFailure}, fmt.Errorf("read %s: %w", path, err)
	}
	return c.Convert(ctx, path, data)
}
