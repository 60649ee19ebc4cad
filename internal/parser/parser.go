package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Format identifies an input document format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
)

// ErrUnsupportedFormat is returned for extensions or format names with no parser.
var ErrUnsupportedFormat = errors.New("unsupported format")

// SupportedExtensions maps file extensions to their format.
var SupportedExtensions = map[string]Format{
	".txt":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".csv":      FormatCSV,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
}

// Options tunes parsers that have optional behavior.
type Options struct {
	// PDFTextFallback runs pdftotext when the built-in PDF reader fails.
	PDFTextFallback bool
}

// Formats lists every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatMarkdown, FormatHTML, FormatCSV, FormatDOCX, FormatPDF, FormatText}
}

// ParseFormat accepts a format name or common alias ("md", "txt", "htm").
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if f, ok := SupportedExtensions["."+name]; ok {
		return f, nil
	}
	if slices.Contains(Formats(), Format(name)) {
		return Format(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// DetectFormat resolves the format of a file from its extension.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := SupportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// ForFormat returns the parser for a format.
func ForFormat(f Format, opts Options) (Parser, error) {
	switch f {
	case FormatText:
		return &TextParser{}, nil
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatCSV:
		return &CSVParser{}, nil
	case FormatHTML:
		return &HTMLParser{}, nil
	case FormatPDF:
		return &PDFParser{FallbackPdftotext: opts.PDFTextFallback}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	f, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	return ForFormat(f, opts)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// docName is the document name recorded for an uploaded or local file.
func docName(filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "unknown"
	}
	return name
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) line(offset int) int {
	n, found := slices.BinarySearch(li, offset)
	if found {
		return n + 1
	}
	return n
}

func (li lineIndex) position(start, end int) *doctree.Position {
	endLine := li.line(start)
	if end > start {
		endLine = li.line(end - 1)
	}
	return &doctree.Position{
		StartOffset: start,
		EndOffset:   end,
		StartLine:   li.line(start),
		EndLine:     endLine,
	}
}
