// Package export renders documents and chunks for output.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
)

// DocFormat is an output format for converted documents.
type DocFormat string

const (
	DocMarkdown DocFormat = "markdown"
	DocJSON     DocFormat = "json"
	DocText     DocFormat = "text"
)

// ParseDocFormat resolves a user-supplied document format name.
func ParseDocFormat(name string) (DocFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return DocMarkdown, nil
	case "json":
		return DocJSON, nil
	case "text", "txt":
		return DocText, nil
	}
	return "", fmt.Errorf("unknown document format %q", name)
}

// Extension returns the file extension used for f, with the leading dot.
func (f DocFormat) Extension() string {
	switch f {
	case DocJSON:
		return ".json"
	case DocText:
		return ".txt"
	default:
		return ".md"
	}
}

// WriteDocument renders doc to w in format f.
func WriteDocument(w io.Writer, doc *doctree.Document, f DocFormat) error {
	var err error
	switch f {
	case DocMarkdown:
		_, err = io.WriteString(w, Markdown(doc))
	case DocText:
		text := doc.PlainText()
		if text != "" {
			text += "\n"
		}
		_, err = io.WriteString(w, text)
	case DocJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	default:
		return fmt.Errorf("unknown document format %q", f)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// Markdown renders doc as markdown. Consecutive list items and table rows
// stay on adjacent lines; other blocks are separated by a blank line.
func Markdown(doc *doctree.Document) string {
	var sb strings.Builder
	var prev doctree.Kind
	for _, n := range doc.Nodes {
		block, ok := markdownBlock(n)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			if n.Kind == prev && (n.Kind == doctree.KindListItem || n.Kind == doctree.KindTableRow) {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(block)
		prev = n.Kind
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func markdownBlock(n doctree.Node) (string, bool) {
	if !n.HasText() {
		return "", false
	}
	text := strings.TrimSpace(n.Text)
	switch n.Kind {
	case doctree.KindHeading:
		level := min(max(n.Level, 1), 6)
		return strings.Repeat("#", level) + " " + text, true
	case doctree.KindListItem:
		return "- " + strings.ReplaceAll(text, "\n", "\n  "), true
	case doctree.KindTableRow, doctree.KindTableCell:
		return "| " + text + " |", true
	default:
		return text, true
	}
}
