package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docling-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	parsed, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := doctree.New(docName(filename))
	inList := false
	for _, item := range parsed.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			style := docxStyle(it)
			text := docxParagraphText(it)
			if level := docxHeadingLevel(style); level > 0 {
				inList = false
				doc.Add(doctree.Node{Kind: doctree.KindHeading, Text: text, Level: level})
				continue
			}
			if isListStyle(style) {
				if !inList {
					doc.Add(doctree.Node{Kind: doctree.KindList})
					inList = true
				}
				doc.Add(doctree.Node{Kind: doctree.KindListItem, Text: text, Depth: 1})
				continue
			}
			inList = false
			doc.Add(doctree.Node{Kind: doctree.KindParagraph, Text: text})
		case *docx.Table:
			inList = false
			addDocxTable(doc, it)
		}
	}
	return doc, nil
}

func addDocxTable(doc *doctree.Document, table *docx.Table) {
	doc.Add(doctree.Node{Kind: doctree.KindTable})
	for _, row := range table.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		doc.Add(doctree.Node{Kind: doctree.KindTableRow, Text: strings.Join(cells, " | ")})
	}
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel reads the level from "Heading1" or "heading 1" styles.
// The document title style counts as a top-level heading.
func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 9 {
		return 0
	}
	return level
}

func isListStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.HasPrefix(s, "list")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
