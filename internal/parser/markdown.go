package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	b := &mdBuilder{
		src:   src,
		lines: newLineIndex(src),
		doc:   doctree.New(docName(filename)),
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		b.block(n)
	}
	return b.doc, nil
}

type mdBuilder struct {
	src   []byte
	lines lineIndex
	doc   *doctree.Document
	depth int // enclosing lists
}

func (b *mdBuilder) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		b.add(doctree.KindHeading, b.inlineText(node), node.Level, node)
	case *ast.Paragraph, *ast.TextBlock:
		b.add(doctree.KindParagraph, b.inlineText(node), 0, node)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		b.add(doctree.KindText, b.rawLines(node), 0, node)
	case *ast.Blockquote:
		// Quotes are flattened into their paragraphs.
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			b.block(c)
		}
	case *ast.List:
		b.add(doctree.KindList, "", 0, node)
		b.depth++
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			b.listItem(item)
		}
		b.depth--
	case *east.Table:
		b.add(doctree.KindTable, "", 0, node)
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			b.add(doctree.KindTableRow, b.rowText(row), 0, row)
		}
	case *ast.HTMLBlock, *ast.ThematicBreak:
	default:
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			b.add(doctree.KindParagraph, b.rawLines(n), 0, n)
		}
	}
}

// listItem emits the item's own text, then any nested lists after it so
// that item spans never enclose their children.
func (b *mdBuilder) listItem(item ast.Node) {
	var parts []string
	var own []ast.Node
	var nested []ast.Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, c)
			continue
		}
		own = append(own, c)
		switch c.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			parts = append(parts, b.rawLines(c))
		default:
			parts = append(parts, b.inlineText(c))
		}
	}

	start, end, ok := b.spanOf(own...)
	node := doctree.Node{Kind: doctree.KindListItem, Text: strings.TrimSpace(strings.Join(parts, "\n")), Depth: b.depth}
	if ok {
		node.Position = b.lines.position(start, end)
	}
	b.doc.Add(node)

	for _, l := range nested {
		b.block(l)
	}
}

func (b *mdBuilder) add(kind doctree.Kind, txt string, level int, n ast.Node) {
	node := doctree.Node{Kind: kind, Text: txt, Level: level}
	if start, end, ok := b.spanOf(n); ok {
		node.Position = b.lines.position(start, end)
	}
	b.doc.Add(node)
}

func (b *mdBuilder) rowText(row ast.Node) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, b.inlineText(c))
	}
	return strings.Join(cells, " | ")
}

func (b *mdBuilder) rawLines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(b.src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// inlineText gets the text content of a goldmark node and its inline children.
func (b *mdBuilder) inlineText(n ast.Node) string {
	var buf bytes.Buffer
	b.writeInline(&buf, n)
	return strings.TrimSpace(buf.String())
}

func (b *mdBuilder) writeInline(buf *bytes.Buffer, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(b.src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(b.src))
		case *ast.RawHTML:
		default:
			if c.Type() == ast.TypeBlock {
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
			}
			b.writeInline(buf, c)
		}
	}
}

// spanOf returns the smallest byte range covering the source segments of the
// given nodes and their descendants.
func (b *mdBuilder) spanOf(nodes ...ast.Node) (start, end int, ok bool) {
	start, end = -1, -1
	grow := func(s text.Segment) {
		if s.Stop <= s.Start {
			return
		}
		if start < 0 || s.Start < start {
			start = s.Start
		}
		if s.Stop > end {
			end = s.Stop
		}
	}
	for _, n := range nodes {
		_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if c.Type() == ast.TypeBlock {
				lines := c.Lines()
				for i := 0; i < lines.Len(); i++ {
					grow(lines.At(i))
				}
			}
			if t, isText := c.(*ast.Text); isText {
				grow(t.Segment)
			}
			return ast.WalkContinue, nil
		})
	}
	if start < 0 {
		return 0, 0, false
	}
	// Line segments include the trailing newline.
	for end > start && (b.src[end-1] == '\n' || b.src[end-1] == '\r') {
		end--
	}
	return start, end, true
}
