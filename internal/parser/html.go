package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// HTMLParser handles HTML files. Input is transcoded to UTF-8 from the
// charset declared in the document, if any.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// The whole input is inspected so late non-ASCII bytes still count
	// toward UTF-8 detection.
	enc, encName, _ := charset.DetermineEncoding(data, "text/html")
	root, err := html.Parse(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := doctree.New(docName(filename))
	doc.SetMeta("charset", encName)
	if title := findTitle(root); title != "" {
		doc.SetMeta("title", title)
	}

	start := findBody(root)
	if start == nil {
		start = root
	}
	w := &htmlWalker{doc: doc}
	w.children(start)
	return doc, nil
}

type htmlWalker struct {
	doc   *doctree.Document
	depth int // enclosing ul/ol
}

func (w *htmlWalker) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Loose text outside any block element.
		if t := collapseSpace(n.Data); t != "" {
			w.doc.Add(doctree.Node{Kind: doctree.KindText, Text: t})
		}
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	if level := headingLevel(n.Data); level > 0 {
		w.doc.Add(doctree.Node{Kind: doctree.KindHeading, Text: textContent(n), Level: level})
		return
	}

	switch n.Data {
	case "script", "style", "nav", "footer", "header", "noscript", "template", "head":
		return
	case "p", "blockquote":
		w.doc.Add(doctree.Node{Kind: doctree.KindParagraph, Text: textContent(n)})
	case "pre":
		w.doc.Add(doctree.Node{Kind: doctree.KindParagraph, Text: strings.Trim(rawText(n), "\n")})
	case "ul", "ol":
		w.doc.Add(doctree.Node{Kind: doctree.KindList})
		w.depth++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				w.listItem(c)
			}
		}
		w.depth--
	case "li":
		w.listItem(n)
	case "table":
		caption := tableCaption(n)
		w.doc.Add(doctree.Node{Kind: doctree.KindTable, Caption: caption})
		w.tableRows(n, caption)
	default:
		w.children(n)
	}
}

// listItem adds the item's own text, then walks any nested lists.
func (w *htmlWalker) listItem(li *html.Node) {
	var buf strings.Builder
	var nested []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			nested = append(nested, c)
			continue
		}
		writeText(&buf, c)
	}
	w.doc.Add(doctree.Node{Kind: doctree.KindListItem, Text: collapseSpace(buf.String()), Depth: max(w.depth, 1)})
	for _, l := range nested {
		w.walk(l)
	}
}

func (w *htmlWalker) tableRows(n *html.Node, caption string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			var cells []string
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					cells = append(cells, textContent(cell))
				}
			}
			w.doc.Add(doctree.Node{Kind: doctree.KindTableRow, Text: strings.Join(cells, " | "), Caption: caption})
		case "thead", "tbody", "tfoot":
			w.tableRows(c, caption)
		}
	}
}

func tableCaption(table *html.Node) string {
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "caption" {
			return textContent(c)
		}
	}
	return ""
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent returns the whitespace-collapsed text under n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	writeText(&buf, n)
	return collapseSpace(buf.String())
}

// rawText returns the text under n with whitespace preserved.
func rawText(n *html.Node) string {
	var buf strings.Builder
	writeText(&buf, n)
	return buf.String()
}

func writeText(buf *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		buf.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	case n.Type == html.ElementNode && n.Data == "br":
		buf.WriteByte('\n')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(buf, c)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
