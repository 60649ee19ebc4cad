package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docling/internal/doctree"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"a.md", FormatMarkdown},
		{"a.MARKDOWN", FormatMarkdown},
		{"dir/page.htm", FormatHTML},
		{"data.csv", FormatCSV},
		{"report.docx", FormatDOCX},
		{"paper.pdf", FormatPDF},
		{"notes.txt", FormatText},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.filename)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
	}

	if _, err := DetectFormat("image.png"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if IsSupportedExtension("image.png") || !IsSupportedExtension("README.MD") {
		t.Errorf("unexpected IsSupportedExtension result")
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"md": FormatMarkdown, "markdown": FormatMarkdown, "txt": FormatText, "text": FormatText, " HTML ": FormatHTML} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", name, want, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestForFile(t *testing.T) {
	p, err := ForFile("paper.pdf", Options{PDFTextFallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pdf, ok := p.(*PDFParser)
	if !ok || !pdf.FallbackPdftotext {
		t.Errorf("expected PDF parser with fallback, got %#v", p)
	}
	for _, f := range Formats() {
		if _, err := ForFormat(f, Options{}); err != nil {
			t.Errorf("%s: unexpected error: %v", f, err)
		}
	}
	if _, err := ForFile("x.exe", Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestHTMLParser_Structure(t *testing.T) {
	input := `<html><head><title>Guide</title><style>p{}</style></head>
<body>
<nav>skip me</nav>
<h1>Intro</h1>
<p>First   paragraph.</p>
<ul><li>one</li><li>two<ul><li>inner</li></ul></li></ul>
<table><caption>Prices</caption>
<thead><tr><th>Item</th><th>Cost</th></tr></thead>
<tbody><tr><td>tea</td><td>2</td></tr></tbody>
</table>
<h2>Next</h2>
<div>loose text</div>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata["title"] != "Guide" {
		t.Errorf("expected title metadata, got %v", doc.Metadata["title"])
	}

	type want struct {
		kind    doctree.Kind
		text    string
		level   int
		caption string
	}
	expected := []want{
		{doctree.KindHeading, "Intro", 1, ""},
		{doctree.KindParagraph, "First paragraph.", 0, ""},
		{doctree.KindList, "", 0, ""},
		{doctree.KindListItem, "one", 0, ""},
		{doctree.KindListItem, "two", 0, ""},
		{doctree.KindList, "", 0, ""},
		{doctree.KindListItem, "inner", 0, ""},
		{doctree.KindTable, "", 0, "Prices"},
		{doctree.KindTableRow, "Item | Cost", 0, "Prices"},
		{doctree.KindTableRow, "tea | 2", 0, "Prices"},
		{doctree.KindHeading, "Next", 2, ""},
		{doctree.KindText, "loose text", 0, ""},
	}
	if len(doc.Nodes) != len(expected) {
		t.Fatalf("expected %d nodes, got %d: %+v", len(expected), len(doc.Nodes), doc.Nodes)
	}
	for i, w := range expected {
		n := doc.Nodes[i]
		if n.Kind != w.kind || n.Text != w.text || n.Level != w.level || n.Caption != w.caption {
			t.Errorf("node[%d]: expected %+v, got %+v", i, w, n)
		}
	}
	for i, depth := range map[int]int{3: 1, 4: 1, 6: 2} {
		if doc.Nodes[i].Depth != depth {
			t.Errorf("node[%d] %q: expected depth %d, got %d", i, doc.Nodes[i].Text, depth, doc.Nodes[i].Depth)
		}
	}
}

func TestHTMLParser_Charset(t *testing.T) {
	// "café" encoded as ISO-8859-1.
	input := "<html><head><meta charset=\"iso-8859-1\"></head><body><p>caf\xe9</p></body></html>"
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "latin1.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Text != "café" {
		t.Fatalf("expected decoded paragraph, got %+v", doc.Nodes)
	}
}

func TestCSVParser_Rows(t *testing.T) {
	input := "\ufeffname,qty\napple,3\npear,5\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "fruit.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Nodes) != 4 {
		t.Fatalf("expected table + 3 rows, got %d", len(doc.Nodes))
	}
	if doc.Nodes[1].Text != "name, qty" {
		t.Errorf("expected header row without BOM, got %q", doc.Nodes[1].Text)
	}
	if doc.Nodes[2].Text != "name: apple, qty: 3" {
		t.Errorf("unexpected row text %q", doc.Nodes[2].Text)
	}
	if doc.Metadata["rows"] != 2 {
		t.Errorf("expected 2 rows, got %v", doc.Metadata["rows"])
	}

	// Offsets are into the decoded text, which no longer has the BOM.
	decoded := strings.TrimPrefix(input, "\ufeff")
	pos := doc.Nodes[3].Position
	if pos == nil {
		t.Fatalf("expected row position")
	}
	if got := decoded[pos.StartOffset:pos.EndOffset]; got != "pear,5" {
		t.Errorf("expected span %q, got %q", "pear,5", got)
	}
	if pos.StartLine != 3 {
		t.Errorf("expected line 3, got %d", pos.StartLine)
	}
}

func TestCSVParser_RaggedRows(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader("a,b\n1\n1,2,3\n"), "ragged.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.Nodes[len(doc.Nodes)-1].Text; got != "a: 1, b: 2, 3" {
		t.Errorf("unexpected ragged row %q", got)
	}
}

func TestCSVParser_Empty(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(doc.Nodes))
	}
}

func TestDOCXHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 2": 2,
		"Heading6":  6,
		"Title":     1,
		"Normal":    0,
		"HeadingX":  0,
		"":          0,
	}
	for style, want := range tests {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("%q: expected %d, got %d", style, want, got)
		}
	}
	if !isListStyle("List Paragraph") || !isListStyle("ListBullet") || isListStyle("Normal") {
		t.Errorf("unexpected list style detection")
	}
}

func TestDOCXParser_InvalidInput(t *testing.T) {
	p := &DOCXParser{}
	if _, err := p.Parse(strings.NewReader("not a zip"), "bad.docx"); err == nil {
		t.Fatal("expected error for invalid docx")
	}
}

func TestPDFParser_InvalidInput(t *testing.T) {
	p := &PDFParser{}
	if _, err := p.Parse(strings.NewReader("not a pdf"), "bad.pdf"); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}

func TestSplitParagraphs(t *testing.T) {
	pages := splitPages("p1 line\n\n  \np1 second\fp2\f")
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	got := splitParagraphs(pages[0])
	if len(got) != 2 || got[0] != "p1 line" || got[1] != "p1 second" {
		t.Errorf("unexpected paragraphs %q", got)
	}
}
