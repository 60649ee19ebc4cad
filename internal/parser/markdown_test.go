package parser

import (
	"slices"
	"strings"
	"testing"

	"github.com/dgallion1/docling/internal/doctree"
)

func kinds(doc *doctree.Document) []doctree.Kind {
	out := make([]doctree.Kind, len(doc.Nodes))
	for i, n := range doc.Nodes {
		out[i] = n.Kind
	}
	return out
}

func TestMarkdownParser_HeadingLevels(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "docs/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Name != "doc.md" {
		t.Errorf("expected name %q, got %q", "doc.md", doc.Name)
	}
	if len(doc.Nodes) != 6 {
		t.Fatalf("expected 6 nodes, got %d: %v", len(doc.Nodes), kinds(doc))
	}

	want := []struct {
		kind  doctree.Kind
		text  string
		level int
	}{
		{doctree.KindHeading, "Title", 1},
		{doctree.KindParagraph, "Intro text.", 0},
		{doctree.KindHeading, "Section A", 2},
		{doctree.KindParagraph, "Section A content.", 0},
		{doctree.KindHeading, "Subsection A1", 3},
		{doctree.KindParagraph, "Subsection A1 content.", 0},
	}
	for i, w := range want {
		n := doc.Nodes[i]
		if n.Kind != w.kind || n.Text != w.text || n.Level != w.level {
			t.Errorf("node[%d]: expected %s %q level %d, got %s %q level %d", i, w.kind, w.text, w.level, n.Kind, n.Text, n.Level)
		}
	}
}

func TestMarkdownParser_Positions(t *testing.T) {
	input := "# Title\n\nIntro text.\n\nSecond\nparagraph.\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "pos.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}

	for i, n := range doc.Nodes {
		if n.Position == nil {
			t.Fatalf("node[%d]: expected a position", i)
		}
		if i > 0 && doc.Nodes[i-1].Position.EndOffset > n.Position.StartOffset {
			t.Errorf("node[%d]: overlaps previous node", i)
		}
	}

	intro := doc.Nodes[1].Position
	if got := input[intro.StartOffset:intro.EndOffset]; got != "Intro text." {
		t.Errorf("expected span %q, got %q", "Intro text.", got)
	}
	if intro.StartLine != 3 || intro.EndLine != 3 {
		t.Errorf("expected line 3, got %d-%d", intro.StartLine, intro.EndLine)
	}

	second := doc.Nodes[2].Position
	if second.StartLine != 5 || second.EndLine != 6 {
		t.Errorf("expected lines 5-6, got %d-%d", second.StartLine, second.EndLine)
	}
	if got := input[second.StartOffset:second.EndOffset]; got != "Second\nparagraph." {
		t.Errorf("expected span %q, got %q", "Second\nparagraph.", got)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(doc.Nodes))
	}
	if doc.Nodes[0].Text != "Just some plain text." {
		t.Errorf("expected first paragraph, got %q", doc.Nodes[0].Text)
	}
	if doc.Nodes[1].Text != "Another paragraph here." {
		t.Errorf("expected second paragraph, got %q", doc.Nodes[1].Text)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var code *doctree.Node
	for i := range doc.Nodes {
		if doc.Nodes[i].Kind == doctree.KindText {
			code = &doc.Nodes[i]
		}
	}
	if code == nil {
		t.Fatalf("expected a code node, got kinds %v", kinds(doc))
	}
	if code.Text != "GET /api/users\nPOST /api/users" {
		t.Errorf("expected code block content, got %q", code.Text)
	}
	if last := doc.Nodes[len(doc.Nodes)-1]; last.Text != "More text after code." {
		t.Errorf("expected post-code paragraph last, got %q", last.Text)
	}
}

func TestMarkdownParser_Lists(t *testing.T) {
	input := "- first\n- second\n  - nested\n- third\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []string
	var depths []int
	lists := 0
	for _, n := range doc.Nodes {
		switch n.Kind {
		case doctree.KindList:
			lists++
		case doctree.KindListItem:
			items = append(items, n.Text)
			depths = append(depths, n.Depth)
		}
	}
	if lists != 2 {
		t.Errorf("expected 2 list nodes, got %d", lists)
	}
	want := []string{"first", "second", "nested", "third"}
	if strings.Join(items, ",") != strings.Join(want, ",") {
		t.Errorf("expected items %v, got %v", want, items)
	}
	if !slices.Equal(depths, []int{1, 1, 2, 1}) {
		t.Errorf("expected depths [1 1 2 1], got %v", depths)
	}

	// Item spans must not enclose nested items.
	var prevEnd int
	for _, n := range doc.Nodes {
		if n.Kind != doctree.KindListItem {
			continue
		}
		if n.Position == nil {
			t.Fatalf("item %q has no position", n.Text)
		}
		if n.Position.StartOffset < prevEnd {
			t.Errorf("item %q starts at %d before previous end %d", n.Text, n.Position.StartOffset, prevEnd)
		}
		prevEnd = n.Position.EndOffset
	}
}

func TestMarkdownParser_Table(t *testing.T) {
	input := "| Name | Qty |\n| --- | --- |\n| apple | 3 |\n| pear | 5 |\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "table.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []string
	for _, n := range doc.Nodes {
		if n.Kind == doctree.KindTableRow {
			rows = append(rows, n.Text)
		}
	}
	want := []string{"Name | Qty", "apple | 3", "pear | 5"}
	if strings.Join(rows, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected rows %q, got %q", want, rows)
	}
	if doc.Nodes[0].Kind != doctree.KindTable {
		t.Errorf("expected table node first, got %s", doc.Nodes[0].Kind)
	}
}

func TestMarkdownParser_BlockquoteFlattened(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader("> quoted words\n"), "quote.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Kind != doctree.KindParagraph || doc.Nodes[0].Text != "quoted words" {
		t.Errorf("expected one quoted paragraph, got %+v", doc.Nodes)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Nodes) != 0 {
		t.Errorf("expected 0 nodes for empty input, got %d", len(doc.Nodes))
	}
}
