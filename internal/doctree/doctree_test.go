package doctree

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() Chunk {
	return NewChunk("Revenue grew 12%.", ChunkMetadata{
		DocName:     "report.md",
		Headings:    []string{"Results", "Q4"},
		Caption:     "Table 1",
		StartOffset: 10,
		EndOffset:   27,
		Index:       3,
	})
}

func TestChunk_JSONRoundTrip(t *testing.T) {
	c := sampleChunk()

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got Chunk
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, c.Equal(got), "round trip changed chunk: %+v", got)
}

func TestChunk_JSONIncludesEveryField(t *testing.T) {
	data, err := json.Marshal(NewChunk("x", ChunkMetadata{DocName: "d"}))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"x"`, string(raw["text"]))

	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw["meta"], &meta))
	for _, key := range []string{"doc_name", "headings", "caption", "start_offset", "end_offset", "index"} {
		assert.Contains(t, meta, key)
	}
	assert.Equal(t, []any{}, meta["headings"])
}

func TestNewChunk_CopiesHeadings(t *testing.T) {
	h := []string{"A"}
	c := NewChunk("x", ChunkMetadata{Headings: h})
	h[0] = "B"
	assert.Equal(t, []string{"A"}, c.Meta.Headings)
}

func TestChunk_EqualNilVsEmptyHeadings(t *testing.T) {
	a := Chunk{Text: "x", Meta: ChunkMetadata{Headings: nil}}
	b := Chunk{Text: "x", Meta: ChunkMetadata{Headings: []string{}}}
	assert.True(t, a.Equal(b))

	b.Meta.Caption = "c"
	assert.False(t, a.Equal(b))
}

func TestCompareChunks_SortsByIndex(t *testing.T) {
	chunks := []Chunk{
		{Text: "c", Meta: ChunkMetadata{Index: 2}},
		{Text: "a", Meta: ChunkMetadata{Index: 0}},
		{Text: "b", Meta: ChunkMetadata{Index: 1}},
	}
	slices.SortFunc(chunks, CompareChunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Meta.Index)
	}
}

func TestDocument_TextNodesAndPlainText(t *testing.T) {
	doc := New("d")
	doc.Add(Node{Kind: KindHeading, Text: "Title", Level: 1})
	doc.Add(Node{Kind: KindList})
	doc.Add(Node{Kind: KindListItem, Text: "   "})
	doc.Add(Node{Kind: KindParagraph, Text: "Body"})

	assert.Equal(t, 2, doc.TextNodes())
	assert.Equal(t, "Title\nBody", doc.PlainText())
}

func TestDocument_SetMetaOnZeroValue(t *testing.T) {
	var doc Document
	doc.SetMeta("pages", 3)
	assert.Equal(t, 3, doc.Metadata["pages"])
}
