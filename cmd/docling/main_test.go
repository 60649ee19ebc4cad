package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dgallion1/docling/internal/export"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--quiet", "--env-file", ""))
	err := root.Execute()
	return out.String(), err
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestConvert_SingleFileToStdout(t *testing.T) {
	dir := writeTree(t, map[string]string{"doc.md": "# Title\n\nBody text.\n"})

	out, err := run(t, "convert", filepath.Join(dir, "doc.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody text.\n", out)
}

func TestConvert_DirectoryMirrorsTree(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.md":      "# A\n",
		"sub/b.txt": "bee\n",
		"skip.png":  "x",
	})
	outDir := t.TempDir()

	_, err := run(t, "convert", dir, "--to", "json", "-o", outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "a.md", gjson.GetBytes(data, "name").String())

	data, err = os.ReadFile(filepath.Join(outDir, "sub", "b.json"))
	require.NoError(t, err)
	assert.Equal(t, "bee", gjson.GetBytes(data, "nodes.0.text").String())

	_, err = os.Stat(filepath.Join(outDir, "skip.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestConvert_FromFilter(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.md": "alpha\n", "b.txt": "beta\n"})

	out, err := run(t, "convert", dir, "--from", "txt", "--to", "text")
	require.NoError(t, err)
	assert.Equal(t, "beta\n", out)
}

func TestConvert_FailuresFailTheCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.md": "ok\n", "b.pdf": "not a pdf"})

	_, err := run(t, "convert", dir, "--pdf-fallback-pdftotext=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")

	_, err = run(t, "convert", dir, "--abort-on-error", "--continue-on-error")
	assert.Error(t, err)
}

func TestChunk_HierarchicalJSONL(t *testing.T) {
	dir := writeTree(t, map[string]string{"guide.md": "# Guide\n\nIntro.\n\n- one\n- two\n"})

	out, err := run(t, "chunk", filepath.Join(dir, "guide.md"), "--chunker", "hierarchical", "--format", "jsonl", "--contextualize")
	require.NoError(t, err)

	var recs []export.ChunkRecord
	sc := bufio.NewScanner(bytes.NewBufferString(out))
	for sc.Scan() {
		var rec export.ChunkRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 3)
	assert.Equal(t, "one\ntwo", recs[2].Text)
	assert.Equal(t, "Guide\none\ntwo", recs[2].Contextualized)
}

func TestChunk_NestedListItemsStayApart(t *testing.T) {
	dir := writeTree(t, map[string]string{"nested.md": "- one\n  - nested a\n- two\n"})

	out, err := run(t, "chunk", filepath.Join(dir, "nested.md"), "--chunker", "hierarchical")
	require.NoError(t, err)

	var texts []string
	for _, c := range gjson.Parse(out).Array() {
		texts = append(texts, c.Get("text").String())
	}
	assert.Equal(t, []string{"one", "nested a", "two"}, texts)
}

func TestChunk_HybridBudget(t *testing.T) {
	dir := writeTree(t, map[string]string{"notes.txt": "one two three four five six seven eight\n"})

	out, err := run(t, "chunk", filepath.Join(dir, "notes.txt"), "--max-tokens", "3")
	require.NoError(t, err)

	chunks := gjson.Parse(out).Array()
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, int64(i), c.Get("meta.index").Int())
	}
}

func TestChunk_InvalidFlags(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.md": "x\n"})

	_, err := run(t, "chunk", dir, "--chunker", "semantic")
	assert.Error(t, err)

	_, err = run(t, "chunk", dir, "--format", "csv")
	assert.Error(t, err)

	_, err = run(t, "chunk", dir, "--max-tokens", "-1")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	dir := writeTree(t, map[string]string{"x/y.md": "y"})

	got, err := outputPath(dir, filepath.Join(dir, "x", "y.md"), "/out", ".json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "x", "y.json"), got)

	got, err = outputPath(filepath.Join(dir, "x", "y.md"), filepath.Join(dir, "x", "y.md"), "/out", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "y.txt"), got)
}
