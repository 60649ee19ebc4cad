package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVParser handles CSV files. The first record is the header; every data
// record becomes a table row rendered as "header: value" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// Strip a UTF-8 or UTF-16 byte order mark, decoding UTF-16 if present.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	doc := doctree.New(docName(filename))
	lines := newLineIndex(data)

	var headers []string
	rows := 0
	for {
		start := int(reader.InputOffset())
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		end := int(reader.InputOffset())
		for end > start && (data[end-1] == '\n' || data[end-1] == '\r') {
			end--
		}
		pos := lines.position(start, end)

		if headers == nil {
			headers = record
			doc.Add(doctree.Node{Kind: doctree.KindTable})
			doc.Add(doctree.Node{Kind: doctree.KindTableRow, Text: strings.Join(headers, ", "), Position: pos})
			continue
		}
		rows++
		doc.Add(doctree.Node{Kind: doctree.KindTableRow, Text: renderRow(headers, record), Position: pos})
	}

	if headers != nil {
		doc.SetMeta("columns", headers)
	}
	doc.SetMeta("rows", rows)
	return doc, nil
}

func renderRow(headers, row []string) string {
	var text strings.Builder
	for j, cell := range row {
		if j > 0 {
			text.WriteString(", ")
		}
		if j < len(headers) && headers[j] != "" {
			text.WriteString(headers[j] + ": " + cell)
		} else {
			text.WriteString(cell)
		}
	}
	return text.String()
}
